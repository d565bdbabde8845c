package schema

import (
	"strings"
	"unicode"
)

// SnakeCase lowers a header to a snake_case identifier: non-alphanumeric
// runs collapse into single underscores.
func SnakeCase(text string) string {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	cleaned := b.String()
	for strings.Contains(cleaned, "__") {
		cleaned = strings.ReplaceAll(cleaned, "__", "_")
	}
	return strings.ToLower(strings.Trim(cleaned, "_"))
}

// AutoMap proposes a header-to-field mapping. It is greedy and
// order-dependent: headers are visited in file order, fields in schema
// order, and each field is claimed at most once. A field matches when the
// field name or any synonym is contained in the lowered header, with a
// fuzzy similarity of at least 0.82 as fallback. A fuzzy hit does not end
// the field scan: the next unclaimed field still gets its containment
// check and overrides the fuzzy match when it wins. Unmatched headers map
// to their own snake_case name.
func AutoMap(fileHeaders []string, s *Schema) map[string]string {
	mapping := make(map[string]string, len(fileHeaders))
	used := make(map[string]bool)

	for _, header := range fileHeaders {
		headerLower := strings.TrimSpace(strings.ToLower(header))
		best := ""
		for _, field := range s.Fields() {
			if used[field.Name] {
				continue
			}
			pool := append([]string{field.Name}, field.Synonyms...)
			for _, candidate := range pool {
				cl := strings.ToLower(candidate)
				if cl != "" && strings.Contains(headerLower, cl) {
					best = field.Name
					break
				}
			}
			if best != "" {
				break
			}
			for _, candidate := range pool {
				if similarity(headerLower, candidate) >= 0.82 {
					best = field.Name
					break
				}
			}
		}
		if best != "" {
			mapping[header] = best
			used[best] = true
		} else if _, taken := mapping[header]; !taken {
			mapping[header] = SnakeCase(header)
		}
	}
	return mapping
}

// similarity is the classic sequence-matcher ratio: twice the total length
// of the matching blocks over the combined length. Matching blocks come
// from recursively taking the longest common substring.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingChars(ra, rb)) / float64(total)
}

func matchingChars(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	bestA, bestB, bestLen := 0, 0, 0
	prev := make(map[int]int)
	for i := range a {
		current := make(map[int]int)
		for j := range b {
			if a[i] != b[j] {
				continue
			}
			k := prev[j-1] + 1
			current[j] = k
			if k > bestLen {
				bestA, bestB, bestLen = i-k+1, j-k+1, k
			}
		}
		prev = current
	}
	if bestLen == 0 {
		return 0
	}
	return bestLen +
		matchingChars(a[:bestA], b[:bestB]) +
		matchingChars(a[bestA+bestLen:], b[bestB+bestLen:])
}
