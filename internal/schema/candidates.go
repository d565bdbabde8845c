package schema

import (
	"fmt"
	"sort"
	"strings"

	"tabcli/internal/frame"
)

// Candidate is one proposed header ordering with its heuristic confidence.
type Candidate struct {
	Label   string   `json:"label"`
	Headers []string `json:"headers"`
	Score   float64  `json:"score"`
	Note    string   `json:"note"`
	Missing []string `json:"missing"`
	Extra   []string `json:"extra"`
}

// Data-type hints accepted by BuildCandidates.
const (
	DataTypeGeneric             = "generic"
	DataTypeProductSales        = "product_sales"
	DataTypeProductDescriptions = "product_descriptions"
	DataTypeSales               = "sales"
)

// IsNumericColumn reports whether a column is a usable measure: mostly
// coercible to numbers but not a run of calendar years.
func IsNumericColumn(c *frame.Column) bool {
	return c.NumericRatio() > 0.6 && !c.YearLike()
}

// IsTextyColumn reports whether a column reads as descriptive text.
func IsTextyColumn(c *frame.Column) bool {
	return c.MeanTextLength() > 12 && c.NumericRatio() < 0.3
}

// numericBlock is a contiguous run of measure columns.
type numericBlock struct {
	columns  []string
	startIdx int
}

func findNumericBlocks(f *frame.Frame) []numericBlock {
	var blocks []numericBlock
	var current []string
	start := -1
	for i, name := range f.Columns() {
		col, _ := f.Column(name)
		if IsNumericColumn(col) {
			if len(current) == 0 {
				start = i
			}
			current = append(current, name)
			continue
		}
		if len(current) > 0 {
			blocks = append(blocks, numericBlock{columns: current, startIdx: start})
			current = nil
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, numericBlock{columns: current, startIdx: start})
	}
	return blocks
}

// Diff compares a proposed header set against the target fields and
// returns the sorted missing and extra names. A nil target yields empty
// diffs.
func Diff(headers []string, targetFields []string) (missing, extra []string) {
	current := make(map[string]bool, len(targetFields))
	for _, f := range targetFields {
		current[f] = true
	}
	proposed := make(map[string]bool, len(headers))
	for _, h := range headers {
		proposed[h] = true
	}
	missing = []string{}
	extra = []string{}
	for f := range current {
		if !proposed[f] {
			missing = append(missing, f)
		}
	}
	for h := range proposed {
		if !current[h] {
			extra = append(extra, h)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}

// BuildCandidates ranks plausible header interpretations for a preview
// frame. The "As detected" baseline always survives at score 0.20; other
// candidates below 0.25 are dropped. Each candidate is annotated with its
// diff against the target fields.
func BuildCandidates(f *frame.Frame, hdrs []string, dataType string, targetFields []string) []Candidate {
	var candidates []Candidate
	add := func(label string, headersIn []string, score float64, note string) {
		candidates = append(candidates, Candidate{Label: label, Headers: headersIn, Score: score, Note: note})
	}

	add("As detected", append([]string{}, hdrs...), 0.20, "Headers as read from file.")

	var numericCols, textCols []string
	for _, name := range f.Columns() {
		col, _ := f.Column(name)
		if IsNumericColumn(col) {
			numericCols = append(numericCols, name)
		}
		if IsTextyColumn(col) {
			textCols = append(textCols, name)
		}
	}
	textSet := make(map[string]bool, len(textCols))
	for _, c := range textCols {
		textSet[c] = true
	}

	combined, changed := combineYearMonth(hdrs)
	if changed {
		add("Combined year+month headers", combined, 0.35,
			"Merged year + month tokens into single period labels.")
	}

	for _, block := range findNumericBlocks(f) {
		note := fmt.Sprintf("Numeric block cols %d-%d (size %d)",
			block.startIdx, block.startIdx+len(block.columns)-1, len(block.columns))
		ordered := append([]string{}, block.columns...)
		var score float64
		keyCol := ""
		if block.startIdx > 0 {
			left := f.Columns()[block.startIdx-1]
			if textSet[left] {
				keyCol = left
			}
		}
		if keyCol != "" {
			ordered = append([]string{keyCol}, ordered...)
			note += fmt.Sprintf("; key column '%s' on the left.", keyCol)
			score = 0.6 + 0.05*float64(len(block.columns))
		} else {
			score = 0.5 + 0.05*float64(len(block.columns))
		}
		if score > 0.9 {
			score = 0.9
		}
		add("Numeric block ordering", ordered, score, note)
	}

	switch dataType {
	case DataTypeProductSales:
		if len(textCols) > 0 && len(numericCols) > 0 {
			key := textCols[0]
			ordered := append([]string{key}, numericCols...)
			add("Product key + numeric measures", ordered,
				0.55+0.05*float64(len(numericCols)),
				fmt.Sprintf("Text key '%s' with numeric measures.", key))
		}
	case DataTypeProductDescriptions:
		if len(textCols) > 0 {
			key := textCols[0]
			ordered := []string{key}
			for _, c := range f.Columns() {
				if c != key {
					ordered = append(ordered, c)
				}
			}
			add("Description-first ordering", ordered, 0.45,
				fmt.Sprintf("Longest text column '%s' first.", key))
		}
	case DataTypeSales:
		if len(numericCols) > 0 {
			numSet := make(map[string]bool, len(numericCols))
			for _, c := range numericCols {
				numSet[c] = true
			}
			ordered := append([]string{}, numericCols...)
			for _, c := range f.Columns() {
				if !numSet[c] {
					ordered = append(ordered, c)
				}
			}
			add("Numeric-first (sales) ordering", ordered,
				0.5+0.05*float64(len(numericCols)),
				"Prioritized numeric columns (likely amounts/quantities).")
		}
	}

	out := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Label != "As detected" && cand.Score < 0.25 {
			continue
		}
		cand.Missing, cand.Extra = Diff(cand.Headers, targetFields)
		if len(cand.Missing) > 0 || len(cand.Extra) > 0 {
			cand.Note = strings.TrimSpace(cand.Note + " |" +
				diffText(" missing vs current schema: ", cand.Missing) +
				diffText(" extra: ", cand.Extra))
		}
		out = append(out, cand)
	}
	return out
}

func diffText(prefix string, names []string) string {
	if len(names) == 0 {
		return ""
	}
	shown := names
	suffix := ""
	if len(shown) > 5 {
		shown = shown[:5]
		suffix = "..."
	}
	return prefix + strings.Join(shown, ", ") + suffix
}

// combineYearMonth rewrites headers that carry both a four-digit year and
// a month token into "YYYY-mon" period labels.
func combineYearMonth(hdrs []string) ([]string, bool) {
	out := make([]string, len(hdrs))
	changed := false
	for i, h := range hdrs {
		replacer := strings.NewReplacer("/", " ", "-", " ")
		parts := strings.Fields(replacer.Replace(h))
		year, month := "", ""
		for _, p := range parts {
			if year == "" && len(p) == 4 && isDigits(p) {
				year = p
			}
			if month == "" {
				if m, ok := NormalizeMonth(p); ok {
					month = m
				}
			}
		}
		if year != "" && month != "" {
			out[i] = year + "-" + month
			changed = true
		} else {
			out[i] = h
		}
	}
	return out, changed
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
