package schema

import "strings"

// monthTokens normalizes month names in several languages to the English
// three-letter abbreviation. Finnish, Swedish, and German spellings show
// up in supplier report headers alongside English.
var monthTokens = map[string]string{
	"tammikuu":  "jan",
	"helmikuu":  "feb",
	"maaliskuu": "mar",
	"huhtikuu":  "apr",
	"toukokuu":  "may",
	"kesäkuu":   "jun",
	"heinäkuu":  "jul",
	"elokuu":    "aug",
	"syyskuu":   "sep",
	"lokakuu":   "oct",
	"marraskuu": "nov",
	"joulukuu":  "dec",
	"januaari":  "jan",
	"january":   "jan",
	"february":  "feb",
	"march":     "mar",
	"april":     "apr",
	"may":       "may",
	"june":      "jun",
	"july":      "jul",
	"august":    "aug",
	"september": "sep",
	"october":   "oct",
	"november":  "nov",
	"december":  "dec",
	"januari":   "jan",
	"februari":  "feb",
	"mars":      "mar",
	"maj":       "may",
	"juni":      "jun",
	"juli":      "jul",
	"augusti":   "aug",
	"oktober":   "oct",
	"maerz":     "mar",
	"märz":      "mar",
	"mai":       "may",
	"dezember":  "dec",
}

var englishMonths = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// NormalizeMonth maps a header token to a three-letter English month, with
// a substring fallback so "Jan." or "marraskuussa" still resolve. Returns
// false when the token carries no month.
func NormalizeMonth(token string) (string, bool) {
	lower := strings.ToLower(token)
	if m, ok := monthTokens[lower]; ok {
		return m, true
	}
	for _, eng := range englishMonths {
		if strings.Contains(lower, eng) {
			return eng, true
		}
	}
	return "", false
}
