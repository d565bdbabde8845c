package headers

import "tabcli/internal/frame"

// GuessHeaderRow picks the most likely header row from a preview frame read
// without headers. It returns the first row where more than 80% of the
// non-null cells are text and more than half of the columns are populated,
// falling back to row 0.
func GuessHeaderRow(preview *frame.Frame) int {
	cols := preview.Cols()
	if cols == 0 {
		return 0
	}
	for r := 0; r < preview.Rows(); r++ {
		nonNull, strCount := 0, 0
		for _, v := range preview.Row(r) {
			if v.IsNull() {
				continue
			}
			nonNull++
			if v.Kind() == frame.KindString {
				strCount++
			}
		}
		if nonNull == 0 {
			continue
		}
		strRatio := float64(strCount) / float64(nonNull)
		widthRatio := float64(nonNull) / float64(cols)
		if strRatio > 0.8 && widthRatio > 0.5 {
			return r
		}
	}
	return 0
}
