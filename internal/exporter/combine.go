package exporter

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"tabcli/internal/frame"
)

// Combine modes and join strategies.
const (
	ModeConcat = "concat"
	ModeMerge  = "merge"

	JoinInner = "inner"
	JoinOuter = "outer"
	JoinLeft  = "left"
	JoinRight = "right"
)

// CombineOptions select how cleaned outputs are folded into one frame.
type CombineOptions struct {
	Pattern      string
	Mode         string
	Keys         []string
	How          string
	StrictSchema bool
}

// Combine reads every file in inputDir matching the pattern and folds
// them into a single frame, either stacked (concat) or joined on key
// columns (merge).
func Combine(inputDir string, opts CombineOptions) (*frame.Frame, error) {
	pattern := opts.Pattern
	if pattern == "" {
		pattern = "*.xlsx"
	}
	matches, err := filepath.Glob(filepath.Join(inputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files found in %s with pattern %s", inputDir, pattern)
	}

	if opts.Mode == "" || opts.Mode == ModeConcat {
		return concatFiles(matches, opts.StrictSchema)
	}
	return mergeFiles(matches, opts.Keys, opts.How)
}

// ReadFrame loads a previously exported file back into a frame. The first
// row is the header.
func ReadFrame(path string) (*frame.Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		wb, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer wb.Close()
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return frame.New(nil, nil), nil
		}
		rows, err := wb.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(rows) == 0 {
			return frame.New(nil, nil), nil
		}
		return frame.New(rows[0], rows[1:]), nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func concatFiles(paths []string, strict bool) (*frame.Frame, error) {
	var combined *frame.Frame
	var baseCols []string
	for _, path := range paths {
		f, err := ReadFrame(path)
		if err != nil {
			return nil, err
		}
		if strict {
			if baseCols == nil {
				baseCols = f.Columns()
			} else if !equalStrings(baseCols, f.Columns()) {
				return nil, fmt.Errorf("schema mismatch in %s", filepath.Base(path))
			}
		}
		if combined == nil {
			combined = f
		} else {
			combined.Append(f)
		}
	}
	return combined, nil
}

func mergeFiles(paths []string, keys []string, how string) (*frame.Frame, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("merge mode requires at least one key")
	}
	if how == "" {
		how = JoinInner
	}
	merged, err := ReadFrame(paths[0])
	if err != nil {
		return nil, err
	}
	for idx, path := range paths[1:] {
		right, err := ReadFrame(path)
		if err != nil {
			return nil, err
		}
		var missingLeft, missingRight []string
		for _, k := range keys {
			if !merged.HasColumn(k) {
				missingLeft = append(missingLeft, k)
			}
			if !right.HasColumn(k) {
				missingRight = append(missingRight, k)
			}
		}
		if len(missingLeft) > 0 || len(missingRight) > 0 {
			return nil, fmt.Errorf("missing merge keys: left missing %v, right missing %v",
				missingLeft, missingRight)
		}
		merged, err = joinFrames(merged, right, keys, how, fmt.Sprintf("_%d", idx+2))
		if err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// joinFrames joins two frames on the key columns. Overlapping non-key
// column names on the right side get the suffix.
func joinFrames(left, right *frame.Frame, keys []string, how, suffix string) (*frame.Frame, error) {
	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}

	var rightValueCols []string
	for _, c := range right.Columns() {
		if !keySet[c] {
			rightValueCols = append(rightValueCols, c)
		}
	}

	outCols := append([]string{}, left.Columns()...)
	leftNames := make(map[string]bool, len(outCols))
	for _, c := range outCols {
		leftNames[c] = true
	}
	rightOut := make([]string, len(rightValueCols))
	for i, c := range rightValueCols {
		if leftNames[c] {
			rightOut[i] = c + suffix
		} else {
			rightOut[i] = c
		}
	}
	outCols = append(outCols, rightOut...)

	rowKey := func(f *frame.Frame, r int) string {
		parts := make([]string, len(keys))
		for i, k := range keys {
			col, _ := f.Column(k)
			parts[i] = col.Cells[r].String()
		}
		return strings.Join(parts, "\x1f")
	}

	rightIndex := make(map[string][]int)
	for r := 0; r < right.Rows(); r++ {
		k := rowKey(right, r)
		rightIndex[k] = append(rightIndex[k], r)
	}

	var rows [][]frame.Value
	matchedRight := make(map[int]bool)
	for r := 0; r < left.Rows(); r++ {
		matches := rightIndex[rowKey(left, r)]
		if len(matches) == 0 {
			if how == JoinLeft || how == JoinOuter {
				row := append([]frame.Value{}, left.Row(r)...)
				for range rightValueCols {
					row = append(row, frame.Null())
				}
				rows = append(rows, row)
			}
			continue
		}
		for _, rr := range matches {
			matchedRight[rr] = true
			row := append([]frame.Value{}, left.Row(r)...)
			for _, c := range rightValueCols {
				col, _ := right.Column(c)
				row = append(row, col.Cells[rr])
			}
			rows = append(rows, row)
		}
	}
	if how == JoinRight || how == JoinOuter {
		for r := 0; r < right.Rows(); r++ {
			if matchedRight[r] {
				continue
			}
			row := make([]frame.Value, 0, len(outCols))
			for _, c := range left.Columns() {
				if keySet[c] {
					col, _ := right.Column(c)
					row = append(row, col.Cells[r])
				} else {
					row = append(row, frame.Null())
				}
			}
			for _, c := range rightValueCols {
				col, _ := right.Column(c)
				row = append(row, col.Cells[r])
			}
			rows = append(rows, row)
		}
	}
	return frame.FromValues(outCols, rows), nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
