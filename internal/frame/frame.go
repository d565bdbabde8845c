package frame

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Column is one named column of cells.
type Column struct {
	Name  string
	Cells []Value
}

// NonNullCount returns the number of non-null cells.
func (c *Column) NonNullCount() int {
	n := 0
	for _, v := range c.Cells {
		if !v.IsNull() {
			n++
		}
	}
	return n
}

// NonNullRatio returns the fraction of cells that are non-null.
// A column with zero rows reports 1.0 so it is never treated as sparse.
func (c *Column) NonNullRatio() float64 {
	if len(c.Cells) == 0 {
		return 1.0
	}
	return float64(c.NonNullCount()) / float64(len(c.Cells))
}

// NumericRatio returns the fraction of all cells (nulls included in the
// denominator) that coerce to a number.
func (c *Column) NumericRatio() float64 {
	if len(c.Cells) == 0 {
		return 0
	}
	n := 0
	for _, v := range c.Cells {
		if _, ok := v.AsNumber(); ok {
			n++
		}
	}
	return float64(n) / float64(len(c.Cells))
}

// YearLike reports whether more than 60% of the column's coercible numeric
// values fall inside the calendar-year band [1900, 2100].
func (c *Column) YearLike() bool {
	var total, inBand int
	for _, v := range c.Cells {
		f, ok := v.AsNumber()
		if !ok {
			continue
		}
		total++
		if f >= 1900 && f <= 2100 {
			inBand++
		}
	}
	if total == 0 {
		return false
	}
	return float64(inBand)/float64(total) > 0.6
}

// IsNumeric reports whether the column holds typed numeric data: at least
// one non-null cell, with every non-null cell a number.
func (c *Column) IsNumeric() bool {
	nonNull := 0
	for _, v := range c.Cells {
		if v.IsNull() {
			continue
		}
		nonNull++
		if v.Kind() != KindNumber {
			return false
		}
	}
	return nonNull > 0
}

// MeanTextLength returns the mean rendered length across all cells, with
// nulls counted as empty strings.
func (c *Column) MeanTextLength() float64 {
	if len(c.Cells) == 0 {
		return 0
	}
	total := 0
	for _, v := range c.Cells {
		total += len(v.String())
	}
	return float64(total) / float64(len(c.Cells))
}

// Frame is a small column-major table. It exists because the transform
// engine needs exact null semantics (sum-ignoring-nulls with all-null
// groups staying null) that row-major [][]string processing cannot express.
type Frame struct {
	cols []Column
}

// New builds a frame from raw text rows, inferring cell types per Infer.
// Short rows are padded with nulls; long rows are truncated to the headers.
func New(headers []string, rows [][]string) *Frame {
	f := &Frame{cols: make([]Column, len(headers))}
	for i, h := range headers {
		f.cols[i] = Column{Name: h, Cells: make([]Value, len(rows))}
	}
	for r, row := range rows {
		for c := range headers {
			if c < len(row) {
				f.cols[c].Cells[r] = Infer(row[c])
			} else {
				f.cols[c].Cells[r] = Null()
			}
		}
	}
	return f
}

// FromValues builds a frame from already-typed rows.
func FromValues(headers []string, rows [][]Value) *Frame {
	f := &Frame{cols: make([]Column, len(headers))}
	for i, h := range headers {
		f.cols[i] = Column{Name: h, Cells: make([]Value, len(rows))}
	}
	for r, row := range rows {
		for c := range headers {
			if c < len(row) {
				f.cols[c].Cells[r] = row[c]
			}
		}
	}
	return f
}

// Rows returns the row count.
func (f *Frame) Rows() int {
	if len(f.cols) == 0 {
		return 0
	}
	return len(f.cols[0].Cells)
}

// Cols returns the column count.
func (f *Frame) Cols() int { return len(f.cols) }

// Shape returns (rows, cols).
func (f *Frame) Shape() (int, int) { return f.Rows(), f.Cols() }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or false when absent.
func (f *Frame) Column(name string) (*Column, bool) {
	for i := range f.cols {
		if f.cols[i].Name == name {
			return &f.cols[i], true
		}
	}
	return nil, false
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.Column(name)
	return ok
}

// Row materializes row i.
func (f *Frame) Row(i int) []Value {
	row := make([]Value, len(f.cols))
	for c := range f.cols {
		row[c] = f.cols[c].Cells[i]
	}
	return row
}

// SetColumnNames rebinds names onto existing columns. Shorter name lists
// leave the tail untouched, longer ones are truncated; this never errors.
func (f *Frame) SetColumnNames(names []string) {
	for i := range f.cols {
		if i < len(names) {
			f.cols[i].Name = names[i]
		}
	}
}

// Rename renames columns per the mapping; unmapped columns keep their name.
func (f *Frame) Rename(mapping map[string]string) {
	for i := range f.cols {
		if target, ok := mapping[f.cols[i].Name]; ok {
			f.cols[i].Name = target
		}
	}
}

// Select keeps only the named columns, in the given order, skipping names
// that do not exist.
func (f *Frame) Select(names []string) {
	kept := make([]Column, 0, len(names))
	for _, name := range names {
		if col, ok := f.Column(name); ok {
			kept = append(kept, *col)
		}
	}
	f.cols = kept
}

// SliceColumns keeps only the first n columns.
func (f *Frame) SliceColumns(n int) {
	if n < len(f.cols) {
		f.cols = f.cols[:n]
	}
}

// AddConst appends a column with the same value in every row. An existing
// column with that name is overwritten.
func (f *Frame) AddConst(name string, v Value) {
	cells := make([]Value, f.Rows())
	for i := range cells {
		cells[i] = v
	}
	if col, ok := f.Column(name); ok {
		col.Cells = cells
		return
	}
	f.cols = append(f.cols, Column{Name: name, Cells: cells})
}

// Melt unpivots every column outside idVars into (varName, valueName) row
// pairs. For R rows and N value columns the result has R*N rows, with the
// value columns visited in order for each source row block.
func (f *Frame) Melt(idVars []string, varName, valueName string) *Frame {
	idSet := make(map[string]bool, len(idVars))
	for _, id := range idVars {
		idSet[id] = true
	}
	var valueCols []Column
	for _, c := range f.cols {
		if !idSet[c.Name] {
			valueCols = append(valueCols, c)
		}
	}

	headers := make([]string, 0, len(idVars)+2)
	headers = append(headers, idVars...)
	headers = append(headers, varName, valueName)

	rows := f.Rows()
	out := make([][]Value, 0, rows*len(valueCols))
	for _, vc := range valueCols {
		for r := 0; r < rows; r++ {
			row := make([]Value, 0, len(headers))
			for _, id := range idVars {
				col, _ := f.Column(id)
				row = append(row, col.Cells[r])
			}
			row = append(row, Str(vc.Name), vc.Cells[r])
			out = append(out, row)
		}
	}
	return FromValues(headers, out)
}

// DropEmptyRows removes rows where every cell is null.
func (f *Frame) DropEmptyRows() {
	keep := make([]int, 0, f.Rows())
	for r := 0; r < f.Rows(); r++ {
		empty := true
		for c := range f.cols {
			if !f.cols[c].Cells[r].IsNull() {
				empty = false
				break
			}
		}
		if !empty {
			keep = append(keep, r)
		}
	}
	f.keepRows(keep)
}

// DropEmptyColumns removes columns where every cell is null. Columns with
// zero rows are kept.
func (f *Frame) DropEmptyColumns() {
	if f.Rows() == 0 {
		return
	}
	kept := f.cols[:0]
	for _, c := range f.cols {
		if c.NonNullCount() > 0 {
			kept = append(kept, c)
		}
	}
	f.cols = kept
}

// DropSparseColumns removes columns whose non-null ratio is below the
// threshold. Zero-row columns are never dropped on this basis.
func (f *Frame) DropSparseColumns(threshold float64) {
	kept := f.cols[:0]
	for _, c := range f.cols {
		if len(c.Cells) == 0 || c.NonNullRatio() >= threshold {
			kept = append(kept, c)
		}
	}
	f.cols = kept
}

// TrimStrings trims leading/trailing whitespace on string cells.
func (f *Frame) TrimStrings() {
	for c := range f.cols {
		for r, v := range f.cols[c].Cells {
			if v.Kind() == KindString {
				f.cols[c].Cells[r] = Str(strings.TrimSpace(v.str))
			}
		}
	}
}

var thousandsRe = regexp.MustCompile(`[,\s]`)

// StripThousands removes comma and whitespace separators from string cells
// so "1 234,56"-style figures survive numeric coercion.
func (f *Frame) StripThousands() {
	for c := range f.cols {
		for r, v := range f.cols[c].Cells {
			if v.Kind() == KindString {
				f.cols[c].Cells[r] = Str(thousandsRe.ReplaceAllString(v.str, ""))
			}
		}
	}
}

// CoerceDate converts the named column to timestamps and returns the count
// of values that were non-null before coercion but failed to parse.
func (f *Frame) CoerceDate(name string) int {
	col, ok := f.Column(name)
	if !ok {
		return 0
	}
	failures := 0
	for r, v := range col.Cells {
		if v.IsNull() {
			continue
		}
		if t, ok := v.AsTime(); ok {
			col.Cells[r] = Time(t)
		} else {
			col.Cells[r] = Null()
			failures++
		}
	}
	return failures
}

// CoerceNumber converts the named column to numbers and returns the count
// of values that were non-null before coercion but failed to parse.
func (f *Frame) CoerceNumber(name string) int {
	col, ok := f.Column(name)
	if !ok {
		return 0
	}
	failures := 0
	for r, v := range col.Cells {
		if v.IsNull() {
			continue
		}
		if n, ok := v.AsNumber(); ok {
			col.Cells[r] = Num(n)
		} else {
			col.Cells[r] = Null()
			failures++
		}
	}
	return failures
}

// FillNulls replaces null cells of the named column with the given value.
func (f *Frame) FillNulls(name string, v Value) {
	col, ok := f.Column(name)
	if !ok {
		return
	}
	for r, cell := range col.Cells {
		if cell.IsNull() {
			col.Cells[r] = v
		}
	}
}

// DropNullRows removes rows where the named column is null.
func (f *Frame) DropNullRows(name string) {
	col, ok := f.Column(name)
	if !ok {
		return
	}
	keep := make([]int, 0, f.Rows())
	for r, v := range col.Cells {
		if !v.IsNull() {
			keep = append(keep, r)
		}
	}
	f.keepRows(keep)
}

const groupKeySep = "\x1f"

// GroupSum groups rows by the given key columns and sums every numeric
// non-key column. Result rows come out sorted by group key. Summation
// ignores nulls, but a group whose values are all null yields null rather
// than zero. Non-numeric value columns are dropped from the result.
func (f *Frame) GroupSum(groupCols []string) *Frame {
	groupSet := make(map[string]bool, len(groupCols))
	for _, g := range groupCols {
		groupSet[g] = true
	}
	var numericCols []string
	for _, c := range f.cols {
		if !groupSet[c.Name] && c.IsNumeric() {
			numericCols = append(numericCols, c.Name)
		}
	}

	type agg struct {
		keyCells []Value
		sums     []float64
		counts   []int
	}
	var order []string
	groups := make(map[string]*agg)

	for r := 0; r < f.Rows(); r++ {
		keyParts := make([]string, len(groupCols))
		keyCells := make([]Value, len(groupCols))
		for i, g := range groupCols {
			col, _ := f.Column(g)
			keyCells[i] = col.Cells[r]
			keyParts[i] = col.Cells[r].String()
		}
		key := strings.Join(keyParts, groupKeySep)
		entry, ok := groups[key]
		if !ok {
			entry = &agg{
				keyCells: keyCells,
				sums:     make([]float64, len(numericCols)),
				counts:   make([]int, len(numericCols)),
			}
			groups[key] = entry
			order = append(order, key)
		}
		for i, name := range numericCols {
			col, _ := f.Column(name)
			if n, ok := col.Cells[r].Float(); ok {
				entry.sums[i] += n
				entry.counts[i]++
			}
		}
	}

	// The separator sorts below any printable rune, so sorting the joined
	// keys orders groups column by column.
	sort.Strings(order)

	headers := append(append([]string{}, groupCols...), numericCols...)
	rows := make([][]Value, 0, len(order))
	for _, key := range order {
		entry := groups[key]
		row := append([]Value{}, entry.keyCells...)
		for i := range numericCols {
			if entry.counts[i] == 0 {
				row = append(row, Null())
			} else {
				row = append(row, Num(entry.sums[i]))
			}
		}
		rows = append(rows, row)
	}
	return FromValues(headers, rows)
}

// Dedupe drops duplicate rows by the given key columns, keeping the first
// occurrence, and returns the number of rows removed.
func (f *Frame) Dedupe(keys []string) int {
	seen := make(map[string]bool)
	keep := make([]int, 0, f.Rows())
	before := f.Rows()
	for r := 0; r < before; r++ {
		parts := make([]string, len(keys))
		for i, k := range keys {
			col, _ := f.Column(k)
			parts[i] = col.Cells[r].String()
		}
		key := strings.Join(parts, groupKeySep)
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, r)
	}
	f.keepRows(keep)
	return before - f.Rows()
}

// Append concatenates another frame below this one, unioning columns.
// Cells missing on either side become null.
func (f *Frame) Append(other *Frame) {
	if other == nil || other.Cols() == 0 {
		return
	}
	baseRows := f.Rows()
	for _, name := range other.Columns() {
		if !f.HasColumn(name) {
			cells := make([]Value, baseRows)
			f.cols = append(f.cols, Column{Name: name, Cells: cells})
		}
	}
	otherRows := other.Rows()
	for i := range f.cols {
		if src, ok := other.Column(f.cols[i].Name); ok {
			f.cols[i].Cells = append(f.cols[i].Cells, src.Cells...)
		} else {
			f.cols[i].Cells = append(f.cols[i].Cells, make([]Value, otherRows)...)
		}
	}
}

// Records renders every row as strings, for CSV-style writers.
func (f *Frame) Records() [][]string {
	out := make([][]string, f.Rows())
	for r := 0; r < f.Rows(); r++ {
		row := make([]string, len(f.cols))
		for c := range f.cols {
			row[c] = f.cols[c].Cells[r].String()
		}
		out[r] = row
	}
	return out
}

// DuplicateRowCount counts rows that are exact duplicates of an earlier row.
func (f *Frame) DuplicateRowCount() int {
	seen := make(map[string]bool)
	dups := 0
	for r := 0; r < f.Rows(); r++ {
		parts := make([]string, len(f.cols))
		for c := range f.cols {
			parts[c] = f.cols[c].Cells[r].String()
		}
		key := strings.Join(parts, groupKeySep)
		if seen[key] {
			dups++
		}
		seen[key] = true
	}
	return dups
}

// keepRows retains only the given row indices, in order.
func (f *Frame) keepRows(keep []int) {
	for c := range f.cols {
		cells := make([]Value, len(keep))
		for i, r := range keep {
			cells[i] = f.cols[c].Cells[r]
		}
		f.cols[c].Cells = cells
	}
}

// ShapeString renders the shape as "RxC" for logs and reports.
func (f *Frame) ShapeString() string {
	r, c := f.Shape()
	return fmt.Sprintf("%dx%d", r, c)
}
