package pipeline

import (
	"log/slog"

	"tabcli/internal/frame"
	"tabcli/internal/template"
)

// ProviderColumn carries provenance on every output row.
const ProviderColumn = "provider_id"

// Shape is (rows, cols) at a point in the pipeline.
type Shape struct {
	Rows int
	Cols int
}

// Metrics accumulates counters over the transform stage.
type Metrics struct {
	UnpivotBefore        Shape
	UnpivotAfter         Shape
	DedupeDropped        int
	DateParseFailures    int
	NumericParseFailures int
}

// Transform applies the template's structural and cleanup steps in a fixed
// order: unpivot, provenance, row/column pruning, string cleanup, date and
// amount coercion, aggregation, and dedupe. The frame is modified in place
// except where reshaping replaces it; the returned frame is the result.
func Transform(f *frame.Frame, tpl *template.Template, log *slog.Logger) (*frame.Frame, Metrics) {
	if log == nil {
		log = slog.Default()
	}
	rows, cols := f.Shape()
	m := Metrics{
		UnpivotBefore: Shape{rows, cols},
		UnpivotAfter:  Shape{rows, cols},
	}

	if tpl.Unpivot {
		// Explicit id_columns win; otherwise the mapped target names are
		// the identifier variables and everything else is period data to
		// melt. Frame column order keeps the id list deterministic.
		var ids []string
		if len(tpl.IDColumns) > 0 {
			for _, c := range tpl.IDColumns {
				if f.HasColumn(c) {
					ids = append(ids, c)
				}
			}
		} else {
			targets := make(map[string]bool, len(tpl.ColumnMappings))
			for _, v := range tpl.ColumnMappings {
				targets[v] = true
			}
			for _, c := range f.Columns() {
				if targets[c] {
					ids = append(ids, c)
				}
			}
		}
		if len(ids) == 0 {
			log.Warn("unpivot requested but no identifier columns found")
		} else {
			before := Shape{f.Rows(), f.Cols()}
			f = f.Melt(ids, tpl.VarName, tpl.ValueName)
			m.UnpivotBefore = before
			m.UnpivotAfter = Shape{f.Rows(), f.Cols()}
		}
	}

	provider := tpl.ProviderName
	if provider == "" {
		provider = tpl.SourceFile
	}
	f.AddConst(ProviderColumn, frame.Str(provider))

	if tpl.DropEmptyRows {
		f.DropEmptyRows()
	}
	if tpl.DropNullColumnsThreshold != nil {
		f.DropSparseColumns(*tpl.DropNullColumnsThreshold)
	}
	if tpl.ShouldTrimStrings() {
		f.TrimStrings()
	}
	if tpl.StripThousands {
		f.StripThousands()
	}

	if f.HasColumn("report_date") {
		m.DateParseFailures = f.CoerceDate("report_date")
		f.DropNullRows("report_date")
	}
	if f.HasColumn("sales_amount") {
		m.NumericParseFailures = f.CoerceNumber("sales_amount")
		f.FillNulls("sales_amount", frame.Num(0.0))
	}

	if len(tpl.CombineOn) > 0 {
		var keys []string
		for _, k := range tpl.CombineOn {
			if f.HasColumn(k) {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			log.Warn("combine_on keys not found in columns, skipping aggregation")
		} else {
			groupCols := append([]string{}, keys...)
			if tpl.Unpivot && f.HasColumn(tpl.VarName) {
				groupCols = append(groupCols, tpl.VarName)
			}
			if f.HasColumn(ProviderColumn) && !contains(groupCols, ProviderColumn) {
				groupCols = append(groupCols, ProviderColumn)
			}
			if hasNumericOutside(f, groupCols) {
				f = f.GroupSum(groupCols)
			} else {
				log.Warn("combine_on requested but no numeric columns to aggregate",
					slog.Any("keys", keys))
			}
		}
	}

	if len(tpl.DedupeOn) > 0 {
		var keys []string
		for _, k := range tpl.DedupeOn {
			if f.HasColumn(k) {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			log.Warn("dedupe_on keys not found in columns, skipping dedupe")
		} else {
			m.DedupeDropped = f.Dedupe(keys)
		}
	}

	return f, m
}

func hasNumericOutside(f *frame.Frame, groupCols []string) bool {
	group := make(map[string]bool, len(groupCols))
	for _, g := range groupCols {
		group[g] = true
	}
	for _, name := range f.Columns() {
		if group[name] {
			continue
		}
		if col, ok := f.Column(name); ok && col.IsNumeric() {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
