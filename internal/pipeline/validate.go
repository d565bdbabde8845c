package pipeline

import (
	"fmt"
	"strings"

	"tabcli/internal/frame"
	"tabcli/internal/template"
)

// Validation levels.
const (
	ValidationOff      = "off"
	ValidationCoerce   = "coerce"
	ValidationContract = "contract"
)

// Validate checks the transformed frame against the template contract.
// Level "off" skips everything. Level "contract" first requires the
// declared fields to be present, then coerces declared field types and
// fails on any parse failure. Every level except "off" ends with the
// lenient structural check of the canonical output columns; extra columns
// are always allowed.
func Validate(f *frame.Frame, tpl *template.Template, level string) error {
	level = strings.ToLower(level)
	if level == "" {
		level = ValidationCoerce
	}
	if level == ValidationOff {
		return nil
	}

	if level == ValidationContract {
		var missing []FieldFailure
		for _, field := range tpl.RequiredFields {
			if !f.HasColumn(field) {
				missing = append(missing, FieldFailure{Column: field, Failure: "missing required column"})
			}
		}
		if len(missing) > 0 {
			return newContractError("missing required columns", missing)
		}
		if len(tpl.FieldTypes) > 0 {
			if failures := coerceFieldTypes(f, tpl.FieldTypes); len(failures) > 0 {
				return newContractError("field type coercion failed", failures)
			}
		}
	}

	return checkStructural(f)
}

// coerceFieldTypes converts declared columns in place, collecting one
// failure record per column that could not be fully converted. Absent
// columns and unknown type names are ignored.
func coerceFieldTypes(f *frame.Frame, types map[string]string) []FieldFailure {
	var failures []FieldFailure
	for _, col := range f.Columns() {
		spec, ok := types[col]
		if !ok {
			continue
		}
		switch strings.ToLower(spec) {
		case "date", "datetime":
			if failed := f.CoerceDate(col); failed > 0 {
				failures = append(failures, FieldFailure{
					Column: col, Failure: fmt.Sprintf("%d datetime parse failures", failed)})
			}
		case "int", "integer":
			if failed := f.CoerceNumber(col); failed > 0 {
				failures = append(failures, FieldFailure{
					Column: col, Failure: fmt.Sprintf("%d integer parse failures", failed)})
			}
		case "float", "number", "numeric":
			if failed := f.CoerceNumber(col); failed > 0 {
				failures = append(failures, FieldFailure{
					Column: col, Failure: fmt.Sprintf("%d numeric parse failures", failed)})
			}
		case "str", "string", "text":
			stringifyColumn(f, col)
		}
	}
	return failures
}

func stringifyColumn(f *frame.Frame, name string) {
	col, ok := f.Column(name)
	if !ok {
		return
	}
	for i, v := range col.Cells {
		if !v.IsNull() && v.Kind() != frame.KindString {
			col.Cells[i] = frame.Str(v.String())
		}
	}
}

// checkStructural enforces the fixed output contract: provider_id and
// article_sku coerce to text, report_date to dates, sales_amount to
// numbers. All four are optional and nullable; only values that resist
// coercion fail.
func checkStructural(f *frame.Frame) error {
	var failures []FieldFailure
	for _, name := range []string{"provider_id", "article_sku"} {
		if f.HasColumn(name) {
			stringifyColumn(f, name)
		}
	}
	if f.HasColumn("report_date") {
		if failed := countUncoercibleDates(f, "report_date"); failed > 0 {
			failures = append(failures, FieldFailure{
				Column: "report_date", Failure: fmt.Sprintf("%d values not coercible to datetime", failed)})
		}
	}
	if f.HasColumn("sales_amount") {
		if failed := countUncoercibleNumbers(f, "sales_amount"); failed > 0 {
			failures = append(failures, FieldFailure{
				Column: "sales_amount", Failure: fmt.Sprintf("%d values not coercible to float", failed)})
		}
	}
	if len(failures) > 0 {
		return newContractError("output schema check failed", failures)
	}
	return nil
}

func countUncoercibleDates(f *frame.Frame, name string) int {
	col, _ := f.Column(name)
	failed := 0
	for i, v := range col.Cells {
		if v.IsNull() {
			continue
		}
		if t, ok := v.AsTime(); ok {
			col.Cells[i] = frame.Time(t)
		} else {
			failed++
		}
	}
	return failed
}

func countUncoercibleNumbers(f *frame.Frame, name string) int {
	col, _ := f.Column(name)
	failed := 0
	for i, v := range col.Cells {
		if v.IsNull() {
			continue
		}
		if n, ok := v.AsNumber(); ok {
			col.Cells[i] = frame.Num(n)
		} else {
			failed++
		}
	}
	return failed
}
