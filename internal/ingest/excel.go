package ingest

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"tabcli/internal/frame"
	"tabcli/internal/headers"
	"tabcli/internal/template"
)

// SourceSheetColumn is added to combined multi-sheet frames so each row
// keeps its worksheet provenance.
const SourceSheetColumn = "source_sheet"

func (r *Reader) readWorkbook(path string, tpl *template.Template) (*frame.Frame, bool, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer wb.Close()

	var combined *frame.Frame
	anyMerged := false

	for _, sheet := range tpl.SheetList() {
		sheetName := resolveSheetName(wb, sheet)
		if sheetName == "" {
			return nil, false, fmt.Errorf("workbook %s has no sheets", path)
		}

		var normalized []string
		merged := false
		if r.norm != nil {
			normalized, merged, err = r.norm.Headers(path, sheetName, tpl.HeaderRow, tpl.Skiprows)
			if err != nil {
				r.log.Debug("header normalization skipped",
					slog.String("sheet", sheetName), slog.String("error", err.Error()))
				normalized, merged = nil, false
			}
		}

		rows, err := wb.GetRows(sheetName)
		if err != nil {
			return nil, false, fmt.Errorf("read sheet %s: %w", sheetName, err)
		}
		hdr, data := splitRows(rows, tpl.HeaderRow, tpl.Skiprows)
		if hdr == nil {
			continue
		}
		f := frame.New(hdr, data)
		selectTemplateColumns(f, tpl)

		headers.Apply(f, normalized)
		f.DropEmptyRows()
		f.DropEmptyColumns()
		f = FilterAndRename(f, tpl)

		if tpl.CombineSheets {
			f.AddConst(SourceSheetColumn, frame.Str(sheetName))
		}
		if combined == nil {
			combined = f
		} else {
			combined.Append(f)
		}
		anyMerged = anyMerged || merged
	}

	if combined == nil {
		combined = frame.New(nil, nil)
	}
	if anyMerged {
		r.log.Warn("merged header cells detected, labels were expanded",
			slog.String("path", path))
	}
	return combined, anyMerged, nil
}

// selectTemplateColumns narrows the frame to the worksheet columns the
// template pins, either by header-cell column letters or by name.
func selectTemplateColumns(f *frame.Frame, tpl *template.Template) {
	if len(tpl.Headers) > 0 {
		names := f.Columns()
		var selected []string
		for _, cell := range tpl.Headers {
			if cell.Column == "" {
				continue
			}
			n, err := excelize.ColumnNameToNumber(cell.Column)
			if err != nil || n > len(names) {
				continue
			}
			selected = append(selected, names[n-1])
		}
		if len(selected) > 0 {
			f.Select(selected)
		}
		return
	}
	if len(tpl.Columns) > 0 {
		f.Select(tpl.Columns)
	}
}

func resolveSheetName(wb *excelize.File, sheet string) string {
	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	if sheet != "" {
		for _, name := range sheets {
			if name == sheet {
				return name
			}
		}
	}
	return sheets[0]
}
