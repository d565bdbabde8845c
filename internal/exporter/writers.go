package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tabcli/internal/frame"
)

// utf8BOM keeps Excel happy when it opens exported CSV directly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteXLSX writes the frame to a single-sheet workbook, headers first.
func WriteXLSX(f *frame.Frame, path string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := writeDataSheet(wb, "Sheet1", f); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeDataSheet(wb *excelize.File, sheet string, f *frame.Frame) error {
	sw, err := wb.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}
	header := make([]interface{}, f.Cols())
	for i, name := range f.Columns() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	for r := 0; r < f.Rows(); r++ {
		row := make([]interface{}, f.Cols())
		for c, v := range f.Row(r) {
			row[c] = cellValue(v)
		}
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, row); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}
	return sw.Flush()
}

func cellValue(v frame.Value) interface{} {
	switch v.Kind() {
	case frame.KindNull:
		return nil
	case frame.KindNumber:
		n, _ := v.Float()
		return n
	case frame.KindTime:
		t, _ := v.Timestamp()
		return t
	default:
		return v.String()
	}
}

// WriteCSV writes the frame as UTF-8 CSV with a leading byte-order mark.
func WriteCSV(f *frame.Frame, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	w := csv.NewWriter(file)
	if err := w.Write(f.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range f.Records() {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteJSONL writes one JSON object per row. Nulls stay null, numbers stay
// numbers, timestamps render as ISO dates.
func WriteJSONL(f *frame.Frame, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	cols := f.Columns()
	for r := 0; r < f.Rows(); r++ {
		record := make(map[string]interface{}, len(cols))
		for c, v := range f.Row(r) {
			record[cols[c]] = jsonValue(v)
		}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("encode row %d: %w", r, err)
		}
	}
	return nil
}

func jsonValue(v frame.Value) interface{} {
	switch v.Kind() {
	case frame.KindNull:
		return nil
	case frame.KindNumber:
		n, _ := v.Float()
		return n
	default:
		return v.String()
	}
}
