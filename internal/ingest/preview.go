package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"tabcli/internal/frame"
)

// ReadRaw loads up to maxRows physical rows of a source with no header
// interpretation, for header-row guessing and interactive preview. For
// workbooks it also returns the sheet list.
func (r *Reader) ReadRaw(path, sheet string, maxRows int) (*frame.Frame, []string, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		file, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer file.Close()

		reader := csv.NewReader(file)
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		return rawFrame(rows, maxRows), nil, nil
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	sheetName := resolveSheetName(wb, sheet)
	if sheetName == "" {
		return frame.New(nil, nil), sheets, nil
	}
	rows, err := wb.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	return rawFrame(rows, maxRows), sheets, nil
}

// rawFrame builds a positional frame: every physical row is a data row.
func rawFrame(rows [][]string, maxRows int) *frame.Frame {
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	names := make([]string, width)
	for i := range names {
		names[i] = fmt.Sprintf("c%d", i)
	}
	return frame.New(names, rows)
}
