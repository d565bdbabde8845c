package exporter

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"tabcli/internal/frame"
)

// DatasetMetrics are the quality figures recorded in the run manifest.
type DatasetMetrics struct {
	Rows       int                `json:"rows"`
	Columns    int                `json:"columns"`
	Dtypes     map[string]string  `json:"dtypes"`
	NullPct    map[string]float64 `json:"null_pct"`
	Duplicates int                `json:"duplicates"`
}

// Manifest describes one export run.
type Manifest struct {
	RunID          string                 `json:"run_id"`
	RunStartedAt   string                 `json:"run_started_at"`
	RunCompletedAt string                 `json:"run_completed_at"`
	Formats        []string               `json:"formats"`
	Meta           map[string]interface{} `json:"meta,omitempty"`
	Metrics        DatasetMetrics         `json:"metrics"`
}

// Export writes the frame in the requested formats ("xlsx", "csv",
// "jsonl") into outDir plus a manifest.json, and returns the written
// paths by format. The xlsx variant carries a second "meta" sheet with a
// frozen header row and autofilter on the data sheet.
func Export(f *frame.Frame, outDir string, formats []string, meta map[string]interface{}) (map[string]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	manifest := Manifest{
		RunID:        uuid.NewString(),
		RunStartedAt: time.Now().UTC().Format(time.RFC3339),
		Formats:      uniqueSorted(formats),
		Meta:         meta,
		Metrics:      collectMetrics(f),
	}

	written := make(map[string]string, len(manifest.Formats)+1)
	for _, format := range manifest.Formats {
		var target string
		var err error
		switch format {
		case "xlsx":
			target = filepath.Join(outDir, "data.xlsx")
			err = writeDatasetWorkbook(f, manifest, target)
		case "csv":
			target = filepath.Join(outDir, "data.csv")
			err = WriteCSV(f, target)
		case "jsonl":
			target = filepath.Join(outDir, "data.jsonl")
			err = WriteJSONL(f, target)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		written[format] = target
	}

	manifest.RunCompletedAt = time.Now().UTC().Format(time.RFC3339)
	manifestPath := filepath.Join(outDir, "manifest.json")
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	written["manifest"] = manifestPath
	return written, nil
}

func collectMetrics(f *frame.Frame) DatasetMetrics {
	rows, cols := f.Shape()
	m := DatasetMetrics{
		Rows:       rows,
		Columns:    cols,
		Dtypes:     make(map[string]string, cols),
		NullPct:    make(map[string]float64, cols),
		Duplicates: f.DuplicateRowCount(),
	}
	for _, name := range f.Columns() {
		col, _ := f.Column(name)
		m.Dtypes[name] = columnDtype(col)
		m.NullPct[name] = nullPct(col)
	}
	return m
}

// columnDtype names the dominant cell type of a column.
func columnDtype(c *frame.Column) string {
	counts := map[frame.Kind]int{}
	for _, v := range c.Cells {
		if !v.IsNull() {
			counts[v.Kind()]++
		}
	}
	switch len(counts) {
	case 0:
		return "empty"
	case 1:
		for kind := range counts {
			switch kind {
			case frame.KindNumber:
				return "number"
			case frame.KindTime:
				return "datetime"
			case frame.KindBool:
				return "bool"
			default:
				return "text"
			}
		}
	}
	return "mixed"
}

func nullPct(c *frame.Column) float64 {
	total := len(c.Cells)
	if total == 0 {
		return 0
	}
	nulls := total - c.NonNullCount()
	return math.Round(float64(nulls)*100.0/float64(total)*100) / 100
}

func writeDatasetWorkbook(f *frame.Frame, manifest Manifest, path string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", "data"); err != nil {
		return fmt.Errorf("rename data sheet: %w", err)
	}
	if err := writeDataSheet(wb, "data", f); err != nil {
		return err
	}

	if _, err := wb.NewSheet("meta"); err != nil {
		return fmt.Errorf("create meta sheet: %w", err)
	}
	metaRows := [][]interface{}{{"key", "value"}}
	metaRows = append(metaRows, []interface{}{"run_id", manifest.RunID})
	metaRows = append(metaRows, []interface{}{"run_started_at", manifest.RunStartedAt})
	keys := make([]string, 0, len(manifest.Meta))
	for k := range manifest.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		metaRows = append(metaRows, []interface{}{k, fmt.Sprintf("%v", manifest.Meta[k])})
	}
	for r, row := range metaRows {
		axis, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow("meta", axis, &row); err != nil {
			return fmt.Errorf("write meta row: %w", err)
		}
	}

	// Freeze the header row and filter the data range.
	if err := wb.SetPanes("data", &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}
	rows, cols := f.Shape()
	if rows > 0 && cols > 0 {
		lastCol, err := excelize.ColumnNumberToName(cols)
		if err != nil {
			return err
		}
		ref := fmt.Sprintf("A1:%s%d", lastCol, rows+1)
		if err := wb.AutoFilter("data", ref, nil); err != nil {
			return fmt.Errorf("autofilter: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
