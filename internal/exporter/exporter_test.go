package exporter

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tabcli/internal/frame"
)

func sampleFrame() *frame.Frame {
	return frame.FromValues(
		[]string{"article_sku", "sales_amount", "note"},
		[][]frame.Value{
			{frame.Str("A"), frame.Num(10.5), frame.Str("ok")},
			{frame.Str("B"), frame.Num(20), frame.Null()},
			{frame.Str("A"), frame.Num(10.5), frame.Str("ok")},
		})
}

func TestWriteXLSXRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")
	require.NoError(t, WriteXLSX(sampleFrame(), path))

	f, err := ReadFrame(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"article_sku", "sales_amount", "note"}, f.Columns())
	assert.Equal(t, 3, f.Rows())

	amount, _ := f.Column("sales_amount")
	n, ok := amount.Cells[0].Float()
	require.True(t, ok)
	assert.Equal(t, 10.5, n)
}

func TestWriteCSVHasBOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, WriteCSV(sampleFrame(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, utf8BOM, data[:3])
	assert.Contains(t, string(data), "article_sku,sales_amount,note")
}

func TestWriteJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")
	require.NoError(t, WriteJSONL(sampleFrame(), path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	scanner := bufio.NewScanner(file)
	require.True(t, scanner.Scan())
	var row map[string]interface{}
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
	assert.Equal(t, "A", row["article_sku"])
	assert.Equal(t, 10.5, row["sales_amount"])

	require.True(t, scanner.Scan())
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
	assert.Nil(t, row["note"])
}

func TestExportManifest(t *testing.T) {
	dir := t.TempDir()
	written, err := Export(sampleFrame(), dir, []string{"jsonl", "xlsx", "jsonl"}, map[string]interface{}{
		"source": "unit-test",
	})
	require.NoError(t, err)
	assert.FileExists(t, written["xlsx"])
	assert.FileExists(t, written["jsonl"])

	data, err := os.ReadFile(written["manifest"])
	require.NoError(t, err)
	var manifest Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))

	assert.NotEmpty(t, manifest.RunID)
	assert.Equal(t, []string{"jsonl", "xlsx"}, manifest.Formats)
	assert.Equal(t, 3, manifest.Metrics.Rows)
	assert.Equal(t, 3, manifest.Metrics.Columns)
	assert.Equal(t, 1, manifest.Metrics.Duplicates)
	assert.Equal(t, "number", manifest.Metrics.Dtypes["sales_amount"])
	assert.InDelta(t, 33.33, manifest.Metrics.NullPct["note"], 0.01)

	// The workbook carries data plus meta sheets.
	wb, err := excelize.OpenFile(written["xlsx"])
	require.NoError(t, err)
	defer wb.Close()
	assert.ElementsMatch(t, []string{"data", "meta"}, wb.GetSheetList())
}

func writeXLSXFixture(t *testing.T, path string, headers []string, rows [][]interface{}) {
	t.Helper()
	wb := excelize.NewFile()
	hdr := make([]interface{}, len(headers))
	for i, h := range headers {
		hdr[i] = h
	}
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &hdr))
	for r, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow("Sheet1", axis, &row))
	}
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())
}

func TestCombineConcat(t *testing.T) {
	dir := t.TempDir()
	writeXLSXFixture(t, filepath.Join(dir, "a_clean.xlsx"),
		[]string{"sku", "amount"}, [][]interface{}{{"A", 1}})
	writeXLSXFixture(t, filepath.Join(dir, "b_clean.xlsx"),
		[]string{"sku", "amount"}, [][]interface{}{{"B", 2}, {"C", 3}})

	f, err := Combine(dir, CombineOptions{Mode: ModeConcat})
	require.NoError(t, err)
	assert.Equal(t, 3, f.Rows())
}

func TestCombineConcatStrictSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	writeXLSXFixture(t, filepath.Join(dir, "a.xlsx"),
		[]string{"sku", "amount"}, [][]interface{}{{"A", 1}})
	writeXLSXFixture(t, filepath.Join(dir, "b.xlsx"),
		[]string{"sku", "other"}, [][]interface{}{{"B", 2}})

	_, err := Combine(dir, CombineOptions{Mode: ModeConcat, StrictSchema: true})
	assert.ErrorContains(t, err, "schema mismatch")
}

func TestCombineMergeInner(t *testing.T) {
	dir := t.TempDir()
	writeXLSXFixture(t, filepath.Join(dir, "a.xlsx"),
		[]string{"sku", "amount"}, [][]interface{}{{"A", 1}, {"B", 2}})
	writeXLSXFixture(t, filepath.Join(dir, "b.xlsx"),
		[]string{"sku", "amount"}, [][]interface{}{{"A", 10}})

	f, err := Combine(dir, CombineOptions{Mode: ModeMerge, Keys: []string{"sku"}, How: JoinInner})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Rows())
	// The right-hand overlapping column gets a suffix.
	assert.Equal(t, []string{"sku", "amount", "amount_2"}, f.Columns())
}

func TestCombineMergeOuterFillsNulls(t *testing.T) {
	dir := t.TempDir()
	writeXLSXFixture(t, filepath.Join(dir, "a.xlsx"),
		[]string{"sku", "amount"}, [][]interface{}{{"A", 1}})
	writeXLSXFixture(t, filepath.Join(dir, "b.xlsx"),
		[]string{"sku", "qty"}, [][]interface{}{{"B", 5}})

	f, err := Combine(dir, CombineOptions{Mode: ModeMerge, Keys: []string{"sku"}, How: JoinOuter})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Rows())

	qty, _ := f.Column("qty")
	assert.True(t, qty.Cells[0].IsNull())
	sku, _ := f.Column("sku")
	assert.Equal(t, "B", sku.Cells[1].String())
}

func TestCombineMergeRequiresKeys(t *testing.T) {
	dir := t.TempDir()
	writeXLSXFixture(t, filepath.Join(dir, "a.xlsx"), []string{"sku"}, [][]interface{}{{"A"}})

	_, err := Combine(dir, CombineOptions{Mode: ModeMerge})
	assert.ErrorContains(t, err, "at least one key")
}

func TestCombineNoFiles(t *testing.T) {
	_, err := Combine(t.TempDir(), CombineOptions{})
	assert.ErrorContains(t, err, "no files found")
}
