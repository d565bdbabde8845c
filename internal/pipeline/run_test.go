package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabcli/internal/headers"
	"tabcli/internal/ingest"
	"tabcli/internal/template"
)

func testRunner(t *testing.T) *Runner {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	norm := headers.NewNormalizer(headers.DefaultCacheSize, log)
	return NewRunner(ingest.NewReader(norm, nil, log), log, nil)
}

func writeCSVFixture(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func salesTemplate() *template.Template {
	tpl := template.New()
	tpl.SourceType = template.SourceCSV
	tpl.ColumnMappings = map[string]string{
		"Product": "article_sku",
		"Amount":  "sales_amount",
	}
	tpl.ProviderName = "acme"
	return tpl
}

func TestRunnerRunSuccess(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "sales.csv")
	writeCSVFixture(t, source,
		"Product,Amount",
		"A,10",
		"B,20")

	output := filepath.Join(dir, "out", "sales_clean.csv")
	quarantine := filepath.Join(dir, "quarantine")

	ok := testRunner(t).Run(context.Background(), source, salesTemplate(), output, quarantine, Options{})
	require.True(t, ok)
	assert.FileExists(t, output)

	report, err := os.ReadFile(output + ".validation.txt")
	require.NoError(t, err)
	assert.Contains(t, string(report), "Source: sales.csv")
	assert.Contains(t, string(report), "Validation level: COERCE")

	assert.NoFileExists(t, filepath.Join(quarantine, "sales.csv.error.log"))
}

func TestRunnerRunQuarantinesOnValidationFailure(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "sales.csv")
	writeCSVFixture(t, source,
		"Product,Amount",
		"A,10")

	tpl := salesTemplate()
	tpl.RequiredFields = []string{"report_date"}
	quarantine := filepath.Join(dir, "quarantine")
	output := filepath.Join(dir, "out", "sales_clean.csv")

	ok := testRunner(t).Run(context.Background(), source, tpl, output, quarantine,
		Options{ValidationLevel: ValidationContract})
	require.False(t, ok)
	assert.NoFileExists(t, output)

	// Quarantine holds a copy of the source plus the error log.
	assert.FileExists(t, filepath.Join(quarantine, "sales.csv"))
	data, err := os.ReadFile(filepath.Join(quarantine, "sales.csv.error.log"))
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, "Validation Failed for sales.csv")
	assert.Contains(t, log, strings.Repeat("-", 50))
	assert.Contains(t, log, "report_date: missing required column")
	assert.Contains(t, log, "Source: sales.csv")
}

func TestRunnerRunQuarantinesOnReadError(t *testing.T) {
	dir := t.TempDir()
	quarantine := filepath.Join(dir, "quarantine")

	ok := testRunner(t).Run(context.Background(), filepath.Join(dir, "missing.csv"),
		salesTemplate(), filepath.Join(dir, "out.csv"), quarantine, Options{})
	require.False(t, ok)

	data, err := os.ReadFile(filepath.Join(quarantine, "missing.csv.error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "source read failed")
}

func TestRunnerRunEnforcedDrift(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "sales.csv")
	writeCSVFixture(t, source,
		"Product,Amount",
		"A,10")

	tpl := salesTemplate()
	tpl.ColumnMappings["Qty"] = "sales_qty"
	quarantine := filepath.Join(dir, "quarantine")

	ok := testRunner(t).Run(context.Background(), source, tpl,
		filepath.Join(dir, "out.csv"), quarantine, Options{FailOnMissing: true})
	require.False(t, ok)

	data, err := os.ReadFile(filepath.Join(quarantine, "sales.csv.error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Missing: [sales_qty]")
}

func TestRunBatchRoutesOutcomes(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "input")
	require.NoError(t, os.MkdirAll(input, 0o755))

	writeCSVFixture(t, filepath.Join(input, "good.csv"),
		"Product,Amount", "A,10")
	require.NoError(t, salesTemplate().Save(filepath.Join(input, "good.df-template.json")))

	writeCSVFixture(t, filepath.Join(input, "bad.csv"),
		"Product,Amount", "A,10")
	badTpl := salesTemplate()
	badTpl.RequiredFields = []string{"report_date"}
	require.NoError(t, badTpl.Save(filepath.Join(input, "bad.df-template.json")))

	// No template at all: skipped, left in place.
	writeCSVFixture(t, filepath.Join(input, "orphan.csv"),
		"Product,Amount", "A,10")

	paths := BatchPaths{
		Input:      input,
		Output:     filepath.Join(root, "output"),
		Archive:    filepath.Join(root, "archive"),
		Quarantine: filepath.Join(root, "quarantine"),
	}
	res, err := testRunner(t).RunBatch(context.Background(), paths,
		Options{OutputFormat: "csv", ValidationLevel: ValidationContract})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Archived)
	assert.Equal(t, 1, res.Quarantined)
	assert.Equal(t, 1, res.Skipped)

	assert.FileExists(t, filepath.Join(paths.Output, "good_clean.csv"))
	assert.FileExists(t, filepath.Join(paths.Archive, "good.csv"))
	assert.NoFileExists(t, filepath.Join(input, "good.csv"))

	assert.FileExists(t, filepath.Join(paths.Quarantine, "bad.csv"))
	assert.FileExists(t, filepath.Join(paths.Quarantine, "bad.csv.error.log"))
	assert.NoFileExists(t, filepath.Join(input, "bad.csv"))

	assert.FileExists(t, filepath.Join(input, "orphan.csv"))
}

func TestRunBatchPerCompanySubdirs(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "input")
	company := filepath.Join(input, "acme")
	require.NoError(t, os.MkdirAll(company, 0o755))

	writeCSVFixture(t, filepath.Join(company, "sales.csv"),
		"Product,Amount", "A,10")
	require.NoError(t, salesTemplate().Save(filepath.Join(company, "sales.df-template.json")))

	paths := BatchPaths{
		Input:      input,
		Output:     filepath.Join(root, "output"),
		Archive:    filepath.Join(root, "archive"),
		Quarantine: filepath.Join(root, "quarantine"),
	}
	res, err := testRunner(t).RunBatch(context.Background(), paths, Options{OutputFormat: "csv"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Archived)
	assert.FileExists(t, filepath.Join(paths.Output, "acme", "sales_clean.csv"))
	assert.FileExists(t, filepath.Join(paths.Archive, "acme", "sales.csv"))
}
