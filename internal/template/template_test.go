package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	tpl := New()
	assert.Equal(t, SourceExcel, tpl.SourceType)
	assert.Equal(t, ",", tpl.Delimiter)
	assert.Equal(t, "utf-8", tpl.Encoding)
	assert.Equal(t, "report_date", tpl.VarName)
	assert.Equal(t, "sales_amount", tpl.ValueName)
	assert.Equal(t, CurrentVersion, tpl.TemplateVersion)
	assert.True(t, tpl.ShouldTrimStrings())
}

func TestTrimStringsExplicitFalse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.df-template.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"trim_strings": false}`), 0o644))

	tpl, err := Load(path)
	require.NoError(t, err)
	assert.False(t, tpl.ShouldTrimStrings())
}

func TestExpectedHeadersPriority(t *testing.T) {
	tests := []struct {
		name string
		tpl  Template
		want []string
	}{
		{
			name: "headers win with alias over name",
			tpl: Template{
				Headers:        []HeaderCell{{Name: "Product", Alias: "article_sku"}, {Name: "Amount"}},
				ColumnMappings: map[string]string{"X": "ignored"},
				Columns:        []string{"ignored"},
			},
			want: []string{"article_sku", "Amount"},
		},
		{
			name: "mapping targets sorted",
			tpl: Template{
				ColumnMappings: map[string]string{"Prod": "article_sku", "Amt": "sales_amount"},
				Columns:        []string{"ignored"},
			},
			want: []string{"article_sku", "sales_amount"},
		},
		{
			name: "plain columns last",
			tpl:  Template{Columns: []string{"a", "b"}},
			want: []string{"a", "b"},
		},
		{
			name: "nothing configured",
			tpl:  Template{},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tpl.ExpectedHeaders())
		})
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	threshold := 0.4
	tpl := New()
	tpl.Sheet = "Data"
	tpl.HeaderRow = 2
	tpl.Skiprows = []int{0, 1}
	tpl.ColumnMappings = map[string]string{"Product": "article_sku"}
	tpl.Unpivot = true
	tpl.DropNullColumnsThreshold = &threshold
	tpl.RequiredFields = []string{"article_sku", "sales_amount"}
	tpl.FieldTypes = map[string]string{"sales_amount": "float"}

	for _, ext := range []string{".json", ".yaml"} {
		path := filepath.Join(dir, "sales.df-template"+ext)
		require.NoError(t, tpl.Save(path))
		loaded, err := Load(path)
		require.NoError(t, err, ext)
		assert.Equal(t, tpl, loaded, ext)
	}
}

func TestLoadRejectsBadSourceType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.df-template.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"source_type": "ftp"}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsSQLWithoutQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.df-template.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"source_type": "sql"}`), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "sql_table or sql_query")
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "acme_sales.xlsx")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0o644))

	t.Run("not found", func(t *testing.T) {
		_, err := Locate(source)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("legacy name is a distinct error", func(t *testing.T) {
		legacy := filepath.Join(dir, "acme_sales_template.json")
		require.NoError(t, os.WriteFile(legacy, []byte("{}"), 0o644))
		defer os.Remove(legacy)

		_, err := Locate(source)
		assert.ErrorIs(t, err, ErrLegacyName)
		assert.ErrorContains(t, err, "acme_sales_template.json")
	})

	t.Run("single match", func(t *testing.T) {
		path := filepath.Join(dir, "acme_sales.df-template.yaml")
		require.NoError(t, os.WriteFile(path, []byte("sheet: Data"), 0o644))
		defer os.Remove(path)

		got, err := Locate(source)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("json outranks yaml", func(t *testing.T) {
		a := filepath.Join(dir, "acme_sales.df-template.yaml")
		b := filepath.Join(dir, "acme_sales.df-template.json")
		require.NoError(t, os.WriteFile(a, []byte("sheet: Data"), 0o644))
		require.NoError(t, os.WriteFile(b, []byte("{}"), 0o644))
		defer os.Remove(a)
		defer os.Remove(b)

		got, err := Locate(source)
		require.NoError(t, err)
		assert.Equal(t, b, got)
	})
}

func TestLocateDir(t *testing.T) {
	dir := t.TempDir()
	_, err := LocateDir(dir)
	assert.ErrorIs(t, err, ErrNotFound)

	b := filepath.Join(dir, "beta.df-template.yaml")
	a := filepath.Join(dir, "alpha.df-template.yaml")
	require.NoError(t, os.WriteFile(b, []byte("sheet: x"), 0o644))
	require.NoError(t, os.WriteFile(a, []byte("sheet: x"), 0o644))

	got, err := LocateDir(dir)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}
