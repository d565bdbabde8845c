package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabcli/internal/frame"
	"tabcli/internal/template"
)

func TestTransformUnpivotAndCoerce(t *testing.T) {
	f := frame.New(
		[]string{"article_sku", "2024-jan", "2024-feb"},
		[][]string{
			{"A", "10", "20"},
			{"B", "x", "40"},
		})
	tpl := template.New()
	tpl.Unpivot = true
	tpl.ProviderName = "acme"
	tpl.ColumnMappings = map[string]string{"Product": "article_sku"}

	out, m := Transform(f, tpl, nil)

	// 2 rows x 2 period columns melt into 4, one fails date... the period
	// labels are values of report_date, amounts of sales_amount.
	assert.Equal(t, Shape{2, 3}, m.UnpivotBefore)
	assert.Equal(t, Shape{4, 3}, m.UnpivotAfter)
	assert.Equal(t, 0, m.DateParseFailures)
	assert.Equal(t, 1, m.NumericParseFailures)

	provider, ok := out.Column(ProviderColumn)
	require.True(t, ok)
	assert.Equal(t, "acme", provider.Cells[0].String())

	// The failed numeric parse is filled with zero.
	amount, _ := out.Column("sales_amount")
	for _, v := range amount.Cells {
		assert.False(t, v.IsNull())
	}

	date, _ := out.Column("report_date")
	ts, ok := date.Cells[0].Timestamp()
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", ts.Format("2006-01-02"))
}

func TestTransformUnpivotWithoutIdsSkips(t *testing.T) {
	f := frame.New([]string{"a", "b"}, [][]string{{"1", "2"}})
	tpl := template.New()
	tpl.Unpivot = true
	tpl.ColumnMappings = map[string]string{"X": "not_present"}

	out, m := Transform(f, tpl, nil)
	assert.Equal(t, m.UnpivotBefore, m.UnpivotAfter)
	assert.True(t, out.HasColumn("a"))
	assert.True(t, out.HasColumn("b"))
}

func TestTransformProviderFallsBackToSourceFile(t *testing.T) {
	f := frame.New([]string{"a"}, [][]string{{"1"}})
	tpl := template.New()
	tpl.SourceFile = "acme_2024.xlsx"

	out, _ := Transform(f, tpl, nil)
	provider, _ := out.Column(ProviderColumn)
	assert.Equal(t, "acme_2024.xlsx", provider.Cells[0].String())
}

func TestTransformCombineOnSumsIgnoringNulls(t *testing.T) {
	f := frame.New(
		[]string{"article_sku", "sales_amount"},
		[][]string{
			{"A", "1"},
			{"A", "2"},
			{"B", "3"},
		})
	tpl := template.New()
	tpl.ProviderName = "acme"
	tpl.CombineOn = []string{"article_sku"}

	out, _ := Transform(f, tpl, nil)
	assert.Equal(t, 2, out.Rows())
	assert.Equal(t, []string{"article_sku", ProviderColumn, "sales_amount"}, out.Columns())

	amount, _ := out.Column("sales_amount")
	n, _ := amount.Cells[0].Float()
	assert.Equal(t, 3.0, n)
}

func TestTransformCombineOnMissingKeysSkips(t *testing.T) {
	f := frame.New([]string{"a"}, [][]string{{"1"}, {"2"}})
	tpl := template.New()
	tpl.CombineOn = []string{"nope"}

	out, _ := Transform(f, tpl, nil)
	assert.Equal(t, 2, out.Rows())
}

func TestTransformDedupe(t *testing.T) {
	f := frame.New(
		[]string{"article_sku", "v"},
		[][]string{{"A", "1"}, {"A", "2"}, {"B", "3"}})
	tpl := template.New()
	tpl.DedupeOn = []string{"article_sku"}

	out, m := Transform(f, tpl, nil)
	assert.Equal(t, 1, m.DedupeDropped)
	assert.Equal(t, 2, out.Rows())
}

func TestTransformCleanupFlags(t *testing.T) {
	threshold := 0.6
	f := frame.New(
		[]string{"name", "sparse", "sales_amount"},
		[][]string{
			{"  padded  ", "", "1 234"},
			{"x", "", "2"},
			{"", "", ""},
		})
	tpl := template.New()
	tpl.DropEmptyRows = true
	tpl.DropNullColumnsThreshold = &threshold
	tpl.StripThousands = true

	out, _ := Transform(f, tpl, nil)
	// provider_id is added before pruning, so the all-null row survives as
	// a row with only provenance set.
	assert.False(t, out.HasColumn("sparse"))

	name, _ := out.Column("name")
	assert.Equal(t, "padded", name.Cells[0].String())

	amount, _ := out.Column("sales_amount")
	n, ok := amount.Cells[0].Float()
	require.True(t, ok)
	assert.Equal(t, 1234.0, n)
}

func TestValidateLevels(t *testing.T) {
	tpl := template.New()
	tpl.RequiredFields = []string{"article_sku", "sales_amount"}

	t.Run("off skips everything", func(t *testing.T) {
		f := frame.New([]string{"other"}, [][]string{{"x"}})
		assert.NoError(t, Validate(f, tpl, ValidationOff))
	})

	t.Run("contract flags missing required columns", func(t *testing.T) {
		f := frame.New([]string{"article_sku"}, [][]string{{"x"}})
		err := Validate(f, tpl, ValidationContract)
		require.Error(t, err)
		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, ErrKindContract, verr.Kind)
		assert.Contains(t, verr.FailureDetail(), "sales_amount: missing required column")
	})

	t.Run("coerce does not require fields", func(t *testing.T) {
		f := frame.New([]string{"article_sku"}, [][]string{{"x"}})
		assert.NoError(t, Validate(f, tpl, ValidationCoerce))
	})
}

func TestValidateFieldTypeCoercion(t *testing.T) {
	tpl := template.New()
	tpl.RequiredFields = []string{"qty"}
	tpl.FieldTypes = map[string]string{"qty": "int"}

	f := frame.New([]string{"qty"}, [][]string{{"1"}, {"nope"}})
	err := Validate(f, tpl, ValidationContract)
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.FailureDetail(), "qty: 1 integer parse failures")
}

func TestValidateStructuralContract(t *testing.T) {
	f := frame.New(
		[]string{"sales_amount", "extra_col"},
		[][]string{{"not-a-number", "anything"}})
	err := Validate(f, template.New(), ValidationCoerce)
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.FailureDetail(), "sales_amount")

	// Extra columns alone never fail.
	ok := frame.New([]string{"extra_col"}, [][]string{{"x"}})
	assert.NoError(t, Validate(ok, template.New(), ValidationCoerce))
}

func TestBuildReportLines(t *testing.T) {
	tpl := template.New()
	tpl.Unpivot = true
	tpl.RequiredFields = []string{"article_sku"}

	clean := frame.New([]string{"article_sku", "sales_amount"}, [][]string{{"A", "1"}})
	m := Metrics{
		UnpivotBefore:        Shape{10, 5},
		UnpivotAfter:         Shape{40, 3},
		DedupeDropped:        2,
		DateParseFailures:    1,
		NumericParseFailures: 3,
	}
	report := BuildReport("/data/input/acme.xlsx", 10, 5, clean, m,
		[]string{"report_date"}, []string{"junk"}, ValidationContract, tpl)

	lines := strings.Split(report, "\n")
	assert.Equal(t, "Source: acme.xlsx", lines[0])
	assert.Equal(t, "Validation level: CONTRACT", lines[1])
	assert.Equal(t, "Rows before/after: 10 -> 1", lines[2])
	assert.Equal(t, "Columns before/after: 5 -> 2", lines[3])
	assert.Equal(t, "Unpivot shape: rows 10->40, cols 5->3", lines[4])
	assert.Equal(t, "Dedupe dropped rows: 2", lines[5])
	assert.Equal(t, "Date parse failures: 1", lines[6])
	assert.Equal(t, "Numeric parse failures: 3", lines[7])
	assert.Equal(t, "Missing vs template: report_date", lines[8])
	assert.Equal(t, "Extra vs template: junk", lines[9])
	assert.Equal(t, "Required fields: article_sku", lines[10])
}

func TestWarnOnSchemaDiff(t *testing.T) {
	tpl := template.New()
	tpl.ColumnMappings = map[string]string{"Prod": "article_sku", "Amt": "sales_amount"}

	f := frame.New([]string{"article_sku", "junk"}, [][]string{{"A", "x"}})
	missing, extra := WarnOnSchemaDiff(f, tpl, "acme.xlsx", nil)
	assert.Equal(t, []string{"sales_amount"}, missing)
	assert.Equal(t, []string{"junk"}, extra)

	// No expectations means empty diffs, not nil panic.
	missing, extra = WarnOnSchemaDiff(f, template.New(), "", nil)
	assert.Empty(t, missing)
	assert.Empty(t, extra)
}
