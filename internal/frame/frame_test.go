package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
	}{
		{"empty is null", "", KindNull},
		{"whitespace is null", "   ", KindNull},
		{"plain number", "42.5", KindNumber},
		{"negative number", "-3", KindNumber},
		{"text stays string", "Widget A", KindString},
		{"thousands separator stays string", "1,234", KindString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, Infer(tt.raw).Kind())
		})
	}
}

func TestAsTimeMonthLabels(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-01-15", "2024-01-15"},
		{"2024-jan", "2024-01-01"},
		{"Jan-2024", "2024-01-01"},
		{"2024-01", "2024-01-01"},
	}
	for _, tt := range tests {
		got, ok := Str(tt.raw).AsTime()
		require.True(t, ok, "parse %q", tt.raw)
		assert.Equal(t, tt.want, got.Format("2006-01-02"))
	}

	_, ok := Str("not a date").AsTime()
	assert.False(t, ok)
}

func TestNewShapeAndPadding(t *testing.T) {
	f := New([]string{"a", "b", "c"}, [][]string{
		{"1", "x"},
		{"2", "y", "z", "extra"},
	})
	r, c := f.Shape()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)

	col, ok := f.Column("c")
	require.True(t, ok)
	assert.True(t, col.Cells[0].IsNull())
	assert.Equal(t, "z", col.Cells[1].String())
}

func TestMeltShape(t *testing.T) {
	f := New([]string{"sku", "2024-jan", "2024-feb"}, [][]string{
		{"A", "10", "20"},
		{"B", "30", ""},
	})
	m := f.Melt([]string{"sku"}, "report_date", "sales_amount")
	r, c := m.Shape()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, []string{"sku", "report_date", "sales_amount"}, m.Columns())

	// Value columns are visited in order, one row block per column.
	period, _ := m.Column("report_date")
	assert.Equal(t, "2024-jan", period.Cells[0].String())
	assert.Equal(t, "2024-jan", period.Cells[1].String())
	assert.Equal(t, "2024-feb", period.Cells[2].String())

	amount, _ := m.Column("sales_amount")
	assert.True(t, amount.Cells[3].IsNull())
}

func TestDropEmptyRowsAndColumns(t *testing.T) {
	f := New([]string{"a", "b", "empty"}, [][]string{
		{"1", "x", ""},
		{"", "", ""},
		{"2", "", ""},
	})
	f.DropEmptyRows()
	assert.Equal(t, 2, f.Rows())

	f.DropEmptyColumns()
	assert.Equal(t, []string{"a", "b"}, f.Columns())
}

func TestDropSparseColumns(t *testing.T) {
	f := New([]string{"dense", "sparse"}, [][]string{
		{"1", ""},
		{"2", ""},
		{"3", "x"},
		{"4", ""},
	})
	f.DropSparseColumns(0.5)
	assert.Equal(t, []string{"dense"}, f.Columns())
}

func TestDropSparseColumnsZeroRows(t *testing.T) {
	f := New([]string{"a", "b"}, nil)
	f.DropSparseColumns(0.9)
	assert.Equal(t, []string{"a", "b"}, f.Columns())
}

func TestTrimAndStripThousands(t *testing.T) {
	f := New([]string{"v"}, [][]string{
		{"  padded  "},
		{"1,234 567"},
	})
	f.TrimStrings()
	f.StripThousands()
	col, _ := f.Column("v")
	assert.Equal(t, "padded", col.Cells[0].String())
	assert.Equal(t, "1234567", col.Cells[1].String())

	n, ok := col.Cells[1].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 1234567.0, n)
}

func TestCoerceDateCountsFailuresAndDropsNulls(t *testing.T) {
	f := New([]string{"report_date"}, [][]string{
		{"2024-01-02"},
		{"garbage"},
		{""},
		{"2024-02-03"},
	})
	failures := f.CoerceDate("report_date")
	assert.Equal(t, 1, failures)

	f.DropNullRows("report_date")
	assert.Equal(t, 2, f.Rows())

	col, _ := f.Column("report_date")
	ts, ok := col.Cells[0].Timestamp()
	require.True(t, ok)
	assert.Equal(t, time.January, ts.Month())
}

func TestCoerceNumberFillNulls(t *testing.T) {
	f := New([]string{"sales_amount"}, [][]string{
		{"10.5"},
		{"oops"},
		{""},
	})
	failures := f.CoerceNumber("sales_amount")
	assert.Equal(t, 1, failures)

	f.FillNulls("sales_amount", Num(0))
	col, _ := f.Column("sales_amount")
	for _, v := range col.Cells {
		assert.False(t, v.IsNull())
	}
	n, _ := col.Cells[2].Float()
	assert.Equal(t, 0.0, n)
}

func TestGroupSumIgnoresNullsButKeepsAllNullGroups(t *testing.T) {
	f := FromValues([]string{"sku", "amount"}, [][]Value{
		{Str("A"), Num(1)},
		{Str("A"), Null()},
		{Str("B"), Null()},
		{Str("B"), Null()},
		{Str("A"), Num(2)},
	})
	g := f.GroupSum([]string{"sku"})
	require.Equal(t, 2, g.Rows())
	assert.Equal(t, []string{"sku", "amount"}, g.Columns())

	sku, _ := g.Column("sku")
	amount, _ := g.Column("amount")

	assert.Equal(t, "A", sku.Cells[0].String())
	a, ok := amount.Cells[0].Float()
	require.True(t, ok)
	assert.Equal(t, 3.0, a)

	// All-null group sums to null, not zero.
	assert.Equal(t, "B", sku.Cells[1].String())
	assert.True(t, amount.Cells[1].IsNull())
}

func TestGroupSumSortsGroupKeys(t *testing.T) {
	f := FromValues([]string{"provider_id", "sku", "amount"}, [][]Value{
		{Str("zenith"), Str("B"), Num(1)},
		{Str("acme"), Str("B"), Num(2)},
		{Str("acme"), Str("A"), Num(3)},
		{Str("zenith"), Str("B"), Num(4)},
	})
	g := f.GroupSum([]string{"provider_id", "sku"})
	require.Equal(t, 3, g.Rows())

	provider, _ := g.Column("provider_id")
	sku, _ := g.Column("sku")
	var got []string
	for r := 0; r < g.Rows(); r++ {
		got = append(got, provider.Cells[r].String()+"/"+sku.Cells[r].String())
	}
	assert.Equal(t, []string{"acme/A", "acme/B", "zenith/B"}, got)
}

func TestGroupSumDropsNonNumericValueColumns(t *testing.T) {
	f := FromValues([]string{"sku", "note", "amount"}, [][]Value{
		{Str("A"), Str("hello"), Num(1)},
		{Str("A"), Str("world"), Num(2)},
	})
	g := f.GroupSum([]string{"sku"})
	assert.Equal(t, []string{"sku", "amount"}, g.Columns())
}

func TestDedupeKeepsFirst(t *testing.T) {
	f := FromValues([]string{"sku", "amount"}, [][]Value{
		{Str("A"), Num(1)},
		{Str("B"), Num(2)},
		{Str("A"), Num(99)},
	})
	dropped := f.Dedupe([]string{"sku"})
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 2, f.Rows())

	amount, _ := f.Column("amount")
	first, _ := amount.Cells[0].Float()
	assert.Equal(t, 1.0, first)
}

func TestAppendUnionsColumns(t *testing.T) {
	a := New([]string{"x", "y"}, [][]string{{"1", "2"}})
	b := New([]string{"y", "z"}, [][]string{{"3", "4"}})
	a.Append(b)

	assert.Equal(t, 2, a.Rows())
	assert.Equal(t, []string{"x", "y", "z"}, a.Columns())

	z, _ := a.Column("z")
	assert.True(t, z.Cells[0].IsNull())
	assert.Equal(t, "4", z.Cells[1].String())
}

func TestColumnStats(t *testing.T) {
	years := New([]string{"y"}, [][]string{{"2021"}, {"2022"}, {"2023"}})
	col, _ := years.Column("y")
	assert.True(t, col.YearLike())
	assert.True(t, col.IsNumeric())

	mixed := New([]string{"m"}, [][]string{{"1"}, {"two"}, {"3"}, {""}})
	mcol, _ := mixed.Column("m")
	assert.False(t, mcol.IsNumeric())
	assert.InDelta(t, 0.5, mcol.NumericRatio(), 1e-9)
	assert.InDelta(t, 0.75, mcol.NonNullRatio(), 1e-9)
}

func TestRenameSelectAddConst(t *testing.T) {
	f := New([]string{"Product", "Qty"}, [][]string{{"A", "1"}})
	f.Rename(map[string]string{"Product": "article_sku"})
	f.Select([]string{"article_sku", "missing"})
	assert.Equal(t, []string{"article_sku"}, f.Columns())

	f.AddConst("provider_id", Str("acme"))
	p, _ := f.Column("provider_id")
	assert.Equal(t, "acme", p.Cells[0].String())
}
