package report

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProfitSentinel/internal/model"
)

func key(g model.GroupTag, period string) Key {
	p, err := model.ParsePeriod(period)
	if err != nil {
		panic(err)
	}
	return Key{Group: g, Period: p}
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		null bool
		want string
	}{
		{"1,234.50", false, "1234.50"},
		{" 12 ", false, "12"},
		{"", false, "0"},
		{"999", true, "0"},
		{"(50.25)", false, "-50.25"},
		{"$1,000", false, "1000"},
		{"-7.10", false, "-7.10"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.raw, tt.null)
		require.NoError(t, err, tt.raw)
		assertAmount(t, tt.want, got)
	}

	_, err := ParseAmount("abc", false)
	assert.Error(t, err)
}

func TestParseAmount_RejectsNonFinite(t *testing.T) {
	for _, raw := range []string{"1e400", "-1e400", "(1e400)"} {
		_, err := ParseAmount(raw, false)
		require.Error(t, err, raw)
		assert.Contains(t, err.Error(), "out of range")
	}

	got, err := ParseAmount("1e300", false)
	require.NoError(t, err)
	assertAmount(t, "1e300", got)

	log, hook := test.NewNullLogger()
	tree := &model.Section{Group: model.GroupIncome, Children: []model.ReportNode{
		&model.Leaf{Account: "Sales", Values: []model.PeriodValue{
			{Label: "2024-01", Raw: "100"},
			{Label: "2024-02", Raw: "1e400"},
		}},
	}}
	res, err := NewParser(log).Parse(tree)
	require.NoError(t, err)
	assert.Len(t, res.Values, 1)
	assert.Equal(t, 1, res.Warnings)
	require.NotNil(t, hook.LastEntry())
}

func TestParse_NestedSectionsPropagateGroup(t *testing.T) {
	tree := &model.Section{Children: []model.ReportNode{
		&model.Section{Group: model.GroupIncome, Children: []model.ReportNode{
			&model.Leaf{Account: "Sales", Values: []model.PeriodValue{
				{Label: "2024-01", Raw: "1000"},
			}},
			&model.Section{Title: "Services", Children: []model.ReportNode{
				&model.Leaf{Account: "Consulting", Values: []model.PeriodValue{
					{Label: "2024-01", Raw: "250"},
					{Label: "2024-03", Raw: "1,200"},
				}},
			}},
		}},
		&model.Section{Group: model.GroupExpense, Children: []model.ReportNode{
			&model.Leaf{Account: "Rent", Values: []model.PeriodValue{{Label: "2024-02", Raw: "300"}}},
		}},
	}}

	parsed, err := Parse(tree)
	require.NoError(t, err)
	require.Len(t, parsed, 3)
	assertAmount(t, "1250", parsed[key(model.GroupIncome, "2024-01")])
	assertAmount(t, "1200", parsed[key(model.GroupIncome, "2024-03")])
	assertAmount(t, "300", parsed[key(model.GroupExpense, "2024-02")])
}

func TestParse_MalformedLeavesAreWarnings(t *testing.T) {
	log, hook := test.NewNullLogger()
	tree := &model.Section{Group: model.GroupIncome, Children: []model.ReportNode{
		&model.Leaf{Account: "Good", Values: []model.PeriodValue{{Label: "2024-01", Raw: "10"}}},
		&model.Leaf{Account: "Bad number", Values: []model.PeriodValue{{Label: "2024-01", Raw: "ten"}}},
		&model.Leaf{Account: "No label", Values: []model.PeriodValue{{Label: "", Raw: "5"}}},
		&model.Leaf{Account: "No amounts"},
	}}

	res, err := NewParser(log).Parse(tree)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Leaves)
	assert.Equal(t, 3, res.Warnings)
	assertAmount(t, "10", res.Values[key(model.GroupIncome, "2024-01")])

	require.Len(t, hook.AllEntries(), 3)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "No amounts", hook.LastEntry().Data["account"])
}

func TestParse_NoUsableLeavesIsEmptyReport(t *testing.T) {
	tree := &model.Section{Group: model.GroupIncome, Children: []model.ReportNode{
		&model.Leaf{Account: "Bad", Values: []model.PeriodValue{{Label: "2024-01", Raw: "x"}}},
	}}
	_, err := Parse(tree)
	assert.ErrorIs(t, err, model.ErrEmptyReport)

	_, err = Parse(&model.Section{})
	assert.ErrorIs(t, err, model.ErrEmptyReport)

	_, err = Parse(nil)
	assert.ErrorIs(t, err, model.ErrEmptyReport)
}

func TestParse_NullValuesCountAsZero(t *testing.T) {
	tree := &model.Leaf{Account: "Sales", Values: []model.PeriodValue{{Label: "2024-05", Null: true}}}
	parsed, err := Parse(tree)
	require.NoError(t, err)
	v, ok := parsed[key(model.GroupOther, "2024-05")]
	require.True(t, ok)
	assert.True(t, v.IsZero())
}

func TestDecodeQuickBooks_MonthlyReport(t *testing.T) {
	payload, err := os.ReadFile("testdata/pnl_monthly.json")
	require.NoError(t, err)

	tree, err := DecodeQuickBooks(payload, "")
	require.NoError(t, err)

	res, err := (&Parser{}).Parse(tree)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Leaves)
	assert.Equal(t, 2, res.Warnings)

	v := res.Values
	assertAmount(t, "1300", v[key(model.GroupIncome, "2024-01")])
	assertAmount(t, "500", v[key(model.GroupIncome, "2024-02")])
	assertAmount(t, "300", v[key(model.GroupIncome, "2024-04")])
	assertAmount(t, "400", v[key(model.GroupExpense, "2024-01")])
	assertAmount(t, "-50", v[key(model.GroupExpense, "2024-04")])
	assertAmount(t, "900", v[key(model.GroupNetIncome, "2024-01")])
	assertAmount(t, "350", v[key(model.GroupNetIncome, "2024-04")])

	// The Total column never becomes a period.
	periods := v.Periods()
	assert.Len(t, periods, 3)
	_, hasMarch := periods[model.Period{Year: 2024, Month: time.March}]
	assert.False(t, hasMarch)
}

func TestDecodeQuickBooks_FlatRows(t *testing.T) {
	payload := []byte(`{"Rows":{"Row":[
		{"ColData":[{"value":"2024-01-31"},{"value":"100.5"}]},
		{"ColData":[{"value":"2024-02-29"},{"value":"200"}]},
		{"Summary":{"ColData":[{"value":"Total"},{"value":"300.5"}]}}
	]}}`)

	tests := []struct {
		name  string
		group model.GroupTag
		want  model.GroupTag
	}{
		{"untagged", "", model.GroupOther},
		{"income", model.GroupIncome, model.GroupIncome},
		{"net income", model.GroupNetIncome, model.GroupNetIncome},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := DecodeQuickBooks(payload, tt.group)
			require.NoError(t, err)

			parsed, err := Parse(tree)
			require.NoError(t, err)
			require.Len(t, parsed, 2)
			assertAmount(t, "100.5", parsed[key(tt.want, "2024-01")])
			assertAmount(t, "200", parsed[key(tt.want, "2024-02")])
		})
	}
}

func TestDecodeQuickBooks_MonthlyIgnoresFlatGroup(t *testing.T) {
	payload, err := os.ReadFile("testdata/pnl_monthly.json")
	require.NoError(t, err)

	tree, err := DecodeQuickBooks(payload, model.GroupOther)
	require.NoError(t, err)
	parsed, err := Parse(tree)
	require.NoError(t, err)
	assert.False(t, parsed.Has(model.GroupOther))
	assert.True(t, parsed.Has(model.GroupExpense))
}

func TestDecodeQuickBooks_Fault(t *testing.T) {
	payload := []byte(`{"Fault":{"type":"ValidationFault","Error":[{"Message":"Invalid date","Detail":"start_date","code":"2010"}]}}`)
	_, err := DecodeQuickBooks(payload, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2010")
	assert.ErrorIs(t, err, model.ErrUpstream)

	_, err = DecodeQuickBooks([]byte(`not json`), "")
	assert.ErrorIs(t, err, model.ErrUpstream)
}
