package series

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProfitSentinel/internal/model"
	"ProfitSentinel/internal/report"
)

func p(year int, month time.Month) model.Period {
	return model.Period{Year: year, Month: month}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertPoints(t *testing.T, want map[string]string, got model.Series) {
	t.Helper()
	require.Len(t, got, len(want))
	for _, pt := range got {
		w, ok := want[pt.Period.String()]
		require.True(t, ok, "unexpected period %s", pt.Period)
		assert.True(t, d(w).Equal(pt.Value), "%s: want %s, got %s", pt.Period, w, pt.Value)
	}
}

func TestNormalize_BackfillsMissingMonths(t *testing.T) {
	parsed := report.Parsed{
		{Group: model.GroupIncome, Period: p(2024, time.January)}: d("1000"),
		{Group: model.GroupIncome, Period: p(2024, time.March)}:   d("1200"),
	}

	s, err := Normalize(parsed, model.GroupIncome)
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.Equal(t, "2024-01", s[0].Period.String())
	assert.Equal(t, "2024-02", s[1].Period.String())
	assert.Equal(t, "2024-03", s[2].Period.String())
	assertPoints(t, map[string]string{"2024-01": "1000", "2024-02": "0", "2024-03": "1200"}, s)
	assert.NoError(t, Validate(s))
}

func TestNormalize_RangeCoversWholeReport(t *testing.T) {
	parsed := report.Parsed{
		{Group: model.GroupIncome, Period: p(2023, time.December)}: d("50"),
		{Group: model.GroupExpense, Period: p(2023, time.October)}: d("10"),
		{Group: model.GroupExpense, Period: p(2024, time.February)}: d("20"),
	}

	s, err := Normalize(parsed, model.GroupIncome)
	require.NoError(t, err)
	assertPoints(t, map[string]string{
		"2023-10": "0", "2023-11": "0", "2023-12": "50", "2024-01": "0", "2024-02": "0",
	}, s)
	assert.NoError(t, Validate(s))
	for i := 1; i < len(s); i++ {
		assert.True(t, s[i-1].Period.Before(s[i].Period))
	}
}

func TestNormalize_DerivesNetIncome(t *testing.T) {
	parsed := report.Parsed{
		{Group: model.GroupIncome, Period: p(2024, time.January)}:  d("1000"),
		{Group: model.GroupExpense, Period: p(2024, time.January)}: d("400"),
		{Group: model.GroupExpense, Period: p(2024, time.February)}: d("100"),
	}
	s, err := Normalize(parsed, model.GroupNetIncome)
	require.NoError(t, err)
	assertPoints(t, map[string]string{"2024-01": "600", "2024-02": "-100"}, s)

	parsed[report.Key{Group: model.GroupNetIncome, Period: p(2024, time.January)}] = d("590")
	s, err = Normalize(parsed, model.GroupNetIncome)
	require.NoError(t, err)
	assertPoints(t, map[string]string{"2024-01": "590", "2024-02": "0"}, s)
}

func TestNormalize_Idempotent(t *testing.T) {
	parsed := report.Parsed{
		{Group: model.GroupExpense, Period: p(2022, time.November)}: d("3.14"),
		{Group: model.GroupExpense, Period: p(2023, time.April)}:    d("2.71"),
	}
	a, err := Normalize(parsed, model.GroupExpense)
	require.NoError(t, err)
	b, err := Normalize(parsed, model.GroupExpense)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 6)
}

func TestNormalize_Empty(t *testing.T) {
	_, err := Normalize(report.Parsed{}, model.GroupIncome)
	assert.ErrorIs(t, err, model.ErrEmptyReport)
}

func TestNormalize_MetricWithoutValues(t *testing.T) {
	parsed := report.Parsed{
		{Group: model.GroupOther, Period: p(2024, time.January)}:  d("100"),
		{Group: model.GroupOther, Period: p(2024, time.February)}: d("200"),
	}
	for _, metric := range []model.GroupTag{model.GroupIncome, model.GroupExpense, model.GroupNetIncome} {
		_, err := Normalize(parsed, metric)
		assert.ErrorIs(t, err, model.ErrEmptyReport, metric)
	}

	s, err := Normalize(parsed, model.GroupOther)
	require.NoError(t, err)
	assert.Len(t, s, 2)
}

func TestValidate_DetectsGap(t *testing.T) {
	s := model.Series{
		{Period: p(2024, time.January), Value: decimal.Zero},
		{Period: p(2024, time.March), Value: decimal.Zero},
	}
	assert.Error(t, Validate(s))
}
