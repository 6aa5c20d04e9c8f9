package series

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ProfitSentinel/internal/model"
	"ProfitSentinel/internal/report"
)

// Normalize builds a contiguous monthly series for one metric.
//
// The month range spans every period present anywhere in the report, so a
// metric with no activity at the edges still lines up with the others.
// Months without a reported value are backfilled with zero. When no explicit
// net income rows exist, NetIncome is derived as Income minus Expense. A
// metric with no values at all is an empty report.
func Normalize(parsed report.Parsed, metric model.GroupTag) (model.Series, error) {
	if len(parsed) == 0 {
		return nil, model.NewError(model.CodeEmptyReport, "nothing to normalize", nil)
	}

	values := valuesFor(parsed, metric)
	if len(values) == 0 {
		return nil, model.NewError(model.CodeEmptyReport,
			fmt.Sprintf("report has no %s values", metric), nil)
	}

	first, last, ok := bounds(parsed)
	if !ok {
		return nil, fmt.Errorf("normalize: no periods")
	}

	out := make(model.Series, 0, last-first+1)
	for i := first; i <= last; i++ {
		p := model.PeriodFromIndex(i)
		v, ok := values[p]
		if !ok {
			v = decimal.Zero
		}
		out = append(out, model.SeriesPoint{Period: p, Value: v})
	}
	return out, nil
}

func valuesFor(parsed report.Parsed, metric model.GroupTag) map[model.Period]decimal.Decimal {
	values := make(map[model.Period]decimal.Decimal)
	if metric == model.GroupNetIncome && !parsed.Has(model.GroupNetIncome) {
		for k, v := range parsed {
			switch k.Group {
			case model.GroupIncome:
				values[k.Period] = values[k.Period].Add(v)
			case model.GroupExpense:
				values[k.Period] = values[k.Period].Sub(v)
			}
		}
		return values
	}
	for k, v := range parsed {
		if k.Group == metric {
			values[k.Period] = values[k.Period].Add(v)
		}
	}
	return values
}

func bounds(parsed report.Parsed) (first, last int, ok bool) {
	for p := range parsed.Periods() {
		i := p.Index()
		if !ok || i < first {
			first = i
		}
		if !ok || i > last {
			last = i
		}
		ok = true
	}
	return first, last, ok
}

// Validate checks the contiguity invariant of a series.
func Validate(s model.Series) error {
	for i := 1; i < len(s); i++ {
		if s[i].Period.Index() != s[i-1].Period.Index()+1 {
			return fmt.Errorf("series gap between %s and %s", s[i-1].Period, s[i].Period)
		}
	}
	return nil
}
