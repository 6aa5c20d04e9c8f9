package merge

import (
	"sort"

	"github.com/shopspring/decimal"

	"ProfitSentinel/internal/model"
)

// Merge outer-joins actuals with forecast points on period. Records come
// out in ascending period order with money rounded to cents. A forecast
// point on a period that also has an actual fills the forecast fields of
// that same record.
func Merge(actual model.Series, forecast []model.ForecastPoint) []model.Record {
	byPeriod := make(map[model.Period]*model.Record, len(actual)+len(forecast))
	var order []model.Period

	get := func(p model.Period) *model.Record {
		r, ok := byPeriod[p]
		if !ok {
			r = &model.Record{Period: p.String()}
			byPeriod[p] = r
			order = append(order, p)
		}
		return r
	}

	for _, pt := range actual {
		r := get(pt.Period)
		v := cents(pt.Value)
		r.Actual = &v
	}
	for _, fp := range forecast {
		r := get(fp.Period)
		est := round(fp.Estimate)
		lo := round(fp.Lower)
		hi := round(fp.Upper)
		r.Forecast, r.ForecastLower, r.ForecastUpper = &est, &lo, &hi
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	out := make([]model.Record, 0, len(order))
	for _, p := range order {
		out = append(out, *byPeriod[p])
	}
	return out
}

func cents(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func round(f float64) float64 {
	return cents(decimal.NewFromFloat(f))
}
