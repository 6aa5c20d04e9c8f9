package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period is a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod accepts "2024-01", "2024-01-31" and "Jan 2024".
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01", "2006-01-02", "Jan 2006", "January 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return PeriodOf(t), nil
		}
	}
	return Period{}, fmt.Errorf("invalid period %q", s)
}

// String formats the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Index returns a monotonically increasing month ordinal.
func (p Period) Index() int {
	return p.Year*12 + int(p.Month) - 1
}

// PeriodFromIndex is the inverse of Index.
func PeriodFromIndex(i int) Period {
	return Period{Year: i / 12, Month: time.Month(i%12 + 1)}
}

// Next returns the following month.
func (p Period) Next() Period {
	return PeriodFromIndex(p.Index() + 1)
}

// Before reports whether p is earlier than q.
func (p Period) Before(q Period) bool {
	return p.Index() < q.Index()
}

// Start returns the first instant of the month in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// SeriesPoint is one month of a normalized series.
type SeriesPoint struct {
	Period Period
	Value  decimal.Decimal
}

// Series is contiguous and strictly increasing by period.
type Series []SeriesPoint

// Last returns the final period. It panics on an empty series.
func (s Series) Last() Period {
	return s[len(s)-1].Period
}

// Floats returns the values as float64 for numeric fitting.
func (s Series) Floats() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value.InexactFloat64()
	}
	return out
}

// ForecastPoint is a forecast for a single future month.
type ForecastPoint struct {
	Period   Period
	Estimate float64
	Lower    float64
	Upper    float64
}

// Record is one row of the merged actual/forecast table.
type Record struct {
	Period        string   `json:"period"`
	Actual        *float64 `json:"actual"`
	Forecast      *float64 `json:"forecast"`
	ForecastLower *float64 `json:"forecast_lower"`
	ForecastUpper *float64 `json:"forecast_upper"`
}
