package forecast

import (
	"fmt"
	"math"

	"ProfitSentinel/internal/model"
)

// DefaultLevel is the width of the reported prediction interval.
const DefaultLevel = 0.80

// DefaultSeasonLength is one year of monthly observations.
const DefaultSeasonLength = 12

// Options tunes the forecaster.
type Options struct {
	Level        float64
	SeasonLength int
}

// Forecaster produces monthly forecasts with prediction intervals.
type Forecaster struct {
	opts Options
}

// NewForecaster creates a Forecaster, filling unset options with defaults.
func NewForecaster(opts Options) *Forecaster {
	if opts.Level <= 0 || opts.Level >= 1 {
		opts.Level = DefaultLevel
	}
	if opts.SeasonLength <= 0 {
		opts.SeasonLength = DefaultSeasonLength
	}
	return &Forecaster{opts: opts}
}

// Forecast uses the default options.
func Forecast(series model.Series, horizon int) ([]model.ForecastPoint, error) {
	return NewForecaster(Options{}).Forecast(series, horizon)
}

// Forecast fits the full history and returns horizon points starting the
// month after the last observation. Values are not clamped.
func (f *Forecaster) Forecast(series model.Series, horizon int) ([]model.ForecastPoint, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	if len(series) < 2 {
		return nil, model.NewError(model.CodeInsufficientData,
			fmt.Sprintf("need at least 2 periods, got %d", len(series)), nil)
	}

	// Season slots are aligned to calendar months.
	phase := (int(series[0].Period.Month) - 1) % f.opts.SeasonLength
	m, err := Fit(series.Floats(), f.opts.SeasonLength, phase)
	if err != nil {
		return nil, model.NewError(model.CodeInsufficientData, "fit failed", err)
	}

	z := zScore(f.opts.Level)
	out := make([]model.ForecastPoint, horizon)
	period := series.Last()
	for h := 0; h < horizon; h++ {
		period = period.Next()
		est, se := m.Predict(len(series) + h)
		pt := model.ForecastPoint{
			Period:   period,
			Estimate: est,
			Lower:    est - z*se,
			Upper:    est + z*se,
		}
		if !finite(pt.Estimate, pt.Lower, pt.Upper) {
			return nil, model.NewError(model.CodeInsufficientData,
				fmt.Sprintf("forecast for %s is out of range", period), nil)
		}
		out[h] = pt
	}
	return out, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}
