package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ProfitSentinel/internal/forecast"
	"ProfitSentinel/internal/merge"
	"ProfitSentinel/internal/model"
	"ProfitSentinel/internal/recorder"
	"ProfitSentinel/internal/report"
	"ProfitSentinel/internal/series"
)

// Source produces parsed report values for a date window. Rows the report
// does not group are tagged with the requested metric.
// *collector.Collector implements it.
type Source interface {
	Collect(ctx context.Context, start, end time.Time, metric model.GroupTag) (*report.Result, error)
}

// Request selects what to forecast. Zero dates fall back to the default
// window: January 1 of the previous year through today.
type Request struct {
	Metric  model.GroupTag
	Horizon int
	Start   time.Time
	End     time.Time
}

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Metric   model.GroupTag
	Actual   model.Series
	Forecast []model.ForecastPoint
	Records  []model.Record
	Warnings int
}

// Pipeline wires fetch, parse, normalize, forecast and merge together.
type Pipeline struct {
	Source     Source
	Forecaster *forecast.Forecaster
	Recorder   recorder.Recorder
	Log        *logrus.Logger
	Now        func() time.Time
}

// New creates a Pipeline. A nil recorder disables run history.
func New(src Source, f *forecast.Forecaster, rec recorder.Recorder, log *logrus.Logger) *Pipeline {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Pipeline{Source: src, Forecaster: f, Recorder: rec, Log: log, Now: time.Now}
}

// Run executes the pipeline once. Fatal errors keep their model error kind.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Horizon < 1 {
		return nil, fmt.Errorf("horizon must be at least 1, got %d", req.Horizon)
	}
	if req.Metric == "" {
		req.Metric = model.GroupNetIncome
	}
	start, end := p.window(req)
	if end.Before(start) {
		return nil, fmt.Errorf("report window ends (%s) before it starts (%s)",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	parsed, err := p.Source.Collect(ctx, start, end, req.Metric)
	if err != nil {
		return nil, err
	}
	actual, err := series.Normalize(parsed.Values, req.Metric)
	if err != nil {
		return nil, err
	}
	points, err := p.Forecaster.Forecast(actual, req.Horizon)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Metric:   req.Metric,
		Actual:   actual,
		Forecast: points,
		Records:  merge.Merge(actual, points),
		Warnings: parsed.Warnings,
	}

	run := &recorder.ForecastRun{
		Metric:   req.Metric,
		Horizon:  req.Horizon,
		Start:    actual[0].Period,
		End:      actual.Last(),
		Warnings: parsed.Warnings,
		Records:  res.Records,
	}
	if err := p.Recorder.RecordRun(run); err != nil {
		p.Log.WithError(err).Error("record forecast run")
	}
	res.RunID = run.ID

	p.Log.WithFields(logrus.Fields{
		"run":     run.ID,
		"metric":  req.Metric,
		"history": len(actual),
		"horizon": req.Horizon,
	}).Info("forecast completed")
	return res, nil
}

func (p *Pipeline) window(req Request) (time.Time, time.Time) {
	now := p.Now()
	start, end := req.Start, req.End
	if end.IsZero() {
		end = now
	}
	if start.IsZero() {
		start = time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location())
	}
	return start, end
}
