package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProfitSentinel/internal/collector"
	"ProfitSentinel/internal/credential"
	"ProfitSentinel/internal/forecast"
	"ProfitSentinel/internal/model"
	"ProfitSentinel/internal/recorder"
	"ProfitSentinel/internal/report"
)

type stubSource struct {
	values report.Parsed
	err    error

	start, end time.Time
	metric     model.GroupTag
}

func (s *stubSource) Collect(_ context.Context, start, end time.Time, metric model.GroupTag) (*report.Result, error) {
	s.start, s.end, s.metric = start, end, metric
	if s.err != nil {
		return nil, s.err
	}
	return &report.Result{Values: s.values, Leaves: len(s.values), Warnings: 1}, nil
}

type memRecorder struct {
	runs []*recorder.ForecastRun
	err  error
}

func (m *memRecorder) RecordRun(run *recorder.ForecastRun) error {
	if m.err != nil {
		return m.err
	}
	run.ID = "run-1"
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRecorder) Close() error { return nil }

func key(g model.GroupTag, y int, mo time.Month) report.Key {
	return report.Key{Group: g, Period: model.Period{Year: y, Month: mo}}
}

func newPipeline(src Source, rec recorder.Recorder) *Pipeline {
	log, _ := test.NewNullLogger()
	p := New(src, forecast.NewForecaster(forecast.Options{}), rec, log)
	p.Now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestRun_EndToEnd(t *testing.T) {
	src := &stubSource{values: report.Parsed{
		key(model.GroupIncome, 2024, time.January): decimal.NewFromInt(1000),
		key(model.GroupIncome, 2024, time.March):   decimal.NewFromInt(1200),
		key(model.GroupExpense, 2024, time.April):  decimal.NewFromInt(300),
	}}
	rec := &memRecorder{}
	p := newPipeline(src, rec)

	res, err := p.Run(context.Background(), Request{Metric: model.GroupIncome, Horizon: 2})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), src.start)
	assert.Equal(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), src.end)

	require.Len(t, res.Actual, 4)
	assert.True(t, res.Actual[1].Value.IsZero())
	require.Len(t, res.Records, 6)
	assert.Equal(t, "2024-01", res.Records[0].Period)
	assert.Equal(t, "2024-06", res.Records[5].Period)
	assert.Nil(t, res.Records[3].Forecast)
	assert.Nil(t, res.Records[4].Actual)
	assert.NotNil(t, res.Records[4].Forecast)

	assert.Equal(t, "run-1", res.RunID)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, "2024-04", rec.runs[0].End.String())
	assert.Equal(t, 1, rec.runs[0].Warnings)
}

func TestRun_DefaultsToNetIncome(t *testing.T) {
	src := &stubSource{values: report.Parsed{
		key(model.GroupIncome, 2024, time.January):  decimal.NewFromInt(100),
		key(model.GroupExpense, 2024, time.January): decimal.NewFromInt(40),
		key(model.GroupIncome, 2024, time.February): decimal.NewFromInt(100),
	}}
	res, err := newPipeline(src, nil).Run(context.Background(), Request{Horizon: 1})
	require.NoError(t, err)
	assert.Equal(t, model.GroupNetIncome, res.Metric)
	assert.Equal(t, model.GroupNetIncome, src.metric)
	assert.Equal(t, "60", res.Actual[0].Value.String())
}

func TestRun_FlatReportUsesRequestedMetric(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Rows":{"Row":[
		{"ColData":[{"value":"2024-01-31"},{"value":"100"}]},
		{"ColData":[{"value":"2024-02-29"},{"value":"200"}]},
		{"ColData":[{"value":"2024-03-31"},{"value":"300"}]}
	]}}`), 0o600))

	for _, metric := range []model.GroupTag{model.GroupIncome, model.GroupNetIncome} {
		t.Run(string(metric), func(t *testing.T) {
			log, _ := test.NewNullLogger()
			src := collector.NewCollector(&collector.FileFetcher{Path: path}, credential.StaticToken(""), "", 0, log)

			res, err := newPipeline(src, nil).Run(context.Background(), Request{Metric: metric, Horizon: 1})
			require.NoError(t, err)
			require.Len(t, res.Actual, 3)
			assert.Equal(t, "100", res.Actual[0].Value.String())
			assert.Equal(t, "200", res.Actual[1].Value.String())
			assert.Equal(t, "300", res.Actual[2].Value.String())
			require.Len(t, res.Records, 4)
			assert.NotNil(t, res.Records[3].Forecast)
		})
	}
}

func TestRun_MetricWithoutValuesIsEmptyReport(t *testing.T) {
	src := &stubSource{values: report.Parsed{
		key(model.GroupOther, 2024, time.January):  decimal.NewFromInt(100),
		key(model.GroupOther, 2024, time.February): decimal.NewFromInt(200),
	}}
	for _, metric := range []model.GroupTag{model.GroupIncome, model.GroupNetIncome} {
		_, err := newPipeline(src, nil).Run(context.Background(), Request{Metric: metric, Horizon: 1})
		assert.ErrorIs(t, err, model.ErrEmptyReport, metric)
	}
}

func TestRun_Errors(t *testing.T) {
	single := report.Parsed{key(model.GroupIncome, 2024, time.January): decimal.NewFromInt(1)}

	tests := []struct {
		name string
		src  *stubSource
		req  Request
		want error
	}{
		{"auth", &stubSource{err: model.NewError(model.CodeAuth, "refresh failed", nil)}, Request{Horizon: 1}, model.ErrAuth},
		{"timeout", &stubSource{err: model.NewError(model.CodeTimeout, "slow", nil)}, Request{Horizon: 1}, model.ErrTimeout},
		{"empty", &stubSource{values: report.Parsed{}}, Request{Horizon: 1}, model.ErrEmptyReport},
		{"one period", &stubSource{values: single}, Request{Metric: model.GroupIncome, Horizon: 1}, model.ErrInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memRecorder{}
			_, err := newPipeline(tt.src, rec).Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, rec.runs)
		})
	}
}

func TestRun_InvalidRequest(t *testing.T) {
	p := newPipeline(&stubSource{}, nil)
	_, err := p.Run(context.Background(), Request{Horizon: 0})
	assert.Error(t, err)

	_, err = p.Run(context.Background(), Request{
		Horizon: 1,
		Start:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestRun_RecorderFailureIsNotFatal(t *testing.T) {
	src := &stubSource{values: report.Parsed{
		key(model.GroupIncome, 2024, time.January):  decimal.NewFromInt(1),
		key(model.GroupIncome, 2024, time.February): decimal.NewFromInt(2),
	}}
	res, err := newPipeline(src, &memRecorder{err: errors.New("disk full")}).Run(context.Background(), Request{Metric: model.GroupIncome, Horizon: 1})
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Len(t, res.Records, 3)
}

var _ Source = (*collector.Collector)(nil)
