package recorder

import (
	"time"

	"ProfitSentinel/internal/model"
)

// ForecastRun is one completed pipeline execution.
type ForecastRun struct {
	ID        string
	Metric    model.GroupTag
	Horizon   int
	Start     model.Period
	End       model.Period
	Warnings  int
	Records   []model.Record
	CreatedAt time.Time
}

// Recorder persists forecast runs for later analysis.
type Recorder interface {
	RecordRun(run *ForecastRun) error
	Close() error
}
