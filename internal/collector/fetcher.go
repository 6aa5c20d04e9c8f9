package collector

import (
	"context"
	"time"
)

// ReportQuery selects a report window for one company.
type ReportQuery struct {
	RealmID string
	Start   time.Time
	End     time.Time
}

// Fetcher retrieves raw Profit & Loss payloads.
type Fetcher interface {
	FetchProfitAndLoss(ctx context.Context, token string, q ReportQuery) ([]byte, error)
	Name() string
}
