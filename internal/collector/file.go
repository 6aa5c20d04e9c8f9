package collector

import (
	"context"
	"fmt"
	"os"
)

// FileFetcher serves a saved report payload, for offline runs and tests.
type FileFetcher struct {
	Path string
}

func (f *FileFetcher) Name() string { return "file" }

func (f *FileFetcher) FetchProfitAndLoss(_ context.Context, _ string, _ ReportQuery) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read report fixture: %w", err)
	}
	return data, nil
}
