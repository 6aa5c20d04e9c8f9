package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"ProfitSentinel/internal/credential"
	"ProfitSentinel/internal/model"
)

const (
	SandboxBaseURL    = "https://sandbox-quickbooks.api.intuit.com"
	ProductionBaseURL = "https://quickbooks.api.intuit.com"
	minorVersion      = "65"
)

// BaseURLFor returns the API host for a QuickBooks environment name.
func BaseURLFor(environment string) string {
	if environment == "production" {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

// QuickBooksFetcher implements Fetcher against the QuickBooks Online
// reports API.
type QuickBooksFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewQuickBooksFetcher creates a fetcher with optional proxy support.
func NewQuickBooksFetcher(baseURL, proxyURL string) *QuickBooksFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &QuickBooksFetcher{
		BaseURL: baseURL,
		Client:  &http.Client{Transport: transport},
	}
}

func (f *QuickBooksFetcher) Name() string { return "quickbooks" }

// FetchProfitAndLoss requests the report summarized by month. A 401 is
// reported as credential.ErrUnauthorized so the caller can refresh.
func (f *QuickBooksFetcher) FetchProfitAndLoss(ctx context.Context, token string, q ReportQuery) ([]byte, error) {
	params := url.Values{}
	params.Set("start_date", q.Start.Format("2006-01-02"))
	params.Set("end_date", q.End.Format("2006-01-02"))
	params.Set("summarize_column_by", "Month")
	params.Set("minorversion", minorVersion)
	endpoint := fmt.Sprintf("%s/v3/company/%s/reports/ProfitAndLoss?%s",
		f.BaseURL, url.PathEscape(q.RealmID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, model.NewError(model.CodeTimeout, "report fetch timed out", err)
		}
		return nil, model.NewError(model.CodeUpstream, "report fetch failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, model.NewError(model.CodeTimeout, "report read timed out", err)
		}
		return nil, fmt.Errorf("read report: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("fetch report: %w", credential.ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		e := model.NewError(model.CodeUpstream,
			fmt.Sprintf("fetch report: status %d, body: %s", resp.StatusCode, truncate(body, 512)), nil)
		e.Retryable = resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, e
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
