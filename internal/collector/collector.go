package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ProfitSentinel/internal/model"
	"ProfitSentinel/internal/report"
)

// fetchTimeout is used when the collector is given no explicit timeout.
const fetchTimeout = 30 * time.Second

// TokenSource authorizes pipeline calls. *credential.Manager implements it.
type TokenSource interface {
	Do(ctx context.Context, call func(ctx context.Context, token string) error) error
}

// Collector fetches a report under a managed credential and parses it.
type Collector struct {
	Fetcher Fetcher
	Tokens  TokenSource
	RealmID string
	Timeout time.Duration
	Parser  *report.Parser
	Log     *logrus.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, tokens TokenSource, realmID string, timeout time.Duration, log *logrus.Logger) *Collector {
	if timeout <= 0 {
		timeout = fetchTimeout
	}
	return &Collector{
		Fetcher: fetcher,
		Tokens:  tokens,
		RealmID: realmID,
		Timeout: timeout,
		Parser:  report.NewParser(log),
		Log:     log,
	}
}

// Collect fetches the Profit & Loss report for [start, end] and parses it.
// Flat (date, amount) reports carry no sections; their rows are tagged group.
func (c *Collector) Collect(ctx context.Context, start, end time.Time, group model.GroupTag) (*report.Result, error) {
	q := ReportQuery{RealmID: c.RealmID, Start: start, End: end}

	var payload []byte
	err := c.Tokens.Do(ctx, func(ctx context.Context, token string) error {
		fctx, cancel := context.WithTimeout(ctx, c.Timeout)
		defer cancel()
		body, err := c.Fetcher.FetchProfitAndLoss(fctx, token, q)
		if err != nil {
			return err
		}
		payload = body
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch profit and loss: %w", err)
	}

	tree, err := report.DecodeQuickBooks(payload, group)
	if err != nil {
		return nil, err
	}
	res, err := c.Parser.Parse(tree)
	if err != nil {
		return nil, err
	}
	c.Log.WithFields(logrus.Fields{
		"source":   c.Fetcher.Name(),
		"leaves":   res.Leaves,
		"warnings": res.Warnings,
		"cells":    len(res.Values),
	}).Info("report parsed")
	return res, nil
}
