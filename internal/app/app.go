package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"ProfitSentinel/internal/collector"
	"ProfitSentinel/internal/config"
	"ProfitSentinel/internal/credential"
	"ProfitSentinel/internal/db"
	"ProfitSentinel/internal/forecast"
	"ProfitSentinel/internal/model"
	"ProfitSentinel/internal/pipeline"
	"ProfitSentinel/internal/recorder"
)

// Tokens is what the commands need from the credential layer.
type Tokens interface {
	collector.TokenSource
	Token(ctx context.Context) (string, error)
}

// App is the fully wired application.
type App struct {
	Config   *config.Config
	Log      *logrus.Logger
	Tokens   Tokens
	Pipeline *pipeline.Pipeline
	Recorder recorder.Recorder

	closers []func() error
}

// NewLogger returns a logger writing to out at the given level, falling
// back to info. Output is JSON unless out is an interactive terminal.
func NewLogger(level string, out *os.File) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// New wires every component from cfg.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	tokens, err := a.newTokens(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Tokens = tokens

	var fetcher collector.Fetcher
	if cfg.QuickBooks.ReportFile != "" {
		fetcher = &collector.FileFetcher{Path: cfg.QuickBooks.ReportFile}
	} else {
		base := cfg.QuickBooks.BaseURL
		if base == "" {
			base = collector.BaseURLFor(cfg.QuickBooks.Environment)
		}
		fetcher = collector.NewQuickBooksFetcher(base, cfg.Proxy)
	}
	log.WithField("source", fetcher.Name()).Info("report source configured")

	a.Recorder = a.newRecorder()
	col := collector.NewCollector(fetcher, tokens, cfg.QuickBooks.RealmID, cfg.QuickBooks.Timeout, log)
	fc := forecast.NewForecaster(forecast.Options{
		Level:        cfg.Forecast.Level,
		SeasonLength: cfg.Forecast.SeasonLength,
	})
	a.Pipeline = pipeline.New(col, fc, a.Recorder, log)
	return a, nil
}

func (a *App) newTokens(ctx context.Context) (Tokens, error) {
	qb := a.Config.QuickBooks
	if qb.ReportFile != "" && qb.RefreshToken == "" {
		return credential.StaticToken(qb.AccessToken), nil
	}

	store, err := a.newStore()
	if err != nil {
		return nil, err
	}
	seed := &model.Credential{AccessToken: qb.AccessToken, RefreshToken: qb.RefreshToken}
	return credential.NewManager(ctx, credential.Config{
		ClientID:     qb.ClientID,
		ClientSecret: qb.ClientSecret,
		TokenURL:     qb.TokenURL,
		RealmID:      qb.RealmID,
		Timeout:      qb.Timeout,
		ExpirySkew:   qb.ExpirySkew,
	}, store, seed, a.Log)
}

func (a *App) newStore() (credential.Store, error) {
	c := a.Config.Credentials
	switch c.Store {
	case "memory":
		return credential.NewMemoryStore(), nil
	case "sqlite":
		path := c.Path
		if path == "" {
			path = a.Config.Database.SQLitePath
		}
		conn, err := db.Open(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		return credential.NewSQLiteStore(conn, a.Config.QuickBooks.RealmID)
	case "file":
		return credential.NewFileStore(c.Path), nil
	}
	return nil, fmt.Errorf("unknown credential store %q", c.Store)
}

func (a *App) newRecorder() recorder.Recorder {
	if a.Config.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(a.Config.Database.SQLitePath, a.Log)
	if err != nil {
		a.Log.WithError(err).Warn("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	a.closers = append(a.closers, sr.Close)
	return sr
}

// DefaultRequest is the forecast request described by the configuration.
func (a *App) DefaultRequest() pipeline.Request {
	start, end := a.Config.ReportWindow()
	return pipeline.Request{
		Metric:  a.Config.Metric(),
		Horizon: a.Config.Forecast.Horizon,
		Start:   start,
		End:     end,
	}
}

// Close releases databases opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
