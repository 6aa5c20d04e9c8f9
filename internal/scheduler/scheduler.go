package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"ProfitSentinel/internal/pipeline"
)

// Runner executes one forecast. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// TokenSource hands out a valid access token, refreshing when needed.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron    *cron.Cron
	Runner  Runner
	Tokens  TokenSource
	Request pipeline.Request
	Ctx     context.Context
	Log     *logrus.Logger

	mu     sync.Mutex
	latest *pipeline.Result
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, tokens TokenSource, req pipeline.Request, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Runner:  runner,
		Tokens:  tokens,
		Request: req,
		Ctx:     ctx,
		Log:     log,
	}
}

// RegisterAll registers the forecast and token refresh tasks. An empty
// refresh schedule skips the refresh task.
func (s *Scheduler) RegisterAll(forecastCron, refreshCron string) error {
	if _, err := s.Cron.AddFunc(forecastCron, s.forecastTask); err != nil {
		return fmt.Errorf("register forecast task: %w", err)
	}
	if refreshCron == "" || s.Tokens == nil {
		return nil
	}
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// RunForecastNow executes the forecast task immediately (RUN_ON_START).
func (s *Scheduler) RunForecastNow() {
	s.forecastTask()
}

// Latest returns the most recent successful scheduled result, or nil.
func (s *Scheduler) Latest() *pipeline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Scheduler) forecastTask() {
	s.Log.Info("running scheduled forecast")
	res, err := s.Runner.Run(s.Ctx, s.Request)
	if err != nil {
		s.Log.WithError(err).Error("scheduled forecast failed")
		return
	}
	s.mu.Lock()
	s.latest = res
	s.mu.Unlock()
}

// refreshTask keeps the access token warm so API calls rarely block on a
// refresh. Token only hits the network when the token is close to expiry.
func (s *Scheduler) refreshTask() {
	if _, err := s.Tokens.Token(s.Ctx); err != nil {
		s.Log.WithError(err).Error("proactive token refresh failed")
	}
}
