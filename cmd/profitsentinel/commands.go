package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ProfitSentinel/internal/app"
	"ProfitSentinel/internal/merge"
	"ProfitSentinel/internal/model"
	"ProfitSentinel/internal/scheduler"
	"ProfitSentinel/internal/server"
)

type loader func(ctx context.Context) (*app.App, error)

var writers = map[string]func(io.Writer, []model.Record) error{
	"json": merge.WriteJSON,
	"csv":  merge.WriteCSV,
}

func newForecastCmd(load loader) *cobra.Command {
	var metric, format, start, end string
	var horizon int

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Run the pipeline once and print the merged table",
		RunE: func(cmd *cobra.Command, args []string) error {
			write, ok := writers[format]
			if !ok {
				return fmt.Errorf("unknown format %q", format)
			}
			var g model.GroupTag
			if metric != "" {
				if g, ok = model.ParseGroupTag(metric); !ok {
					return fmt.Errorf("unknown metric %q", metric)
				}
			}

			ctx := cmd.Context()
			a, err := load(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			req := a.DefaultRequest()
			if g != "" {
				req.Metric = g
			}
			if horizon > 0 {
				req.Horizon = horizon
			}
			if req.Start, err = dateFlag(start, req.Start); err != nil {
				return err
			}
			if req.End, err = dateFlag(end, req.End); err != nil {
				return err
			}

			res, err := a.Pipeline.Run(ctx, req)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), res.Records)
		},
	}

	cmd.Flags().StringVar(&metric, "metric", "", "income, expense, net_income or other")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "Number of months to forecast")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or csv")
	cmd.Flags().StringVar(&start, "start", "", "Report start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Report end date (YYYY-MM-DD)")
	return cmd
}

func newServeCmd(load loader) *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve forecasts over HTTP and re-forecast on schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := load(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			log := a.Log

			sched := scheduler.NewScheduler(ctx, a.Pipeline, a.Tokens, a.DefaultRequest(), log)
			if err := sched.RegisterAll(a.Config.Schedule.ForecastCron, a.Config.Schedule.RefreshCron); err != nil {
				return fmt.Errorf("register cron tasks: %w", err)
			}
			sched.Start()
			defer sched.Stop()

			if runOnStart || os.Getenv("RUN_ON_START") == "true" {
				log.Info("RUN_ON_START enabled, executing forecast now")
				go sched.RunForecastNow()
			}

			router := server.NewRouter(server.NewHandler(a.Pipeline, a.DefaultRequest(), log).WithLatest(sched))
			srv := &http.Server{
				Addr:         a.Config.Server.Addr,
				Handler:      server.WithCORS(router, a.Config.Server.CORSOrigins),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 2 * a.Config.QuickBooks.Timeout,
			}
			errCh := make(chan error, 1)
			go func() {
				log.WithField("addr", srv.Addr).Info("starting http server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
			}
			log.Info("shutdown signal received, stopping...")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Run one forecast immediately")
	return cmd
}

func newRefreshCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Make sure the stored credential holds a valid access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.Tokens.Token(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "credential is valid")
			return nil
		},
	}
}

func dateFlag(v string, fallback time.Time) (time.Time, error) {
	if v == "" {
		return fallback, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", v)
	}
	return t, nil
}
