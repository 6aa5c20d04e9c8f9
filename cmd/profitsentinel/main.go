package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ProfitSentinel/internal/app"
	"ProfitSentinel/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "profitsentinel",
		Short:         "Profit & Loss ingestion and forecasting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "Path to the YAML config file")

	load := func(ctx context.Context) (*app.App, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
		return app.New(ctx, cfg, app.NewLogger(cfg.Log.Level, os.Stderr))
	}

	root.AddCommand(
		newForecastCmd(load),
		newServeCmd(load),
		newRefreshCmd(load),
	)
	return root
}
