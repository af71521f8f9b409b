package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/ezoic/churnpulse/config"
	"github.com/ezoic/churnpulse/pkg/log"
)

// Version is set at build time
var Version = "0.1.0"

// app is the state shared by the subcommands once the root has run.
type app struct {
	configFile string
	logLevel   string

	cfg       *config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "churnpulse",
		Short: "ChurnPulse - customer churn training and prediction service",
		Long: `ChurnPulse trains a churn classifier from a Telco-style CSV, writes the
model, metrics and a Markdown report, and serves predictions over HTTP.

Commands:
  train   - Train a model and write artifacts
  serve   - Serve /health, /predict and /metrics

Example:
  churnpulse train --csv data/raw/telco_churn.csv
  churnpulse train --csv data/raw/housing.csv --task regression
  churnpulse serve --port 8000`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logCloser != nil {
				_ = a.logCloser.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (default: ./churnpulse.yaml or ./config/churnpulse.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(newTrainCmd(a))
	root.AddCommand(newServeCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logCloser = log.SetupLoggerWithOptions(log.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		JSON:       cfg.Log.JSON,
	})
	return nil
}
