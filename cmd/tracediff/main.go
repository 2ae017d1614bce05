// Package main implements the tracediff CLI for inspecting and comparing
// collector trace exports.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/otelharness/internal/collector"
	"github.com/fyrsmithlabs/otelharness/internal/config"
	"github.com/fyrsmithlabs/otelharness/internal/logging"
	"github.com/fyrsmithlabs/otelharness/internal/tracediff"
)

// version information
var version = "dev"

// exitMismatch is the exit status when traces differ, as opposed to 1 for errors.
const exitMismatch = 2

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		var mismatch *tracediff.MismatchError
		if errors.As(err, &mismatch) {
			os.Exit(exitMismatch)
		}
		os.Exit(1)
	}
}

// app carries state shared by all subcommands once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	logger    *logging.Logger
	collector *collector.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "tracediff",
		Short: "Inspect and compare OpenTelemetry trace exports",
		Long: `tracediff reads the newline-delimited OTLP/JSON files written by an
OpenTelemetry collector's file exporter and compares them by shape: span
names, span and scope counts, error statuses, events and exception messages.

Configuration is read from --config and OTELHARNESS_* environment variables.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to otelharness YAML config")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(newCompareCmd(a))
	cmd.AddCommand(newSummaryCmd(a))
	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newCollectorConfigCmd(a))
	return cmd
}

// setup loads configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	logCfg := logging.NewDefaultConfig()
	if err := cfg.Section("logging", logCfg); err != nil {
		return err
	}
	if a.logLevel != "" {
		level, err := zapcore.ParseLevel(a.logLevel)
		if err != nil {
			return err
		}
		logCfg.Level = level
	}
	a.logger, err = logging.NewLogger(logCfg, global.GetLoggerProvider())
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	a.collector = collector.NewDefaultConfig()
	if err := cfg.Section("collector", a.collector); err != nil {
		return err
	}

	a.logger.Debug(cmd.Context(), "configuration loaded")
	return nil
}
