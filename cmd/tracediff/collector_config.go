package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/otelharness/internal/collector"
)

func newCollectorConfigCmd(a *app) *cobra.Command {
	var batchTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "collector-config [PATH]",
		Short: "Write a collector configuration that exports traces to a file",
		Long: `Write the collector configuration used by "tracediff run". PATH defaults
to the configured collector.config_path.

Examples:
  tracediff collector-config otel-collector-config.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.collector.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			err := collector.WriteConfig(path, collector.Options{
				BatchTimeout: batchTimeout,
				Debug:        a.collector.Debug,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 0, "collector batch processor timeout")
	return cmd
}
