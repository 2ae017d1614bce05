package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otelharness/internal/collector"
)

type runOptions struct {
	update    bool
	noCompare bool
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run TEST -- COMMAND [ARGS...]",
		Short: "Run a test command against a fresh collector and compare its traces",
		Long: `Start a collector that exports to <root>/result/TEST.json, run COMMAND with
OTELHARNESS_TELEMETRY_ENDPOINT pointing at it, stop the collector, then compare
the result with <root>/expected/TEST.json.

A failing test command does not fail tracediff: failed tests are expected to
produce traces of their own shape.

Examples:
  # Record the reference export of a test
  tracediff run --update TestSampleAddErr -- go test ./sample -run '^TestSampleAddErr$'

  # Check a later run against it
  tracediff run TestSampleAddErr -- go test ./sample -run '^TestSampleAddErr$'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			testName, command := args[0], args[1:]

			executor := &collector.Executor{
				Config: a.collector,
				Logger: a.logger,
				Output: cmd.ErrOrStderr(),
			}
			result, err := executor.Execute(ctx, testName, command)
			if err != nil {
				return err
			}
			a.logger.Info(ctx, "trace export written",
				zap.String("test", testName),
				zap.String("path", result.ResultPath),
				zap.Int("exit_code", result.ExitCode),
			)

			layout := collector.Layout{Root: a.collector.Root, TestName: testName}
			if opts.update {
				if err := copyFile(result.ResultPath, layout.ExpectedPath()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", layout.ExpectedPath())
				return nil
			}
			if opts.noCompare {
				return nil
			}
			return runCompare(ctx, cmd.OutOrStdout(), a.logger, result.ResultPath, layout.ExpectedPath(), &compareOptions{})
		},
	}

	cmd.Flags().BoolVar(&opts.update, "update", false, "store the result as the new expected export")
	cmd.Flags().BoolVar(&opts.noCompare, "no-compare", false, "only record the result")
	cmd.MarkFlagsMutuallyExclusive("update", "no-compare")
	return cmd
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	return nil
}
