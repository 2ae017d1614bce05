package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/otelharness/internal/logging"
	"github.com/fyrsmithlabs/otelharness/internal/tracecontent"
	"github.com/fyrsmithlabs/otelharness/internal/tracediff"
	"github.com/fyrsmithlabs/otelharness/internal/tracefile"
)

type compareOptions struct {
	partialTail  bool
	serviceNames bool
	wait         time.Duration
}

func newCompareCmd(a *app) *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare ACTUAL EXPECTED",
		Short: "Compare a trace export against a reference export",
		Long: `Compare two trace exports projection by projection and print every
difference. Exits with status 2 when the exports differ.

Examples:
  # Compare a fresh result with its reference
  tracediff compare result/sample_add_err.json expected/sample_add_err.json

  # Wait for a collector that is still writing, then compare
  tracediff compare --wait 10s result/sample_add.json expected/sample_add.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), cmd.OutOrStdout(), a.logger, args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.partialTail, "partial-tail", false, "skip an unfinished last line instead of failing")
	cmd.Flags().BoolVar(&opts.serviceNames, "service-names", false, "also compare service.name resource attributes")
	cmd.Flags().DurationVar(&opts.wait, "wait", 0, "wait up to this long for ACTUAL to be completely written")
	return cmd
}

func runCompare(ctx context.Context, out io.Writer, logger *logging.Logger, actualPath, expectedPath string, opts *compareOptions) error {
	if opts.wait > 0 {
		wctx, cancel := context.WithTimeout(ctx, opts.wait)
		defer cancel()
		if err := tracefile.WaitComplete(wctx, actualPath, 0); err != nil {
			return err
		}
	}

	readOpts := []tracefile.Option{tracefile.WithLogger(logger)}
	if opts.partialTail {
		readOpts = append(readOpts, tracefile.WithPartialTail())
	}

	actual, err := loadContent(actualPath, readOpts...)
	if err != nil {
		return err
	}
	expected, err := loadContent(expectedPath, readOpts...)
	if err != nil {
		return err
	}

	var diffOpts []tracediff.Option
	if opts.serviceNames {
		diffOpts = append(diffOpts, tracediff.WithServiceNames())
	}

	err = tracediff.Check(actual, expected, diffOpts...)
	if err != nil {
		fmt.Fprintln(out, err)
		return err
	}
	fmt.Fprintf(out, "equivalent: %d spans in %d scope spans\n", actual.SpanCount(), actual.ScopeSpanCount())
	return nil
}

func loadContent(path string, opts ...tracefile.Option) (*tracecontent.Content, error) {
	records, err := tracefile.Read(path, opts...)
	if err != nil {
		return nil, err
	}
	return tracecontent.New(records...), nil
}
