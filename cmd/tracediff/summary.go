package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/otelharness/internal/tracecontent"
	"github.com/fyrsmithlabs/otelharness/internal/tracefile"
)

// Summary lists every projection tracediff compares.
type Summary struct {
	ServiceNames        []string            `json:"service_names"`
	SpanNames           []string            `json:"span_names"`
	ScopeSpanCount      int                 `json:"scope_span_count"`
	SpanCount           int                 `json:"span_count"`
	ErrorCount          int                 `json:"error_count"`
	SpanEventNames      map[string][]string `json:"span_event_names"`
	SpanEventExceptions map[string][]string `json:"span_event_exceptions"`
}

func summarize(c *tracecontent.Content) Summary {
	return Summary{
		ServiceNames:        c.ServiceNames(),
		SpanNames:           c.SpanNames(),
		ScopeSpanCount:      c.ScopeSpanCount(),
		SpanCount:           c.SpanCount(),
		ErrorCount:          c.StatusCount(tracefile.StatusError),
		SpanEventNames:      c.SpanEventNames(),
		SpanEventExceptions: c.SpanEventExceptions(),
	}
}

func newSummaryCmd(a *app) *cobra.Command {
	var partialTail bool

	cmd := &cobra.Command{
		Use:   "summary FILE",
		Short: "Print the compared projections of a trace export as JSON",
		Long: `Print the projections tracediff compares for one export file.

Examples:
  tracediff summary result/sample_add_err.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []tracefile.Option{tracefile.WithLogger(a.logger)}
			if partialTail {
				opts = append(opts, tracefile.WithPartialTail())
			}
			content, err := loadContent(args[0], opts...)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), summarize(content))
		},
	}

	cmd.Flags().BoolVar(&partialTail, "partial-tail", false, "skip an unfinished last line instead of failing")
	return cmd
}

func writeSummary(out io.Writer, s Summary) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return nil
}
