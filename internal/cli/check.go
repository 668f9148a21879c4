package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/healthops/health"
)

// Exit codes of the check command.
const (
	ExitHealthy   = 0
	ExitDegraded  = 1
	ExitUnhealthy = 2
)

type checkOptions struct {
	tags   []string
	output string
	strict bool
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run every probe once and report the aggregate status",
		Long: `Run every configured probe once and print the report.

The exit code is 0 when healthy, 2 when unhealthy, and 1 when degraded
and --strict is set. Degraded exits 0 otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown output format %q", opts.output)
			}

			cfg, err := root.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			app, err := NewApp(ctx, cfg)
			if err != nil {
				return err
			}

			var pred health.Predicate
			if len(opts.tags) > 0 {
				pred = health.ByTags(opts.tags...)
			}
			report := app.Aggregator.Evaluate(ctx, pred)

			if err := writeReport(cmd.OutOrStdout(), opts.output, report); err != nil {
				return errors.Join(err, app.Close(ctx))
			}
			if err := app.Close(ctx); err != nil {
				return err
			}
			if code := exitCode(report.Status(), opts.strict); code != ExitHealthy {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "only run probes with any of these tags")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json or yaml")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero when degraded")
	return cmd
}

func exitCode(s health.Status, strict bool) int {
	switch s {
	case health.StatusHealthy:
		return ExitHealthy
	case health.StatusDegraded:
		if strict {
			return ExitDegraded
		}
		return ExitHealthy
	default:
		return ExitUnhealthy
	}
}

func writeReport(w io.Writer, format string, report health.Report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, report)
	}
}

func writeText(w io.Writer, report health.Report) error {
	fmt.Fprintf(w, "%s: %s\n\n", strings.ToUpper(report.Status().String()), report.Message())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tDURATION\tMESSAGE")
	for _, e := range report.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Result.Status, e.Result.Duration.Round(time.Microsecond), e.Result.Message)
	}
	return tw.Flush()
}
