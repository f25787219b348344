package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lukemcguire/sitepulse/observe"
	"github.com/lukemcguire/sitepulse/result"
	"github.com/lukemcguire/sitepulse/tui"
)

const shutdownTimeout = 5 * time.Second

var formats = []string{"text", "json", "csv", "yaml"}

func newCheckCmd(a *app) *cobra.Command {
	var (
		format string
		useTUI bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the configured checks once and report",
		Long: `Run the certificate, availability and link checks against every configured
site and print a report. The command exits 1 when any site is unhealthy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(formats, format) {
				return fmt.Errorf("unknown format %q (want one of %v)", format, formats)
			}
			only, _ := cmd.Flags().GetStringSlice("only")
			kinds, err := parseKinds(only)
			if err != nil {
				return err
			}
			ids, _ := cmd.Flags().GetStringSlice("site")
			sites, err := a.selectSites(ids)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			provider, err := observe.NewProvider(ctx, a.cfg.Metrics.Exporter, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := provider.Shutdown(sctx); err != nil {
					a.logger.Warn("metrics shutdown failed", zap.Error(err))
				}
			}()

			out := cmd.OutOrStdout()
			var report *result.Report
			if useTUI {
				progress := tui.NewProgress(ctx)
				runner := a.newRunner(runOptions{
					metrics: provider,
					onEvent: progress.OnEvent,
					onLink:  progress.OnLink,
				})
				report, err = tui.Run(ctx, out, func(ctx context.Context) *result.Report {
					return runner.Run(ctx, sites, kinds...)
				}, progress)
				if err != nil {
					return err
				}
				// The TUI already rendered the summary.
				if format != "text" {
					if err := writeReport(out, format, report); err != nil {
						return err
					}
				}
			} else {
				report = a.newRunner(runOptions{metrics: provider}).Run(ctx, sites, kinds...)
				if err := writeReport(out, format, report); err != nil {
					return err
				}
			}

			if !report.Healthy() {
				return errUnhealthy
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, csv, yaml")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "show live progress in an interactive terminal UI")
	addRunFlags(cmd.Flags())
	return cmd
}

// writeReport renders report in the given format.
func writeReport(w io.Writer, format string, report *result.Report) error {
	switch format {
	case "json":
		return result.WriteJSON(w, report)
	case "yaml":
		return result.WriteYAML(w, report)
	case "csv":
		return result.WriteCSV(w, report)
	default:
		result.PrintReport(w, report)
		return nil
	}
}
