package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lukemcguire/sitepulse/observe"
	"github.com/lukemcguire/sitepulse/result"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		count    int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run checks on an interval and expose metrics over HTTP",
		Long: `Run the configured checks every --interval until interrupted. Metrics go to
the configured exporter (prometheus when none is set) and the HTTP server on
--metrics-addr serves /metrics and /healthz. /healthz answers 503 while the
latest run is unhealthy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
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
			exporter := a.cfg.Metrics.Exporter
			if exporter == "" || exporter == "none" {
				exporter = "prometheus"
			}
			provider, err := observe.NewProvider(ctx, exporter, cmd.ErrOrStderr())
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

			runner := a.newRunner(runOptions{metrics: provider})
			out := cmd.OutOrStdout()

			var last atomic.Pointer[result.Report]
			ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", a.cfg.Metrics.Addr, err)
			}
			srv := &http.Server{
				Handler:           newWatchHandler(&last),
				ReadHeaderTimeout: 5 * time.Second,
			}
			serverErrors := make(chan error, 1)
			go func() {
				serverErrors <- srv.Serve(ln)
			}()
			fmt.Fprintf(out, "%s serving metrics on http://%s/metrics (exporter %s)\n",
				colorInfo("→"), ln.Addr(), exporter)
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(sctx); err != nil {
					_ = srv.Close()
				}
			}()

			runs := 0
			runOnce := func() {
				report := runner.Run(ctx, sites, kinds...)
				last.Store(report)
				runs++
				fmt.Fprintf(out, "%s run %s finished in %s: %s\n",
					time.Now().Format(time.TimeOnly), report.RunID,
					report.Duration().Round(time.Millisecond), formatVerdict(report))
			}

			runOnce()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for count <= 0 || runs < count {
				select {
				case <-ctx.Done():
					fmt.Fprintf(out, "%s shutting down\n", colorInfo("→"))
					return nil
				case err := <-serverErrors:
					if !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				case <-ticker.C:
					runOnce()
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "time between runs")
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many runs, 0 runs until interrupted")
	cmd.Flags().String("metrics-addr", ":9464", "listen address for /metrics and /healthz")
	addRunFlags(cmd.Flags())
	return cmd
}

// newWatchHandler serves the Prometheus registry and the health of the
// latest run.
func newWatchHandler(last *atomic.Pointer[result.Report]) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		report := last.Load()
		switch {
		case report == nil:
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "no run finished yet")
		case report.Healthy():
			fmt.Fprintf(w, "healthy (run %s)\n", report.RunID)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "unhealthy (run %s)\n", report.RunID)
		}
	})
	return mux
}
