package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/lukemcguire/sitepulse/crawler"
	"github.com/lukemcguire/sitepulse/engine"
	"github.com/lukemcguire/sitepulse/observe"
	"github.com/lukemcguire/sitepulse/site"
	"github.com/lukemcguire/sitepulse/sslcheck"
	"github.com/lukemcguire/sitepulse/uptime"
)

// runOptions hooks a runner into metrics and progress reporting.
type runOptions struct {
	metrics observe.Metrics
	onEvent func(engine.Event)
	onLink  func(crawler.LinkEvent)
}

// addRunFlags registers the flags that override engine and crawler config.
// Defaults live in config.SetDefaults; a flag only wins when it is set.
func addRunFlags(fs *pflag.FlagSet) {
	fs.StringSlice("only", nil, "checkers to run: ssl, uptime, links (default all)")
	fs.StringSlice("site", nil, "only check the sites with these ids")
	fs.Int("concurrency", 1, "sites checked at once per checker")
	fs.Duration("timeout", 0, "timeout per network call (default 10s)")
	fs.Duration("deadline", 0, "budget for the whole run, 0 for none")
	fs.Bool("check-external", false, "probe links to other hosts")
	fs.Bool("respect-robots", false, "skip links disallowed by robots.txt")
	fs.Bool("follow-redirects", false, "follow link redirects and judge the final hop")
	fs.Int("link-concurrency", 1, "link probes in flight per page")
	fs.Float64("rate-limit", 0, "link requests per second (default 10)")
	fs.String("metrics", "", "metrics exporter: "+strings.Join(observe.Exporters, ", "))
}

// parseKinds turns --only values into checker kinds. Empty means all.
func parseKinds(values []string) ([]site.Kind, error) {
	kinds := make([]site.Kind, 0, len(values))
	for _, v := range values {
		k, err := site.ParseKind(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		if !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// selectSites returns the configured sites, narrowed to ids when given.
func (a *app) selectSites(ids []string) ([]site.Site, error) {
	if len(ids) == 0 {
		return a.cfg.Sites, nil
	}
	sites := make([]site.Site, 0, len(ids))
	for _, id := range ids {
		s, ok := a.cfg.Site(id)
		if !ok {
			return nil, fmt.Errorf("unknown site %q", id)
		}
		sites = append(sites, s)
	}
	return sites, nil
}

// newRunner wires the three checkers from the loaded config.
func (a *app) newRunner(opts runOptions) *engine.Runner {
	cfg := a.cfg
	if opts.metrics == nil {
		opts.metrics = observe.Noop()
	}

	ssl := sslcheck.New(sslcheck.Config{
		WarningDays:  cfg.Thresholds.SSLExpiryWarningDays,
		CriticalDays: cfg.Thresholds.SSLExpiryCriticalDays,
		Timeout:      cfg.Engine.Timeout,
		Logger:       a.logger.Named("ssl"),
	})

	probe := uptime.New(uptime.Config{
		WarningMS:  cfg.Thresholds.LatencyWarningMS,
		CriticalMS: cfg.Thresholds.LatencyCriticalMS,
		Timeout:    cfg.Engine.Timeout,
		UserAgent:  cfg.Engine.UserAgent,
		Logger:     a.logger.Named("uptime"),
	}, nil)

	metrics := opts.metrics
	onLink := opts.onLink
	links := crawler.New(crawler.Config{
		Timeout:         cfg.Engine.Timeout,
		UserAgent:       cfg.Engine.UserAgent,
		CheckExternal:   cfg.Crawler.CheckExternal,
		RespectRobots:   cfg.Crawler.RespectRobots,
		FollowRedirects: cfg.Crawler.FollowRedirects,
		Concurrency:     cfg.Crawler.Concurrency,
		RateLimit:       cfg.Crawler.RateLimit,
		TargetRTT:       crawler.DefaultTargetRTT,
		Logger:          a.logger.Named("crawler"),
		OnLink: func(evt crawler.LinkEvent) {
			metrics.RecordLink(context.Background(), evt.SiteID, evt.Broken, evt.ErrorCategory)
			if onLink != nil {
				onLink(evt)
			}
		},
	}, nil)

	a.logger.Debug("runner configured",
		zap.Int("concurrency", cfg.Engine.Concurrency),
		zap.Duration("timeout", cfg.Engine.Timeout),
		zap.Duration("deadline", cfg.Engine.Deadline),
	)

	return engine.New(engine.Config{
		Concurrency: cfg.Engine.Concurrency,
		Deadline:    cfg.Engine.Deadline,
		Logger:      a.logger.Named("engine"),
		Metrics:     metrics,
		OnEvent:     opts.onEvent,
	}, ssl, probe, links)
}
