// Package engine runs the checkers over a fleet of sites and assembles the
// run report.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/sitepulse/observe"
	"github.com/lukemcguire/sitepulse/result"
	"github.com/lukemcguire/sitepulse/site"
)

// ErrRunDeadline is the cause attached to the run context when the
// configured deadline expires. Checks not yet issued report it.
var ErrRunDeadline = errors.New("run deadline exceeded")

// CertificateInspector inspects the TLS certificate of one site.
type CertificateInspector interface {
	Inspect(ctx context.Context, s site.Site) result.CertificateResult
}

// AvailabilityProbe probes the pages of one site.
type AvailabilityProbe interface {
	Check(ctx context.Context, s site.Site) result.ProbeResult
}

// LinkCrawler checks the hyperlinks of one site.
type LinkCrawler interface {
	CrawlSite(ctx context.Context, s site.Site) result.CrawlResult
}

// Config holds runner configuration.
type Config struct {
	Concurrency int           // sites checked at once per checker; 1 is sequential
	Deadline    time.Duration // whole-run budget; 0 means none
	Logger      *zap.Logger
	Metrics     observe.Metrics

	// OnEvent, when set, receives progress. It may be called from several
	// goroutines.
	OnEvent func(Event)
}

// Runner schedules each checker's sites onto a bounded pool. A nil checker
// is skipped and its summary left nil.
type Runner struct {
	cfg    Config
	ssl    CertificateInspector
	uptime AvailabilityProbe
	links  LinkCrawler
	now    func() time.Time
}

// New creates a Runner.
func New(cfg Config, ssl CertificateInspector, uptime AvailabilityProbe, links LinkCrawler) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.Noop()
	}
	return &Runner{cfg: cfg, ssl: ssl, uptime: uptime, links: links, now: time.Now}
}

// Run checks sites with every requested kind, in ssl, uptime, links order,
// and returns the report. Each checker only sees the sites that enable it.
// An empty kinds list runs everything.
func (r *Runner) Run(ctx context.Context, sites []site.Site, kinds ...site.Kind) *result.Report {
	if len(kinds) == 0 {
		kinds = site.Kinds
	}
	if r.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, r.cfg.Deadline, ErrRunDeadline)
		defer cancel()
	}

	report := &result.Report{RunID: uuid.NewString(), StartedAt: r.now()}
	log := r.cfg.Logger.With(zap.String("run_id", report.RunID))
	log.Info("run started", zap.Int("sites", len(sites)), zap.Any("kinds", kinds))

	want := make(map[site.Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	if want[site.KindSSL] && r.ssl != nil {
		report.SSL = r.runSSL(ctx, report.RunID, site.Filter(sites, site.KindSSL))
		logSummary(log, report.SSL)
	}
	if want[site.KindUptime] && r.uptime != nil {
		report.Uptime = r.runUptime(ctx, report.RunID, site.Filter(sites, site.KindUptime))
		logSummary(log, report.Uptime)
	}
	if want[site.KindLinks] && r.links != nil {
		report.Links = r.runLinks(ctx, report.RunID, site.Filter(sites, site.KindLinks))
		logSummary(log, report.Links)
	}

	report.FinishedAt = r.now()
	log.Info("run finished",
		zap.Bool("healthy", report.Healthy()),
		zap.Duration("duration", report.Duration()),
	)
	return report
}

// RunSSL inspects the certificate of every site, in input order. It
// returns nil when the runner has no inspector.
func (r *Runner) RunSSL(ctx context.Context, sites []site.Site) *result.Summary[result.CertificateResult] {
	if r.ssl == nil {
		return nil
	}
	return r.runSSL(ctx, "", sites)
}

// RunUptime probes every site, in input order.
func (r *Runner) RunUptime(ctx context.Context, sites []site.Site) *result.Summary[result.ProbeResult] {
	if r.uptime == nil {
		return nil
	}
	return r.runUptime(ctx, "", sites)
}

// RunLinks crawls every site, in input order.
func (r *Runner) RunLinks(ctx context.Context, sites []site.Site) *result.Summary[result.CrawlResult] {
	if r.links == nil {
		return nil
	}
	return r.runLinks(ctx, "", sites)
}

func (r *Runner) runSSL(ctx context.Context, runID string, sites []site.Site) *result.Summary[result.CertificateResult] {
	details := runAll(ctx, r, runID, site.KindSSL, sites, r.ssl.Inspect,
		func(c result.CertificateResult) result.Status { return c.Status })
	return result.SummarizeCertificates(details)
}

func (r *Runner) runUptime(ctx context.Context, runID string, sites []site.Site) *result.Summary[result.ProbeResult] {
	details := runAll(ctx, r, runID, site.KindUptime, sites, r.uptime.Check,
		func(p result.ProbeResult) result.Status { return p.OverallStatus })
	return result.SummarizeAvailability(details)
}

func (r *Runner) runLinks(ctx context.Context, runID string, sites []site.Site) *result.Summary[result.CrawlResult] {
	details := runAll(ctx, r, runID, site.KindLinks, sites, r.links.CrawlSite,
		func(c result.CrawlResult) result.Status { return c.Status })
	return result.SummarizeLinks(details)
}

// runAll checks every site on a pool of cfg.Concurrency goroutines. Results
// land at their input index; checks never fail the group.
func runAll[T result.Detail](
	ctx context.Context,
	r *Runner,
	runID string,
	kind site.Kind,
	sites []site.Site,
	check func(context.Context, site.Site) T,
	status func(T) result.Status,
) []T {
	details := make([]T, len(sites))

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, s := range sites {
		g.Go(func() error {
			r.emit(Event{RunID: runID, Kind: kind, SiteID: s.ID, Index: i, Total: len(sites)})

			start := r.now()
			details[i] = check(ctx, s)
			elapsed := r.now().Sub(start)
			st := status(details[i])

			r.cfg.Metrics.RecordCheck(ctx, kind, s.ID, st, elapsed)
			r.cfg.Logger.Debug("site checked",
				zap.String("kind", string(kind)),
				zap.String("site", s.ID),
				zap.String("status", string(st)),
				zap.Duration("elapsed", elapsed),
			)
			r.emit(Event{
				RunID:   runID,
				Kind:    kind,
				SiteID:  s.ID,
				Index:   i,
				Total:   len(sites),
				Done:    true,
				Status:  st,
				Healthy: details[i].Healthy(),
				Elapsed: elapsed,
			})
			return nil
		})
	}
	_ = g.Wait()
	return details
}

func (r *Runner) emit(evt Event) {
	if r.cfg.OnEvent != nil {
		r.cfg.OnEvent(evt)
	}
}

type summary interface {
	TotalSites() int
	UnhealthySites() int
	AllHealthy() bool
}

func logSummary(log *zap.Logger, s summary) {
	log.Info("checker finished",
		zap.Int("sites", s.TotalSites()),
		zap.Int("unhealthy", s.UnhealthySites()),
		zap.Bool("all_healthy", s.AllHealthy()),
	)
}
