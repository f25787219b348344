// Package crawler checks the hyperlinks on a site's pages. It scans each
// configured page's markup for references and probes every distinct one
// once per site, with optional robots.txt compliance and adaptive pacing.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/sitepulse/result"
	"github.com/lukemcguire/sitepulse/site"
	"github.com/lukemcguire/sitepulse/urlutil"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultRateLimit   = 10.0
	DefaultTargetRTT   = 500 * time.Millisecond
	DefaultUserAgent   = "sitepulse/1.0"
	DefaultConcurrency = 1
)

// errNotChecked marks work skipped because the run ended first.
var errNotChecked = errors.New("not checked")

// Config holds crawler configuration.
type Config struct {
	Timeout         time.Duration // per page fetch and per link probe
	UserAgent       string
	CheckExternal   bool          // probe links to other hosts instead of skipping them
	RespectRobots   bool          // skip in-scope links disallowed by robots.txt
	FollowRedirects bool          // follow link redirects and judge the final hop
	Concurrency     int           // link probes in flight per page
	RateLimit       float64       // requests per second across all sites
	TargetRTT       time.Duration // response time the limiter aims for; 0 disables adaptation
	Logger          *zap.Logger

	// OnLink, when set, is called after every probed link. It may be
	// called from several goroutines.
	OnLink func(LinkEvent)
}

// Crawler checks links site by site. One Crawler may serve many CrawlSite
// calls, including concurrent ones; they share the rate limiter.
type Crawler struct {
	cfg        Config
	pageClient *http.Client
	linkClient *http.Client
	limiter    *AdaptiveLimiter
	robots     *RobotsChecker
}

// New creates a Crawler. A nil client gets a default one.
func New(cfg Config, client *http.Client) *Crawler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{}
	}

	linkClient := client
	if !cfg.FollowRedirects {
		noFollow := *client
		noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		linkClient = &noFollow
	}

	robotsClient := *client
	robotsClient.Timeout = min(cfg.Timeout, 5*time.Second)

	return &Crawler{
		cfg:        cfg,
		pageClient: client,
		linkClient: linkClient,
		limiter:    NewAdaptiveLimiter(cfg.RateLimit, cfg.TargetRTT),
		robots:     NewRobotsChecker(&robotsClient, cfg.UserAgent, cfg.Logger),
	}
}

// CrawlSite scans the base URL and every configured page of s and probes
// each distinct reference found. A URL is probed at most once per call no
// matter how many pages reference it; the first page to reference it is the
// one reported. CrawlSite never returns an error: page failures are recorded
// on the page and link failures as broken links.
func (c *Crawler) CrawlSite(ctx context.Context, s site.Site) result.CrawlResult {
	checked := NewCheckedSet()
	host := s.Host()
	log := c.cfg.Logger.With(zap.String("site", s.ID))

	targets := s.Targets()
	pages := make([]result.PageLinks, 0, len(targets))
	for _, target := range targets {
		pages = append(pages, c.crawlPage(ctx, s.ID, host, target, checked, log))
	}

	res := result.NewCrawlResult(s.ID, s.DisplayName(), s.URL, pages)
	res.DistinctURLs = checked.Len()
	log.Info("links checked",
		zap.Int("checked", res.LinksChecked),
		zap.Int("broken", len(res.AllBrokenLinks)),
		zap.Int("skipped_external", res.SkippedExternal),
	)
	return res
}

func (c *Crawler) crawlPage(ctx context.Context, siteID, host string, target site.Target, checked *CheckedSet, log *zap.Logger) result.PageLinks {
	page := result.PageLinks{
		Name:        target.Name,
		URL:         target.URL,
		BrokenLinks: []result.BrokenLink{},
	}
	log = log.With(zap.String("page", target.URL))

	if target.Err != nil {
		page.Error = target.Err.Error()
		return page
	}
	if ctx.Err() != nil {
		page.Error = fmt.Sprintf("not checked: %v", context.Cause(ctx))
		page.Incomplete = true
		return page
	}

	refs, err := c.fetchReferences(ctx, target.URL)
	if err != nil {
		page.Error = err.Error()
		page.Incomplete = errors.Is(err, errNotChecked) || ctx.Err() != nil
		log.Warn("page could not be scanned", zap.Error(err))
		return page
	}
	page.LinksFound = len(refs)

	var jobs []linkJob
	for _, ref := range refs {
		if !checked.VisitIfNew(ref.Key) {
			page.AlreadyChecked++
			continue
		}
		external := !urlutil.IsSameHost(ref.Key, host)
		if external && !c.cfg.CheckExternal {
			page.SkippedExternal++
			continue
		}
		if c.cfg.RespectRobots && !external && !c.robots.Allowed(ctx, ref.URL) {
			page.SkippedRobots++
			continue
		}
		jobs = append(jobs, linkJob{ref: ref, foundOn: target.URL, isExternal: external})
	}

	outcomes := make([]linkOutcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			outcomes[i] = c.checkLink(ctx, job)
			c.emit(siteID, job, outcomes[i])
			return nil
		})
	}
	_ = g.Wait()

	notChecked := 0
	for i, out := range outcomes {
		if out.notChecked {
			notChecked++
			page.BrokenLinks = append(page.BrokenLinks, notCheckedLink(ctx, jobs[i], out.cause))
			continue
		}
		page.LinksChecked++
		if out.broken != nil {
			page.BrokenLinks = append(page.BrokenLinks, *out.broken)
		}
		if out.redirect != nil {
			page.Redirects = append(page.Redirects, *out.redirect)
		}
	}
	if notChecked > 0 {
		page.Error = fmt.Sprintf("%d links not checked", notChecked)
		page.Incomplete = true
	}

	log.Debug("page scanned",
		zap.Int("found", page.LinksFound),
		zap.Int("checked", page.LinksChecked),
		zap.Int("broken", len(page.BrokenLinks)),
	)
	return page
}

// fetchReferences loads a page, following redirects, and extracts its
// references relative to the final URL.
func (c *Crawler) fetchReferences(ctx context.Context, pageURL string) ([]Reference, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			err = context.Cause(ctx)
		}
		return nil, fmt.Errorf("%w: %w", errNotChecked, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.pageClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch page: unexpected status %s", result.StatusText(resp.StatusCode))
	}

	refs, err := ExtractReferences(resp.Body, resp.Request.URL)
	if err != nil {
		return refs, fmt.Errorf("extract references: %w", err)
	}
	return refs, nil
}

func (c *Crawler) emit(siteID string, job linkJob, out linkOutcome) {
	if c.cfg.OnLink == nil || out.notChecked {
		return
	}
	evt := LinkEvent{
		SiteID:     siteID,
		URL:        job.ref.URL,
		FoundOn:    job.foundOn,
		StatusCode: out.statusCode,
		IsExternal: job.isExternal,
	}
	if out.broken != nil {
		evt.Broken = true
		evt.ErrorCategory = out.broken.ErrorCategory
	}
	c.cfg.OnLink(evt)
}
