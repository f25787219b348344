// Package uptime probes the availability and latency of each site's pages.
package uptime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lukemcguire/sitepulse/result"
	"github.com/lukemcguire/sitepulse/site"
)

const (
	DefaultWarningMS  = 1000
	DefaultCriticalMS = 3000
	DefaultTimeout    = 10 * time.Second
)

// Config holds probe configuration.
type Config struct {
	WarningMS  int64         // latency at or above this is a warning
	CriticalMS int64         // latency at or above this is critical
	Timeout    time.Duration // per page, covers the full body transfer
	UserAgent  string
	Logger     *zap.Logger
}

// Probe issues one GET per page and classifies latency and status code.
type Probe struct {
	cfg    Config
	client *http.Client
}

// New creates a Probe. A nil client gets a default one; the per-page
// timeout is applied through the request context either way.
func New(cfg Config, client *http.Client) *Probe {
	if cfg.WarningMS <= 0 {
		cfg.WarningMS = DefaultWarningMS
	}
	if cfg.CriticalMS <= 0 {
		cfg.CriticalMS = DefaultCriticalMS
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Probe{cfg: cfg, client: client}
}

// Check probes the base URL and every configured page of s, one after the
// other. A failing page never stops its siblings from being probed.
func (p *Probe) Check(ctx context.Context, s site.Site) result.ProbeResult {
	targets := s.Targets()
	pages := make([]result.PageProbe, 0, len(targets))
	for _, target := range targets {
		pages = append(pages, p.probePage(ctx, s.ID, target))
	}

	res := result.NewProbeResult(s.ID, s.DisplayName(), s.URL, pages)
	p.cfg.Logger.Debug("site probed",
		zap.String("site", s.ID),
		zap.String("status", string(res.OverallStatus)),
		zap.Float64("avg_latency_ms", res.AvgLatencyMS),
	)
	return res
}

func (p *Probe) probePage(ctx context.Context, siteID string, target site.Target) result.PageProbe {
	page := result.PageProbe{Name: target.Name, URL: target.URL}
	log := p.cfg.Logger.With(zap.String("site", siteID), zap.String("url", target.URL))

	fail := func(err error) result.PageProbe {
		page.Status = result.StatusDown
		page.IsUp = false
		page.Error = err.Error()
		log.Warn("page down", zap.Error(err))
		return page
	}

	if target.Err != nil {
		return fail(target.Err)
	}
	if ctx.Err() != nil {
		return fail(fmt.Errorf("not checked: %w", context.Cause(ctx)))
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.URL, nil)
	if err != nil {
		return fail(fmt.Errorf("create request: %w", err))
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = resp.Body.Close() }()

	page.Responded = true
	page.StatusCode = resp.StatusCode

	// Drain so latency covers the whole transfer, not just the headers.
	n, readErr := io.Copy(io.Discard, resp.Body)
	page.LatencyMS = time.Since(start).Milliseconds()
	page.BodyBytes = n
	if readErr != nil {
		return fail(fmt.Errorf("read body: %w", readErr))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fail(fmt.Errorf("unexpected status %s", result.StatusText(resp.StatusCode)))
	}

	page.IsUp = true
	page.Status = ClassifyLatency(page.LatencyMS, p.cfg.WarningMS, p.cfg.CriticalMS)
	log.Debug("page probed",
		zap.Int("status_code", page.StatusCode),
		zap.Int64("latency_ms", page.LatencyMS),
		zap.Int64("body_bytes", page.BodyBytes),
	)
	return page
}

// ClassifyLatency grades a successful page by its latency.
func ClassifyLatency(latencyMS, warningMS, criticalMS int64) result.Status {
	switch {
	case latencyMS >= criticalMS:
		return result.StatusCritical
	case latencyMS >= warningMS:
		return result.StatusWarning
	default:
		return result.StatusOK
	}
}
