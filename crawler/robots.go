package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const robotsCacheTTL = time.Hour

type robotsEntry struct {
	group     *robotstxt.Group // nil means allow all
	fetchedAt time.Time
}

// RobotsChecker answers whether a user agent may fetch a URL, caching each
// host's robots.txt. Any failure to obtain or parse the file allows all.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger

	mu    sync.Mutex
	cache map[string]robotsEntry
	now   func() time.Time
}

// NewRobotsChecker creates a RobotsChecker for userAgent.
func NewRobotsChecker(client *http.Client, userAgent string, logger *zap.Logger) *RobotsChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		cache:     make(map[string]robotsEntry),
		now:       time.Now,
	}
}

// Allowed reports whether rawURL may be fetched.
func (r *RobotsChecker) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return true
	}

	group := r.group(ctx, parsed)
	if group == nil {
		return true
	}
	path := parsed.EscapedPath()
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return group.Test(path)
}

func (r *RobotsChecker) group(ctx context.Context, target *url.URL) *robotstxt.Group {
	key := target.Scheme + "://" + target.Host

	r.mu.Lock()
	entry, ok := r.cache[key]
	r.mu.Unlock()
	if ok && r.now().Sub(entry.fetchedAt) < robotsCacheTTL {
		return entry.group
	}

	data, err := r.fetch(ctx, key+"/robots.txt")
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing all", zap.String("host", target.Host), zap.Error(err))
	}
	entry = robotsEntry{fetchedAt: r.now()}
	if data != nil {
		entry.group = data.FindGroup(r.userAgent)
	}

	r.mu.Lock()
	r.cache[key] = entry
	r.mu.Unlock()
	return entry.group
}

func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", robotsURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", robotsURL, err)
	}
	// 4xx and 5xx both mean "no rules" here; a flaky server must not hide links.
	if resp.StatusCode >= 400 {
		return nil, nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", robotsURL, err)
	}
	return data, nil
}
