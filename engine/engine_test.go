package engine_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/lukemcguire/sitepulse/crawler"
	"github.com/lukemcguire/sitepulse/engine"
	"github.com/lukemcguire/sitepulse/result"
	"github.com/lukemcguire/sitepulse/site"
	"github.com/lukemcguire/sitepulse/uptime"
)

// fakeChecker implements all three checker interfaces. Sites listed in
// failing come back unhealthy; delay is slept per site.
type fakeChecker struct {
	delay   time.Duration
	failing map[string]bool

	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeChecker) enter() func() {
	n := f.inFlight.Add(1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	return func() { f.inFlight.Add(-1) }
}

// wait returns the cause when ctx ends before the delay elapses.
func (f *fakeChecker) wait(ctx context.Context) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (f *fakeChecker) Inspect(ctx context.Context, s site.Site) result.CertificateResult {
	defer f.enter()()
	res := result.CertificateResult{SiteID: s.ID, URL: s.URL, Valid: true, Status: result.StatusOK}
	if err := f.wait(ctx); err != nil {
		res.Status, res.Valid, res.Error = result.StatusError, false, "not checked: "+err.Error()
	} else if f.failing[s.ID] {
		res.Status = result.StatusCritical
	}
	return res
}

func (f *fakeChecker) Check(ctx context.Context, s site.Site) result.ProbeResult {
	defer f.enter()()
	page := result.PageProbe{URL: s.URL, IsUp: true, Status: result.StatusOK, Responded: true, LatencyMS: 10}
	if err := f.wait(ctx); err != nil {
		page = result.PageProbe{URL: s.URL, Status: result.StatusDown, Error: "not checked: " + err.Error()}
	} else if f.failing[s.ID] {
		page.Status, page.IsUp = result.StatusDown, false
	}
	return result.NewProbeResult(s.ID, s.DisplayName(), s.URL, []result.PageProbe{page})
}

func (f *fakeChecker) CrawlSite(ctx context.Context, s site.Site) result.CrawlResult {
	defer f.enter()()
	page := result.PageLinks{URL: s.URL, BrokenLinks: []result.BrokenLink{}}
	if err := f.wait(ctx); err != nil {
		page.Error = "not checked: " + err.Error()
	} else if f.failing[s.ID] {
		page.BrokenLinks = append(page.BrokenLinks, result.BrokenLink{URL: s.URL + "/missing", FoundOn: s.URL, StatusCode: 404})
	}
	return result.NewCrawlResult(s.ID, s.DisplayName(), s.URL, []result.PageLinks{page})
}

func fleet(n int) []site.Site {
	sites := make([]site.Site, n)
	for i := range sites {
		sites[i] = site.Site{
			ID:     fmt.Sprintf("site-%d", i),
			URL:    fmt.Sprintf("https://site-%d.example.com/", i),
			Checks: site.Checks{SSL: true, Uptime: true, Links: true},
		}
	}
	return sites
}

func TestRunAllHealthy(t *testing.T) {
	fake := &fakeChecker{}
	r := engine.New(engine.Config{Logger: zaptest.NewLogger(t)}, fake, fake, fake)

	report := r.Run(context.Background(), fleet(3))

	if _, err := uuid.Parse(report.RunID); err != nil {
		t.Errorf("RunID %q is not a UUID: %v", report.RunID, err)
	}
	if report.FinishedAt.Before(report.StartedAt) {
		t.Error("FinishedAt before StartedAt")
	}
	if report.SSL.TotalSites() != 3 || report.Uptime.TotalSites() != 3 || report.Links.TotalSites() != 3 {
		t.Errorf("every checker should see every site")
	}
	if !report.Healthy() {
		t.Error("report should be healthy")
	}
}

func TestRunPreservesInputOrder(t *testing.T) {
	fake := &fakeChecker{delay: 5 * time.Millisecond}
	r := engine.New(engine.Config{Concurrency: 4}, fake, fake, fake)
	sites := fleet(12)

	report := r.Run(context.Background(), sites)

	for i, d := range report.Uptime.Details {
		if d.SiteID != sites[i].ID {
			t.Errorf("uptime details[%d] = %s, want %s", i, d.SiteID, sites[i].ID)
		}
	}
	for i, d := range report.SSL.Details {
		if d.SiteID != sites[i].ID {
			t.Errorf("ssl details[%d] = %s, want %s", i, d.SiteID, sites[i].ID)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	tests := []struct {
		concurrency int
		want        int32
	}{
		{0, 1},
		{1, 1},
		{3, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("concurrency=%d", tt.concurrency), func(t *testing.T) {
			fake := &fakeChecker{delay: 10 * time.Millisecond}
			r := engine.New(engine.Config{Concurrency: tt.concurrency}, nil, fake, nil)

			r.RunUptime(context.Background(), fleet(9))

			if got := fake.maxSeen.Load(); got > tt.want {
				t.Errorf("max in flight = %d, want <= %d", got, tt.want)
			}
		})
	}
}

func TestRunFailureIsolation(t *testing.T) {
	fake := &fakeChecker{failing: map[string]bool{"site-1": true}}
	r := engine.New(engine.Config{Concurrency: 2}, fake, fake, fake)

	report := r.Run(context.Background(), fleet(3))

	if report.Uptime.UnhealthySites() != 1 {
		t.Errorf("UnhealthySites = %d, want 1", report.Uptime.UnhealthySites())
	}
	if got := report.Uptime.Details[1].OverallStatus; got != result.StatusDown {
		t.Errorf("failing site status = %v, want down", got)
	}
	for _, i := range []int{0, 2} {
		if got := report.Uptime.Details[i].OverallStatus; got != result.StatusOK {
			t.Errorf("sibling site %d status = %v, want ok", i, got)
		}
	}
	if report.SSL.AllHealthy() || report.Links.AllHealthy() || report.Healthy() {
		t.Error("report with failures must not be healthy")
	}
}

func TestRunFiltersByChecks(t *testing.T) {
	sites := []site.Site{
		{ID: "a", URL: "https://a.example.com", Checks: site.Checks{SSL: true}},
		{ID: "b", URL: "https://b.example.com", Checks: site.Checks{Uptime: true, Links: true}},
		{ID: "c", URL: "https://c.example.com", Checks: site.Checks{SSL: true, Uptime: true}},
	}
	fake := &fakeChecker{}
	r := engine.New(engine.Config{}, fake, fake, fake)

	report := r.Run(context.Background(), sites)

	ids := func(n int, get func(int) string) string {
		out := make([]string, n)
		for i := range out {
			out[i] = get(i)
		}
		return strings.Join(out, ",")
	}
	if got := ids(len(report.SSL.Details), func(i int) string { return report.SSL.Details[i].SiteID }); got != "a,c" {
		t.Errorf("ssl sites = %s, want a,c", got)
	}
	if got := ids(len(report.Uptime.Details), func(i int) string { return report.Uptime.Details[i].SiteID }); got != "b,c" {
		t.Errorf("uptime sites = %s, want b,c", got)
	}
	if got := ids(len(report.Links.Details), func(i int) string { return report.Links.Details[i].SiteID }); got != "b" {
		t.Errorf("links sites = %s, want b", got)
	}
}

func TestRunSelectedKinds(t *testing.T) {
	fake := &fakeChecker{}
	r := engine.New(engine.Config{}, fake, fake, fake)

	report := r.Run(context.Background(), fleet(2), site.KindUptime)

	if report.SSL != nil || report.Links != nil {
		t.Error("unrequested checkers must not run")
	}
	if report.Uptime.TotalSites() != 2 {
		t.Errorf("uptime TotalSites = %d, want 2", report.Uptime.TotalSites())
	}

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), `"ssl"`) {
		t.Errorf("skipped checker should be omitted from JSON: %s", raw)
	}
}

func TestRunNilCheckerSkipped(t *testing.T) {
	fake := &fakeChecker{}
	r := engine.New(engine.Config{}, nil, fake, nil)

	report := r.Run(context.Background(), fleet(1))
	if report.SSL != nil || report.Links != nil || report.Uptime == nil {
		t.Errorf("only uptime should have run: %+v", report)
	}
}

func TestRunDeadline(t *testing.T) {
	fake := &fakeChecker{delay: 40 * time.Millisecond}
	r := engine.New(engine.Config{Deadline: 100 * time.Millisecond}, nil, fake, nil)

	report := r.Run(context.Background(), fleet(5))

	last := report.Uptime.Details[4]
	if last.OverallStatus != result.StatusDown {
		t.Fatalf("site checked after the deadline = %v, want down", last.OverallStatus)
	}
	if !strings.Contains(last.Pages[0].Error, engine.ErrRunDeadline.Error()) {
		t.Errorf("Error = %q, want %q", last.Pages[0].Error, engine.ErrRunDeadline)
	}
	if report.Uptime.Details[0].OverallStatus != result.StatusOK {
		t.Errorf("first site finished inside the deadline, got %v", report.Uptime.Details[0].OverallStatus)
	}
	if report.Uptime.TotalSites() != 5 {
		t.Errorf("every site must still be reported, got %d", report.Uptime.TotalSites())
	}
}

func TestRunEmitsEvents(t *testing.T) {
	var mu sync.Mutex
	var started, done int
	var runIDs = map[string]bool{}

	fake := &fakeChecker{failing: map[string]bool{"site-0": true}}
	r := engine.New(engine.Config{
		Concurrency: 2,
		OnEvent: func(evt engine.Event) {
			mu.Lock()
			defer mu.Unlock()
			runIDs[evt.RunID] = true
			if evt.Total != 3 {
				t.Errorf("Total = %d, want 3", evt.Total)
			}
			if !evt.Done {
				started++
				return
			}
			done++
			if evt.SiteID == "site-0" && evt.Healthy {
				t.Errorf("failing site reported healthy: %+v", evt)
			}
		},
	}, fake, fake, fake)

	report := r.Run(context.Background(), fleet(3))

	if started != 9 || done != 9 {
		t.Errorf("started=%d done=%d, want 9 each", started, done)
	}
	if len(runIDs) != 1 || !runIDs[report.RunID] {
		t.Errorf("events must carry the report's RunID, got %v", runIDs)
	}
}

type countingMetrics struct {
	mu     sync.Mutex
	checks map[site.Kind]int
}

func (m *countingMetrics) RecordCheck(_ context.Context, kind site.Kind, _ string, _ result.Status, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[kind]++
}

func (m *countingMetrics) RecordLink(context.Context, string, bool, result.ErrorCategory) {}

func TestRunRecordsMetrics(t *testing.T) {
	metrics := &countingMetrics{checks: map[site.Kind]int{}}
	fake := &fakeChecker{}
	r := engine.New(engine.Config{Metrics: metrics}, fake, fake, fake)

	r.Run(context.Background(), fleet(4))

	for _, kind := range site.Kinds {
		if metrics.checks[kind] != 4 {
			t.Errorf("%s checks recorded = %d, want 4", kind, metrics.checks[kind])
		}
	}
}

// TestRunWithRealCheckers wires the HTTP checkers against a local server.
func TestRunWithRealCheckers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprint(w, `<a href="/ok">ok</a><a href="/missing">missing</a>`)
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "ok")
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	logger := zaptest.NewLogger(t)
	probe := uptime.New(uptime.Config{Logger: logger}, nil)
	links := crawler.New(crawler.Config{Logger: logger, RateLimit: 1000}, nil)
	r := engine.New(engine.Config{Concurrency: 2, Logger: logger}, nil, probe, links)

	sites := []site.Site{
		{ID: "home", URL: ts.URL, Checks: site.Checks{Uptime: true, Links: true}},
		{ID: "down", URL: ts.URL + "/down", Checks: site.Checks{Uptime: true}},
	}
	report := r.Run(context.Background(), sites)

	if report.Uptime.Details[0].OverallStatus != result.StatusOK {
		t.Errorf("home status = %v, want ok", report.Uptime.Details[0].OverallStatus)
	}
	if report.Uptime.Details[1].OverallStatus != result.StatusDown {
		t.Errorf("down status = %v, want down", report.Uptime.Details[1].OverallStatus)
	}
	if got := result.TotalBrokenLinks(report.Links); got != 1 {
		t.Errorf("broken links = %d, want 1", got)
	}
	if report.Healthy() {
		t.Error("report should be unhealthy")
	}
}
