package cmd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lukemcguire/sitepulse/result"
)

func TestWatchRunsUntilCount(t *testing.T) {
	ts := newTestSite(t, false)
	cfg := writeTestConfig(t, ts.URL)

	out, stderr, err := execute(t, "watch", "--config", cfg,
		"--only", "uptime",
		"--count", "2",
		"--interval", "20ms",
		"--metrics", "stdout",
		"--metrics-addr", "127.0.0.1:0",
	)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	if n := strings.Count(out, "finished in"); n != 2 {
		t.Errorf("expected 2 runs, got %d:\n%s", n, out)
	}
	if !strings.Contains(out, "serving metrics on http://127.0.0.1:") {
		t.Errorf("expected listen address in output:\n%s", out)
	}
	if !strings.Contains(stderr, "sitepulse.check.total") {
		t.Errorf("expected metrics flushed to stderr on shutdown, got:\n%s", stderr)
	}
}

func TestWatchRejectsBadInterval(t *testing.T) {
	cfg := writeTestConfig(t, "https://example.com")

	_, _, err := execute(t, "watch", "--config", cfg, "--interval", "0s")
	if err == nil || !strings.Contains(err.Error(), "--interval must be positive") {
		t.Errorf("expected interval error, got %v", err)
	}
}

func TestWatchHandlerHealthz(t *testing.T) {
	var last atomic.Pointer[result.Report]
	srv := httptest.NewServer(newWatchHandler(&last))
	defer srv.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if code, _ := get("/healthz"); code != http.StatusServiceUnavailable {
		t.Errorf("before first run: status %d, want 503", code)
	}

	last.Store(&result.Report{RunID: "ok-run"})
	if code, body := get("/healthz"); code != http.StatusOK || !strings.Contains(body, "ok-run") {
		t.Errorf("healthy run: %d %q", code, body)
	}

	last.Store(&result.Report{
		RunID: "bad-run",
		Uptime: result.SummarizeAvailability([]result.ProbeResult{
			result.NewProbeResult("main", "Main", "https://example.com", []result.PageProbe{
				{URL: "https://example.com", Status: result.StatusDown, Error: "connection refused"},
			}),
		}),
	})
	if code, body := get("/healthz"); code != http.StatusServiceUnavailable || !strings.Contains(body, "unhealthy") {
		t.Errorf("unhealthy run: %d %q", code, body)
	}

	if code, body := get("/metrics"); code != http.StatusOK || !strings.Contains(body, "go_goroutines") {
		t.Errorf("metrics: status %d", code)
	}
}
