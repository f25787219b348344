package sslcheck

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/lukemcguire/sitepulse/result"
	"github.com/lukemcguire/sitepulse/site"
)

func TestClassify(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	notBefore := now.Add(-90 * day)

	tests := []struct {
		name         string
		notBefore    time.Time
		notAfter     time.Time
		warningDays  int
		criticalDays int
		want         result.Status
	}{
		{
			name:         "plenty of time",
			notBefore:    notBefore,
			notAfter:     now.Add(60 * day),
			warningDays:  30,
			criticalDays: 7,
			want:         result.StatusOK,
		},
		{
			name:         "inside warning window",
			notBefore:    notBefore,
			notAfter:     now.Add(20 * day),
			warningDays:  30,
			criticalDays: 7,
			want:         result.StatusWarning,
		},
		{
			name:         "warning boundary is inclusive",
			notBefore:    notBefore,
			notAfter:     now.Add(30*day + time.Hour),
			warningDays:  30,
			criticalDays: 7,
			want:         result.StatusWarning,
		},
		{
			name:         "critical boundary is inclusive",
			notBefore:    notBefore,
			notAfter:     now.Add(7*day + time.Hour),
			warningDays:  30,
			criticalDays: 7,
			want:         result.StatusCritical,
		},
		{
			name:         "five days left is critical",
			notBefore:    notBefore,
			notAfter:     now.Add(5*day + time.Hour),
			warningDays:  30,
			criticalDays: 7,
			want:         result.StatusCritical,
		},
		{
			name:         "critical wins over a smaller warning threshold",
			notBefore:    notBefore,
			notAfter:     now.Add(5*day + time.Hour),
			warningDays:  3,
			criticalDays: 7,
			want:         result.StatusCritical,
		},
		{
			name:         "expired",
			notBefore:    notBefore,
			notAfter:     now.Add(-400 * day),
			warningDays:  30,
			criticalDays: 7,
			want:         result.StatusCritical,
		},
		{
			name:         "expired with negative critical threshold",
			notBefore:    notBefore,
			notAfter:     now.Add(-time.Minute),
			warningDays:  -10,
			criticalDays: -5,
			want:         result.StatusCritical,
		},
		{
			name:         "not yet valid",
			notBefore:    now.Add(day),
			notAfter:     now.Add(365 * day),
			warningDays:  30,
			criticalDays: 7,
			want:         result.StatusCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.notBefore, tt.notAfter, now, tt.warningDays, tt.criticalDays)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		notAfter time.Time
		want     int
	}{
		{"five days and change", now.Add(5*day + 23*time.Hour), 5},
		{"exactly one day", now.Add(day), 1},
		{"less than a day", now.Add(time.Hour), 0},
		{"expired an hour ago floors to -1", now.Add(-time.Hour), -1},
		{"expired ten days ago", now.Add(-10 * day), -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysRemaining(tt.notAfter, now); got != tt.want {
				t.Errorf("DaysRemaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInspectRejectsNonHTTPS(t *testing.T) {
	inspector := New(Config{Logger: zaptest.NewLogger(t)})

	res := inspector.Inspect(context.Background(), site.Site{ID: "plain", URL: "http://example.com"})
	if res.Status != result.StatusError {
		t.Errorf("Status = %v, want error", res.Status)
	}
	if !strings.Contains(res.Error, "https") {
		t.Errorf("Error = %q, want mention of https", res.Error)
	}
	if res.SiteID != "plain" || res.URL != "http://example.com" {
		t.Errorf("result lost site identity: %+v", res)
	}
}

func TestInspectTLSServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	notAfter := srv.Certificate().NotAfter

	t.Run("valid certificate", func(t *testing.T) {
		inspector := New(Config{Logger: zaptest.NewLogger(t)})
		res := inspector.Inspect(context.Background(), site.Site{ID: "local", Name: "Local", URL: srv.URL})

		if res.Status != result.StatusOK {
			t.Fatalf("Status = %v (err %q), want ok", res.Status, res.Error)
		}
		if !res.Valid || res.Expired || res.NotYetValid {
			t.Errorf("validity flags wrong: %+v", res)
		}
		if !res.NotAfter.Equal(notAfter.UTC()) {
			t.Errorf("NotAfter = %v, want %v", res.NotAfter, notAfter)
		}
		if res.Subject == "" || res.Issuer == "" {
			t.Errorf("expected issuer and subject, got %q / %q", res.Issuer, res.Subject)
		}
	})

	t.Run("five days before expiry", func(t *testing.T) {
		inspector := New(Config{
			CriticalDays: 7,
			WarningDays:  30,
			Logger:       zaptest.NewLogger(t),
			Now:          func() time.Time { return notAfter.Add(-5*day - time.Hour) },
		})
		res := inspector.Inspect(context.Background(), site.Site{ID: "local", URL: srv.URL})

		if res.Status != result.StatusCritical {
			t.Errorf("Status = %v, want critical", res.Status)
		}
		if res.DaysRemaining != 5 {
			t.Errorf("DaysRemaining = %d, want 5", res.DaysRemaining)
		}
	})

	t.Run("expired", func(t *testing.T) {
		inspector := New(Config{
			Logger: zaptest.NewLogger(t),
			Now:    func() time.Time { return notAfter.Add(48 * time.Hour) },
		})
		res := inspector.Inspect(context.Background(), site.Site{ID: "local", URL: srv.URL})

		if res.Status != result.StatusCritical {
			t.Errorf("Status = %v, want critical", res.Status)
		}
		if !res.Expired || res.Valid {
			t.Errorf("expected Expired and !Valid, got %+v", res)
		}
		if res.Healthy() {
			t.Error("expired certificate must not be healthy")
		}
	})
}

func TestInspectConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	inspector := New(Config{Timeout: time.Second, Logger: zaptest.NewLogger(t)})
	res := inspector.Inspect(context.Background(), site.Site{ID: "gone", URL: "https://" + addr})

	if res.Status != result.StatusError {
		t.Errorf("Status = %v, want error", res.Status)
	}
	if res.Error == "" {
		t.Error("expected the dial error to be captured")
	}
}

func TestInspectHandshakeTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	// Accept and hold connections without ever speaking TLS.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				<-done
				_ = conn.Close()
			}()
		}
	}()

	inspector := New(Config{Timeout: 200 * time.Millisecond, Logger: zaptest.NewLogger(t)})

	start := time.Now()
	res := inspector.Inspect(context.Background(), site.Site{ID: "slow", URL: "https://" + ln.Addr().String()})
	elapsed := time.Since(start)

	if res.Status != result.StatusError {
		t.Errorf("Status = %v, want error", res.Status)
	}
	if res.Error == "" {
		t.Error("expected timeout message")
	}
	if elapsed > 3*time.Second {
		t.Errorf("handshake was not bounded by the timeout: took %v", elapsed)
	}
}

func TestInspectAfterRunDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inspector := New(Config{Logger: zaptest.NewLogger(t)})
	res := inspector.Inspect(ctx, site.Site{ID: "late", URL: "https://127.0.0.1:1"})

	if res.Status != result.StatusError {
		t.Errorf("Status = %v, want error", res.Status)
	}
	if !strings.HasPrefix(res.Error, "not checked") {
		t.Errorf("Error = %q, want not checked", res.Error)
	}
}
