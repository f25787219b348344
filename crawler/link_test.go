package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lukemcguire/sitepulse/result"
)

func TestNotCheckedLink(t *testing.T) {
	runDeadline := errors.New("run deadline exceeded")
	job := linkJob{
		ref:        Reference{Href: "/a", URL: "https://example.com/a", Key: "https://example.com/a"},
		foundOn:    "https://example.com/",
		isExternal: true,
	}

	expired, cancelExpired := context.WithTimeoutCause(context.Background(), -time.Second, runDeadline)
	defer cancelExpired()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		want     result.ErrorCategory
		wantText string
	}{
		{"deadline", expired, result.CategoryTimeout, "not checked: run deadline exceeded"},
		{"cancelled", cancelled, result.CategoryUnknown, "not checked: context canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := notCheckedLink(tt.ctx, job, context.Cause(tt.ctx))
			if link.ErrorCategory != tt.want {
				t.Errorf("ErrorCategory = %v, want %v", link.ErrorCategory, tt.want)
			}
			if link.Error != tt.wantText {
				t.Errorf("Error = %q, want %q", link.Error, tt.wantText)
			}
			if link.URL != job.ref.URL || link.Href != "/a" || link.FoundOn != job.foundOn || !link.IsExternal {
				t.Errorf("link lost its reference: %+v", link)
			}
		})
	}
}
