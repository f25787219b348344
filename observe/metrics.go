// Package observe records check outcomes as OpenTelemetry metrics.
package observe

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lukemcguire/sitepulse/result"
	"github.com/lukemcguire/sitepulse/site"
)

// Metrics records check outcomes.
//
// Implementations must be safe for concurrent use and must not panic.
type Metrics interface {
	// RecordCheck records one checker finishing one site.
	RecordCheck(ctx context.Context, kind site.Kind, siteID string, status result.Status, duration time.Duration)

	// RecordLink records one probed hyperlink.
	RecordLink(ctx context.Context, siteID string, broken bool, category result.ErrorCategory)
}

type meterMetrics struct {
	checks       metric.Int64Counter
	unhealthy    metric.Int64Counter
	durationHist metric.Float64Histogram
	links        metric.Int64Counter
	brokenLinks  metric.Int64Counter
}

// NewMetrics creates Metrics backed by meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	checks, err := meter.Int64Counter(
		"sitepulse.check.total",
		metric.WithDescription("Site checks completed"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create check counter: %w", err)
	}

	unhealthy, err := meter.Int64Counter(
		"sitepulse.check.unhealthy",
		metric.WithDescription("Site checks that ended in a non-ok status"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create unhealthy counter: %w", err)
	}

	durationHist, err := meter.Float64Histogram(
		"sitepulse.check.duration_ms",
		metric.WithDescription("Time spent checking one site"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	links, err := meter.Int64Counter(
		"sitepulse.links.checked",
		metric.WithDescription("Hyperlinks probed"),
		metric.WithUnit("{link}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create link counter: %w", err)
	}

	brokenLinks, err := meter.Int64Counter(
		"sitepulse.links.broken",
		metric.WithDescription("Hyperlinks found broken"),
		metric.WithUnit("{link}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create broken link counter: %w", err)
	}

	return &meterMetrics{
		checks:       checks,
		unhealthy:    unhealthy,
		durationHist: durationHist,
		links:        links,
		brokenLinks:  brokenLinks,
	}, nil
}

func (m *meterMetrics) RecordCheck(ctx context.Context, kind site.Kind, siteID string, status result.Status, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("check.kind", string(kind)),
		attribute.String("site.id", siteID),
		attribute.String("check.status", string(status)),
	)

	m.checks.Add(ctx, 1, opt)
	if status != result.StatusOK {
		m.unhealthy.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *meterMetrics) RecordLink(ctx context.Context, siteID string, broken bool, category result.ErrorCategory) {
	m.links.Add(ctx, 1, metric.WithAttributes(attribute.String("site.id", siteID)))
	if broken {
		m.brokenLinks.Add(ctx, 1, metric.WithAttributes(
			attribute.String("site.id", siteID),
			attribute.String("error.type", string(category)),
		))
	}
}

type noopMetrics struct{}

// Noop returns Metrics that record nothing.
func Noop() Metrics { return noopMetrics{} }

func (noopMetrics) RecordCheck(context.Context, site.Kind, string, result.Status, time.Duration) {}

func (noopMetrics) RecordLink(context.Context, string, bool, result.ErrorCategory) {}
