package result

import (
	"encoding/json"
	"time"

	"github.com/lukemcguire/sitepulse/site"
)

// Detail is implemented by the per-site result of every checker.
type Detail interface {
	CertificateResult | ProbeResult | CrawlResult
	Healthy() bool
}

// Summary folds one checker's per-site results. Details keep input order.
type Summary[T Detail] struct {
	Kind    site.Kind
	Details []T
}

// TotalSites is the number of sites the checker ran against.
func (s *Summary[T]) TotalSites() int {
	if s == nil {
		return 0
	}
	return len(s.Details)
}

// UnhealthySites counts details that do not count as healthy.
func (s *Summary[T]) UnhealthySites() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, d := range s.Details {
		if !d.Healthy() {
			n++
		}
	}
	return n
}

// AllHealthy is derived from Details on every call. A checker that did not
// run (nil summary) does not affect overall health.
func (s *Summary[T]) AllHealthy() bool {
	return s.UnhealthySites() == 0
}

type summaryJSON[T Detail] struct {
	Kind           site.Kind `json:"kind" yaml:"kind"`
	TotalSites     int       `json:"total_sites" yaml:"total_sites"`
	UnhealthySites int       `json:"unhealthy_sites" yaml:"unhealthy_sites"`
	AllHealthy     bool      `json:"all_healthy" yaml:"all_healthy"`
	Details        []T       `json:"details" yaml:"details"`
}

func (s *Summary[T]) view() summaryJSON[T] {
	details := s.Details
	if details == nil {
		details = []T{}
	}
	return summaryJSON[T]{
		Kind:           s.Kind,
		TotalSites:     s.TotalSites(),
		UnhealthySites: s.UnhealthySites(),
		AllHealthy:     s.AllHealthy(),
		Details:        details,
	}
}

// MarshalJSON emits the derived counters alongside the details.
func (s *Summary[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.view())
}

// MarshalYAML mirrors MarshalJSON for gopkg.in/yaml.v3.
func (s *Summary[T]) MarshalYAML() (any, error) {
	return s.view(), nil
}

// SummarizeCertificates builds the ssl summary. Healthy iff no result is
// critical, errored or outside its validity window.
func SummarizeCertificates(results []CertificateResult) *Summary[CertificateResult] {
	return &Summary[CertificateResult]{Kind: site.KindSSL, Details: results}
}

// SummarizeAvailability builds the uptime summary. Healthy iff no site is
// down; slow sites stay healthy.
func SummarizeAvailability(results []ProbeResult) *Summary[ProbeResult] {
	return &Summary[ProbeResult]{Kind: site.KindUptime, Details: results}
}

// SummarizeLinks builds the links summary. Healthy iff no site has a
// broken link.
func SummarizeLinks(results []CrawlResult) *Summary[CrawlResult] {
	return &Summary[CrawlResult]{Kind: site.KindLinks, Details: results}
}

// TotalBrokenLinks counts broken links across every site in s.
func TotalBrokenLinks(s *Summary[CrawlResult]) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, d := range s.Details {
		n += len(d.AllBrokenLinks)
	}
	return n
}

// Report is the output of one run: the three summaries keyed by checker
// kind. A nil summary means the checker was not run.
type Report struct {
	RunID      string                      `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time                   `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time                   `json:"finished_at" yaml:"finished_at"`
	SSL        *Summary[CertificateResult] `json:"ssl,omitempty" yaml:"ssl,omitempty"`
	Uptime     *Summary[ProbeResult]       `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Links      *Summary[CrawlResult]       `json:"links,omitempty" yaml:"links,omitempty"`
}

// Healthy is the AND of the three AllHealthy flags. The CLI exits non-zero
// when it is false.
func (r *Report) Healthy() bool {
	if r == nil {
		return true
	}
	return r.SSL.AllHealthy() && r.Uptime.AllHealthy() && r.Links.AllHealthy()
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
