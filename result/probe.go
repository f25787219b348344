package result

// PageProbe is the availability observation for one URL of a site.
type PageProbe struct {
	Name       string `json:"name" yaml:"name"`
	URL        string `json:"url" yaml:"url"`
	StatusCode int    `json:"status_code,omitempty" yaml:"status_code,omitempty"` // 0 if no response
	LatencyMS  int64  `json:"latency_ms" yaml:"latency_ms"`
	BodyBytes  int64  `json:"body_bytes" yaml:"body_bytes"`
	Responded  bool   `json:"responded" yaml:"responded"` // an HTTP response was received
	IsUp       bool   `json:"is_up" yaml:"is_up"`
	Status     Status `json:"status" yaml:"status"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ProbeResult rolls up the page probes of one site.
type ProbeResult struct {
	SiteID        string      `json:"site_id" yaml:"site_id"`
	SiteName      string      `json:"site_name" yaml:"site_name"`
	URL           string      `json:"url" yaml:"url"`
	Pages         []PageProbe `json:"pages" yaml:"pages"`
	OverallStatus Status      `json:"overall_status" yaml:"overall_status"`
	AvgLatencyMS  float64     `json:"avg_latency_ms" yaml:"avg_latency_ms"`
	IsUp          bool        `json:"is_up" yaml:"is_up"`
}

// NewProbeResult derives OverallStatus, AvgLatencyMS and IsUp from pages.
// The average only covers pages that produced a response.
func NewProbeResult(siteID, siteName, siteURL string, pages []PageProbe) ProbeResult {
	res := ProbeResult{
		SiteID:   siteID,
		SiteName: siteName,
		URL:      siteURL,
		Pages:    pages,
	}

	statuses := make([]Status, 0, len(pages))
	var total int64
	var responded int
	for _, p := range pages {
		statuses = append(statuses, p.Status)
		if p.Responded {
			total += p.LatencyMS
			responded++
		}
	}
	res.OverallStatus = Worst(statuses...)
	if responded > 0 {
		res.AvgLatencyMS = float64(total) / float64(responded)
	}
	res.IsUp = !res.OverallStatus.Failed()
	return res
}

// Healthy reports whether the site is reachable. Slow sites stay healthy.
func (r ProbeResult) Healthy() bool {
	return !r.OverallStatus.Failed()
}
