package result

// BrokenLink is a reference that failed its existence probe.
type BrokenLink struct {
	URL            string        `json:"url" yaml:"url"`
	FoundOn        string        `json:"found_on" yaml:"found_on"`
	Href           string        `json:"href" yaml:"href"` // reference text as written in the markup
	StatusCode     int           `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Error          string        `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorCategory  ErrorCategory `json:"error_type" yaml:"error_type"`
	RedirectTarget string        `json:"redirect_target,omitempty" yaml:"redirect_target,omitempty"`
	IsExternal     bool          `json:"is_external" yaml:"is_external"`
}

// Redirect records a reference that answered with a 3xx.
type Redirect struct {
	URL        string `json:"url" yaml:"url"`
	FoundOn    string `json:"found_on" yaml:"found_on"`
	StatusCode int    `json:"status_code" yaml:"status_code"`
	Target     string `json:"target" yaml:"target"`
}

// PageLinks is the link check outcome for one scanned page.
type PageLinks struct {
	Name            string       `json:"name" yaml:"name"`
	URL             string       `json:"url" yaml:"url"`
	LinksFound      int          `json:"links_found" yaml:"links_found"`
	LinksChecked    int          `json:"links_checked" yaml:"links_checked"`
	AlreadyChecked  int          `json:"already_checked" yaml:"already_checked"`
	SkippedExternal int          `json:"skipped_external" yaml:"skipped_external"`
	SkippedRobots   int          `json:"skipped_robots" yaml:"skipped_robots"`
	BrokenLinks     []BrokenLink `json:"broken_links" yaml:"broken_links"`
	Redirects       []Redirect   `json:"redirects,omitempty" yaml:"redirects,omitempty"`
	Error           string       `json:"error,omitempty" yaml:"error,omitempty"` // page itself failed to load
	Incomplete      bool         `json:"incomplete,omitempty" yaml:"incomplete,omitempty"` // run ended before the page was fully checked
}

// CrawlResult is the link check outcome for one site.
type CrawlResult struct {
	SiteID          string       `json:"site_id" yaml:"site_id"`
	SiteName        string       `json:"site_name" yaml:"site_name"`
	URL             string       `json:"url" yaml:"url"`
	Pages           []PageLinks  `json:"pages" yaml:"pages"`
	AllBrokenLinks  []BrokenLink `json:"all_broken_links" yaml:"all_broken_links"`
	Redirects       []Redirect   `json:"redirects,omitempty" yaml:"redirects,omitempty"`
	LinksChecked    int          `json:"links_checked" yaml:"links_checked"`
	SkippedExternal int          `json:"skipped_external" yaml:"skipped_external"`
	DistinctURLs    int          `json:"distinct_urls" yaml:"distinct_urls"`
	Incomplete      bool         `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
	Status          Status       `json:"status" yaml:"status"`
}

// NewCrawlResult flattens per-page outcomes into site totals. Link rot is
// not an availability problem, so broken links never raise the status beyond
// warning. A crawl cut short by the run ending is an error.
func NewCrawlResult(siteID, siteName, siteURL string, pages []PageLinks) CrawlResult {
	res := CrawlResult{
		SiteID:         siteID,
		SiteName:       siteName,
		URL:            siteURL,
		Pages:          pages,
		AllBrokenLinks: []BrokenLink{},
	}
	for _, p := range pages {
		res.AllBrokenLinks = append(res.AllBrokenLinks, p.BrokenLinks...)
		res.Redirects = append(res.Redirects, p.Redirects...)
		res.LinksChecked += p.LinksChecked
		res.SkippedExternal += p.SkippedExternal
		res.Incomplete = res.Incomplete || p.Incomplete
	}
	switch {
	case res.Incomplete:
		res.Status = StatusError
	case len(res.AllBrokenLinks) > 0:
		res.Status = StatusWarning
	default:
		res.Status = StatusOK
	}
	return res
}

// Healthy reports whether every page was fully checked and no link is broken.
func (r CrawlResult) Healthy() bool {
	return !r.Incomplete && len(r.AllBrokenLinks) == 0
}
