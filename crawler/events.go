package crawler

import "github.com/lukemcguire/sitepulse/result"

// LinkEvent reports one probed link while a site crawl is in progress.
type LinkEvent struct {
	SiteID        string
	URL           string
	FoundOn       string
	StatusCode    int
	Broken        bool
	ErrorCategory result.ErrorCategory
	IsExternal    bool
}
