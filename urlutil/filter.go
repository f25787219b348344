package urlutil

import (
	"net/url"
	"strings"
)

// excludedSchemes never point at a fetchable resource.
var excludedSchemes = []string{"javascript:", "mailto:", "tel:", "data:", "blob:"}

// IsExcludedReference reports whether a raw href or src value is skipped
// before resolution: empty values, in-page anchors and non-fetchable schemes.
func IsExcludedReference(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return true
	}
	lower := strings.ToLower(ref)
	for _, scheme := range excludedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

// IsHTTP reports whether u uses the http or https scheme.
func IsHTTP(u *url.URL) bool {
	if u == nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}

// IsSameHost reports whether rawURL points at host, ignoring port and case.
// Subdomains count as other hosts.
func IsSameHost(rawURL, host string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), host)
}
