// Package urlutil holds the URL rules shared by the checkers: the canonical
// form used to deduplicate links and the filters applied to references.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrEmptyURL    = errors.New("empty URL")
	ErrNotAbsolute = errors.New("URL needs a scheme and a host")
)

// Normalize parses rawURL and returns its canonical form.
func Normalize(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", ErrEmptyURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("normalize %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("normalize %q: %w", rawURL, ErrNotAbsolute)
	}
	return Canonical(u), nil
}

// Canonical renders u with a lower case scheme and host, no default port,
// no fragment and no trailing slash outside the root path. The query is
// kept untouched. u itself is not modified.
func Canonical(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = stripDefaultPort(c.Scheme, strings.ToLower(c.Host))
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path != "/" && strings.HasSuffix(c.Path, "/") {
		c.Path = strings.TrimSuffix(c.Path, "/")
		c.RawPath = strings.TrimSuffix(c.RawPath, "/")
	}
	return c.String()
}

func stripDefaultPort(scheme, host string) string {
	switch scheme {
	case "http":
		return strings.TrimSuffix(host, ":80")
	case "https":
		return strings.TrimSuffix(host, ":443")
	default:
		return host
	}
}
