// Package site describes the monitored web properties handed to each checker.
package site

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind names one of the three independent checkers.
type Kind string

const (
	KindSSL    Kind = "ssl"
	KindUptime Kind = "uptime"
	KindLinks  Kind = "links"
)

// Kinds lists every checker kind in report order.
var Kinds = []Kind{KindSSL, KindUptime, KindLinks}

// ParseKind maps a user supplied name onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSSL:
		return KindSSL, nil
	case KindUptime:
		return KindUptime, nil
	case KindLinks:
		return KindLinks, nil
	default:
		return "", fmt.Errorf("unknown check kind %q", s)
	}
}

// Page is a path relative to a Site's base URL plus a human label.
type Page struct {
	Path string `mapstructure:"path" json:"path" yaml:"path"`
	Name string `mapstructure:"name" json:"name" yaml:"name"`
}

// Checks toggles the checkers that run against a Site.
type Checks struct {
	SSL    bool `mapstructure:"ssl" json:"ssl" yaml:"ssl"`
	Uptime bool `mapstructure:"uptime" json:"uptime" yaml:"uptime"`
	Links  bool `mapstructure:"links" json:"links" yaml:"links"`
}

// Enabled reports whether the checker of the given kind should run.
func (c Checks) Enabled(kind Kind) bool {
	switch kind {
	case KindSSL:
		return c.SSL
	case KindUptime:
		return c.Uptime
	case KindLinks:
		return c.Links
	default:
		return false
	}
}

// Site is a monitored web property. It is treated as immutable for the
// duration of a run.
type Site struct {
	ID     string `mapstructure:"id" json:"id" yaml:"id"`
	Name   string `mapstructure:"name" json:"name" yaml:"name"`
	URL    string `mapstructure:"url" json:"url" yaml:"url"`
	Pages  []Page `mapstructure:"pages" json:"pages,omitempty" yaml:"pages,omitempty"`
	Checks Checks `mapstructure:"checks" json:"checks" yaml:"checks"`
}

// DisplayName returns Name, falling back to ID.
func (s Site) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Host returns the lowercased hostname of the base URL, without port.
func (s Site) Host() string {
	parsed, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// PageURL resolves p against the site's base URL.
func (s Site) PageURL(p Page) (string, error) {
	base, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("parse base URL %q: %w", s.URL, err)
	}
	ref, err := url.Parse(p.Path)
	if err != nil {
		return "", fmt.Errorf("parse page path %q: %w", p.Path, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Target is a resolved URL to check on behalf of a Site.
type Target struct {
	Name string
	URL  string
	Err  error // set when the page path could not be resolved
}

// Targets returns the base URL followed by every configured page, in
// configuration order. Pages that fail to resolve are kept with Err set so
// the checker can report them instead of silently dropping them.
func (s Site) Targets() []Target {
	targets := make([]Target, 0, len(s.Pages)+1)
	targets = append(targets, Target{Name: s.DisplayName(), URL: s.URL})
	for _, p := range s.Pages {
		u, err := s.PageURL(p)
		name := p.Name
		if name == "" {
			name = p.Path
		}
		targets = append(targets, Target{Name: name, URL: u, Err: err})
	}
	return targets
}

// Filter returns the sites that enable the given checker, preserving order.
func Filter(sites []Site, kind Kind) []Site {
	filtered := make([]Site, 0, len(sites))
	for _, s := range sites {
		if s.Checks.Enabled(kind) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
