package crawler

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/lukemcguire/sitepulse/urlutil"
)

// Reference is one outbound resource a page points at.
type Reference struct {
	Href string // attribute value as written in the markup
	URL  string // absolute, fragment dropped; the address that gets requested
	Key  string // normalized URL, used to recognise the same target twice
}

// ExtractReferences scans markup for every href and src attribute on any tag.
// Relative references resolve against pageURL, or against the document's
// <base href> once one is seen. Anchors, non-fetchable schemes and
// non-HTTP targets are dropped; references that normalize to the same Key
// collapse to their first occurrence.
func ExtractReferences(body io.Reader, pageURL *url.URL) ([]Reference, error) {
	tokenizer := html.NewTokenizer(body)
	base := pageURL
	seen := make(map[string]bool)
	var refs []Reference

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); !errors.Is(err, io.EOF) {
				return refs, fmt.Errorf("tokenize %s: %w", pageURL, err)
			}
			return refs, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data == "base" {
				if rebased := baseHref(token, pageURL); rebased != nil {
					base = rebased
				}
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key != "href" && attr.Key != "src" {
					continue
				}
				ref, ok := resolve(base, attr.Val)
				if !ok || seen[ref.Key] {
					continue
				}
				seen[ref.Key] = true
				refs = append(refs, ref)
			}
		}
	}
}

func baseHref(token html.Token, pageURL *url.URL) *url.URL {
	for _, attr := range token.Attr {
		if attr.Key != "href" {
			continue
		}
		parsed, err := url.Parse(strings.TrimSpace(attr.Val))
		if err != nil {
			return nil
		}
		return pageURL.ResolveReference(parsed)
	}
	return nil
}

func resolve(base *url.URL, href string) (Reference, bool) {
	if urlutil.IsExcludedReference(href) {
		return Reference{}, false
	}
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return Reference{}, false
	}
	absolute := base.ResolveReference(parsed)
	if !urlutil.IsHTTP(absolute) || absolute.Host == "" {
		return Reference{}, false
	}
	target := *absolute
	target.Fragment = ""
	target.RawFragment = ""
	return Reference{Href: href, URL: target.String(), Key: urlutil.Canonical(absolute)}, true
}
