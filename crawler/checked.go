package crawler

import (
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
)

// expectedURLs sizes the bloom filter; a site rarely references more.
const expectedURLs = 10000

// CheckedSet records the URLs already handled during one site crawl. A bloom
// filter answers the common "never seen" case; the exact set behind it
// settles the filter's false positives so no link is ever wrongly skipped.
type CheckedSet struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	seen   map[string]struct{}
}

// NewCheckedSet returns an empty set.
func NewCheckedSet() *CheckedSet {
	return &CheckedSet{
		filter: bloom.NewWithEstimates(expectedURLs, 0.001),
		seen:   make(map[string]struct{}),
	}
}

// VisitIfNew marks url as checked and reports whether it was new.
func (c *CheckedSet) VisitIfNew(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filter.TestString(url) {
		if _, ok := c.seen[url]; ok {
			return false
		}
	}
	c.filter.AddString(url)
	c.seen[url] = struct{}{}
	return true
}

// Len returns the number of distinct URLs marked.
func (c *CheckedSet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
