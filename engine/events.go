package engine

import (
	"time"

	"github.com/lukemcguire/sitepulse/result"
	"github.com/lukemcguire/sitepulse/site"
)

// Event reports one site starting or finishing one checker.
type Event struct {
	RunID   string
	Kind    site.Kind
	SiteID  string
	Index   int // position in the checker's site list
	Total   int // sites in the checker's site list
	Done    bool
	Status  result.Status // set when Done
	Healthy bool          // set when Done
	Elapsed time.Duration // set when Done
}
