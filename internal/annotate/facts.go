// Package annotate runs an ordered pipeline of pure annotators over open
// sections. Annotators consume a section body plus externally supplied
// facts and may inject explanatory text; they never perform I/O.
package annotate

import (
	"context"
	"time"
)

// FilterHit is one abuse-filter log entry supplied as a fact. FilterID is
// empty when the filter is private.
type FilterHit struct {
	ID        int64
	FilterID  string
	Result    string
	PageTitle string
	Timestamp time.Time
}

// Facts is the read-only bag of externally supplied data for one section.
// The host precomputes it before invoking the pipeline; annotators must
// not reach past it.
type Facts struct {
	// SectionUser is the actor name extracted from the section header.
	SectionUser string
	// UserLookupFailed is set when the actor's details could not be
	// retrieved at all. Annotators relying on user data should stand down.
	UserLookupFailed bool
	// Blocked and BlockedBy describe the actor's current block status.
	Blocked   bool
	BlockedBy string
	// FilterHits are the actor's most recent filter log entries, newest
	// first.
	FilterHits []FilterHit
	// Now is the run's injected current time.
	Now time.Time
}

// RecentHit returns the newest filter hit no older than maxAge, or nil.
// A hit older than that is assumed unrelated to the report being filed.
func (f Facts) RecentHit(maxAge time.Duration) *FilterHit {
	if len(f.FilterHits) == 0 {
		return nil
	}
	hit := f.FilterHits[0]
	if f.Now.Sub(hit.Timestamp) > maxAge {
		return nil
	}
	return &hit
}

// Provider assembles the facts bag for one section. Implementations may
// call external services; a failure degrades that section to "no facts"
// without aborting the run.
type Provider interface {
	Facts(ctx context.Context, sectionLabel, body string) (Facts, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, sectionLabel, body string) (Facts, error)

// Facts implements Provider.
func (fn ProviderFunc) Facts(ctx context.Context, sectionLabel, body string) (Facts, error) {
	return fn(ctx, sectionLabel, body)
}
