// Package eligibility decides whether a section has waited long enough to
// be archived, honoring blocker keywords and per-keyword delay overrides.
package eligibility

import (
	"strings"
	"time"
)

// FreshSignatureMarker is the unexpanded signature sequence left by an edit
// in the current pass. A section still carrying it must never be archived
// in the same run that produced it.
const FreshSignatureMarker = "~~~~"

// Rules configures archival timing for one page.
type Rules struct {
	// Blockers are case-insensitive substrings that veto archiving
	// unconditionally, regardless of elapsed time.
	Blockers []string
	// KeywordDelays overrides the waiting period when the keyword appears
	// in the section body. When several match, the shortest delay wins.
	KeywordDelays map[string]time.Duration
	// DefaultDelay applies when no keyword matches.
	DefaultDelay time.Duration
}

// Engine evaluates rules against section bodies.
type Engine struct {
	rules Rules
}

// New builds an Engine from the given rules.
func New(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Archivable reports whether the section may be archived now. lastActivity
// is the most recent signature timestamp in the body; hasActivity must be
// false when none was found, which fails safe to "keep".
func (e *Engine) Archivable(body string, lastActivity time.Time, hasActivity bool, now time.Time) bool {
	if strings.Contains(body, FreshSignatureMarker) {
		return false
	}
	if !hasActivity {
		return false
	}

	lower := strings.ToLower(body)
	for _, blocker := range e.rules.Blockers {
		if strings.Contains(lower, strings.ToLower(blocker)) {
			return false
		}
	}

	delay := e.rules.DefaultDelay
	matched := false
	for keyword, d := range e.rules.KeywordDelays {
		if !strings.Contains(lower, strings.ToLower(keyword)) {
			continue
		}
		if !matched || d < delay {
			delay = d
		}
		matched = true
	}

	return now.Sub(lastActivity) > delay
}
