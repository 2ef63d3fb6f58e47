package archiver

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned by RunStore implementations when no run
// exists for the requested id.
var ErrRunNotFound = errors.New("run not found")

// PageSource supplies page text to the host before a run. Implementations
// talk to the wiki; the engine itself never fetches.
type PageSource interface {
	// PageText returns the current text of a page. Missing pages are an error.
	PageText(ctx context.Context, title string) (string, error)
	// PageTextIfExists returns the page text and whether the page exists.
	PageTextIfExists(ctx context.Context, title string) (string, bool, error)
}

// PageWriter persists rewritten pages after a successful run.
type PageWriter interface {
	SavePage(ctx context.Context, title, text, summary string) error
}

// Clock returns the current time (injected for testing).
type Clock interface {
	Now() time.Time
}

// RunStore persists run history for the status surface.
type RunStore interface {
	RecordRun(ctx context.Context, rec RunRecord) error
	ListRuns(ctx context.Context, page string, limit int) ([]RunRecord, error)
	GetRun(ctx context.Context, runID string) (RunRecord, error)
	Close()
}

// RunRecord is the persisted trace of one completed page run.
type RunRecord struct {
	ID            string    `json:"id"`
	Page          string    `json:"page"`
	Started       time.Time `json:"started_at"`
	Finished      time.Time `json:"finished_at"`
	ArchivedCount int       `json:"archived_count"`
	ModifiedCount int       `json:"modified_count"`
	Skipped       bool      `json:"skipped"`
	Summary       string    `json:"summary"`
}
