package archiver

import (
	"time"
)

// Status is the derived closure state of a discussion section. It is
// recomputed from the section body on every run and never persisted.
type Status string

// Closure states recognized by the classifier.
const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Section is one discussion thread: a header line plus everything up to the
// next header. Body always includes the header line itself and ends with a
// single trailing newline.
type Section struct {
	// Label is the human-readable text captured from the header line,
	// typically the submitter's name or the thread topic.
	Label string
	// Body is the full section text, header line included.
	Body string
}

// Document is a page split into an ordered preface plus sections.
// Concatenating Preface with every section Body in order reproduces the
// page text (modulo trailing-whitespace normalization of section tails).
type Document struct {
	Preface  string
	Sections []Section
}

// Text reassembles the document into page text.
func (d Document) Text() string {
	out := d.Preface
	for _, s := range d.Sections {
		out += s.Body
	}
	return out
}

// Group is a top-level header grouping subordinate thread sections, used by
// the multi-destination archive layout.
type Group struct {
	Label    string
	Preface  string
	Sections []Section
}

// ArchivedSection is one section body scheduled for archiving, tagged with
// the top-level group it belongs under in the destination document.
// Single-destination rolling archives leave GroupLabel empty.
type ArchivedSection struct {
	GroupLabel string
	Body       string
}

// SectionReasons pairs a section label with the ordered reason tags the
// annotation pipeline applied to it.
type SectionReasons struct {
	Label   string
	Reasons []string
}

// RunResult is everything one archiving pass produced. Nothing is written
// by the engine itself; the host persists NewText and DestinationText only
// after the whole run succeeded.
type RunResult struct {
	RunID   string
	Page    string
	Started time.Time

	// NewText is the rewritten source page. Changed reports whether it
	// differs from the input text.
	NewText string
	Changed bool

	// Skipped is set when the run declined to act, for example because the
	// page lost sections since the previous revision.
	Skipped    bool
	SkipReason string

	// DestinationName and DestinationText describe the archive page to
	// write. Both are empty when nothing was archived.
	DestinationName string
	DestinationText string

	Archived []ArchivedSection
	Modified []SectionReasons
	Summary  string
}

// ArchivedCount returns the number of sections scheduled for archiving.
func (r RunResult) ArchivedCount() int {
	return len(r.Archived)
}
