// Package runner orchestrates one archiving pass over one page: segment,
// classify, annotate, check eligibility, merge, compose. The runner never
// writes anything itself; all output is returned in the RunResult for the
// host to persist once the whole run has succeeded.
package runner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jvaisto/clerkbot/internal/annotate"
	"github.com/jvaisto/clerkbot/internal/archiver"
	"github.com/jvaisto/clerkbot/internal/classify"
	"github.com/jvaisto/clerkbot/internal/eligibility"
	"github.com/jvaisto/clerkbot/internal/merge"
	"github.com/jvaisto/clerkbot/internal/segment"
	"github.com/jvaisto/clerkbot/internal/summary"
)

// Mode selects the archive layout for a page.
type Mode string

// Supported archive layouts.
const (
	// ModeRolling keeps a single flat archive page with a capacity window.
	ModeRolling Mode = "rolling"
	// ModeGrouped files threads under top-level groups on dated archive
	// pages and has no capacity limit.
	ModeGrouped Mode = "grouped"
)

// Task is the fully compiled configuration for one page.
type Task struct {
	Page string
	Mode Mode

	// SectionHeader delimits threads. GroupHeader additionally delimits
	// top-level groups in grouped mode.
	SectionHeader *regexp.Regexp
	GroupHeader   *regexp.Regexp

	Classifier *classify.Classifier
	Engine     *eligibility.Engine

	// Pipeline and Facts may be nil when a page has no annotators.
	Pipeline *annotate.Pipeline
	Facts    annotate.Provider

	// ArchiveTemplate names the destination page, expanded per run.
	ArchiveTemplate string
	ArchivePreamble string
	// MaxArchived bounds the rolling archive; ignored in grouped mode.
	MaxArchived int
}

// Destination resolves the archive page name for the given run time.
func (t Task) Destination(now time.Time) string {
	return ExpandDestination(t.ArchiveTemplate, t.Page, now)
}

// Input carries the pre-fetched texts for one run. The host obtains them
// before invoking the runner; the engine performs no I/O of its own beyond
// per-section fact lookups.
type Input struct {
	PageText string
	// DestinationText is the current text of the resolved destination
	// page, or empty when it does not exist yet.
	DestinationText string
	// PreviousSectionCount, when >= 0, is the section count of the page's
	// previous revision. A page that lost sections since then is assumed
	// to be mid-archive or mid-revert and the run is skipped.
	PreviousSectionCount int
}

// Runner executes archiving passes. It is stateless across runs; every
// pass builds its document fresh and discards it at the end.
type Runner struct {
	clock  archiver.Clock
	logger *zap.Logger
}

// New constructs a Runner.
func New(clock archiver.Clock, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{clock: clock, logger: logger}
}

// Run performs one pass over the page. On error nothing is returned for
// persisting; a run either completes fully or not at all.
func (r *Runner) Run(ctx context.Context, task Task, in Input) (archiver.RunResult, error) {
	now := r.clock.Now()
	result := archiver.RunResult{
		RunID:   uuid.NewString(),
		Page:    task.Page,
		Started: now,
	}

	switch task.Mode {
	case ModeRolling:
		return r.runRolling(ctx, task, in, result)
	case ModeGrouped:
		return r.runGrouped(ctx, task, in, result)
	default:
		return archiver.RunResult{}, fmt.Errorf("task %q: unknown mode %q", task.Page, task.Mode)
	}
}

func (r *Runner) runRolling(ctx context.Context, task Task, in Input, result archiver.RunResult) (archiver.RunResult, error) {
	now := result.Started
	doc := segment.Segment(in.PageText, task.SectionHeader)

	if in.PreviousSectionCount >= 0 && in.PreviousSectionCount > len(doc.Sections) {
		r.logger.Warn("page lost sections since previous revision, skipping",
			zap.String("page", task.Page),
			zap.Int("previous", in.PreviousSectionCount),
			zap.Int("current", len(doc.Sections)))
		result.Skipped = true
		result.SkipReason = "section count decreased"
		result.NewText = in.PageText
		return result, nil
	}

	var kept []string
	var archivedBodies []string

	for _, section := range doc.Sections {
		status := task.Classifier.Classify(section.Body)
		body := section.Body

		if status == archiver.StatusOpen {
			newBody, reasons := r.annotate(ctx, task, section, now)
			last, hasLast := classify.LastActivity(newBody)
			switch {
			case task.Engine.Archivable(newBody, last, hasLast, now):
				r.logger.Info("archiving open section",
					zap.String("page", task.Page), zap.String("section", section.Label))
				archivedBodies = append(archivedBodies, newBody)
				result.Archived = append(result.Archived, archiver.ArchivedSection{
					GroupLabel: section.Label,
					Body:       newBody,
				})
			case newBody != body:
				r.logger.Info("modified open section",
					zap.String("page", task.Page), zap.String("section", section.Label))
				result.Modified = append(result.Modified, archiver.SectionReasons{
					Label:   section.Label,
					Reasons: reasons,
				})
				kept = append(kept, newBody)
			default:
				kept = append(kept, body)
			}
			continue
		}

		last, hasLast := classify.LastActivity(body)
		if task.Engine.Archivable(body, last, hasLast, now) {
			r.logger.Info("archiving closed section",
				zap.String("page", task.Page), zap.String("section", section.Label))
			archivedBodies = append(archivedBodies, body)
			result.Archived = append(result.Archived, archiver.ArchivedSection{
				GroupLabel: section.Label,
				Body:       body,
			})
			continue
		}
		kept = append(kept, body)
	}

	newText := normalizeReplyGaps(doc.Preface + strings.Join(kept, ""))
	result.NewText = newText
	result.Changed = newText != in.PageText

	if len(archivedBodies) > 0 {
		result.DestinationName = ExpandDestination(task.ArchiveTemplate, task.Page, now)
		result.DestinationText = merge.Rolling(
			in.DestinationText, task.ArchivePreamble, archivedBodies, task.MaxArchived, task.SectionHeader)
	}

	result.Summary = summary.Compose(len(result.Archived), result.Modified)
	return result, nil
}

// runGrouped handles the grouped/dated archive layout. Pages with two
// header levels file threads under their existing top-level group; pages
// with a single level file each section under a destination group named
// after the section itself.
func (r *Runner) runGrouped(ctx context.Context, task Task, in Input, result archiver.RunResult) (archiver.RunResult, error) {
	now := result.Started

	var out strings.Builder
	var groups []archiver.Group

	if task.GroupHeader == nil {
		doc := segment.Segment(in.PageText, task.SectionHeader)
		out.WriteString(doc.Preface)
		// Single-level layout: every thread is its own destination group.
		for _, section := range doc.Sections {
			groups = append(groups, archiver.Group{
				Label:    section.Label,
				Sections: []archiver.Section{section},
			})
		}
	} else {
		preface, parsed := segment.SegmentGroups(in.PageText, task.GroupHeader, task.SectionHeader)
		out.WriteString(preface)
		groups = parsed
	}

	for _, group := range groups {
		out.WriteString(group.Preface)
		for _, section := range group.Sections {
			status := task.Classifier.Classify(section.Body)
			body := section.Body

			if status == archiver.StatusOpen {
				newBody, reasons := r.annotate(ctx, task, section, now)
				if newBody != body {
					result.Modified = append(result.Modified, archiver.SectionReasons{
						Label:   section.Label,
						Reasons: reasons,
					})
				}
				out.WriteString(newBody)
				continue
			}

			last, hasLast := classify.LastActivity(body)
			if task.Engine.Archivable(body, last, hasLast, now) {
				r.logger.Info("archiving section",
					zap.String("page", task.Page),
					zap.String("group", group.Label),
					zap.String("section", section.Label))
				archivedBody := body
				if task.GroupHeader == nil {
					// The destination group header replaces the section's
					// own header line.
					archivedBody = afterHeaderLine(body)
				}
				result.Archived = append(result.Archived, archiver.ArchivedSection{
					GroupLabel: group.Label,
					Body:       archivedBody,
				})
				continue
			}
			out.WriteString(body)
		}
	}

	newText := normalizeReplyGaps(out.String())
	result.NewText = newText
	result.Changed = newText != in.PageText

	if len(result.Archived) > 0 {
		destHeader := task.GroupHeader
		if destHeader == nil {
			destHeader = task.SectionHeader
		}
		result.DestinationName = ExpandDestination(task.ArchiveTemplate, task.Page, now)
		merged, err := merge.Grouped(
			in.DestinationText, task.ArchivePreamble, result.Archived, destHeader)
		if err != nil {
			return archiver.RunResult{}, fmt.Errorf("page %q: %w", task.Page, err)
		}
		result.DestinationText = merged
	}

	result.Summary = summary.Compose(len(result.Archived), result.Modified)
	return result, nil
}

// annotate runs the pipeline over one open section. Fact-lookup failures
// degrade the section to "no facts available" rather than aborting the
// run.
func (r *Runner) annotate(ctx context.Context, task Task, section archiver.Section, now time.Time) (string, []string) {
	if task.Pipeline == nil {
		return section.Body, nil
	}
	facts := annotate.Facts{SectionUser: section.Label, Now: now}
	if task.Facts != nil {
		looked, err := task.Facts.Facts(ctx, section.Label, section.Body)
		if err != nil {
			r.logger.Warn("fact lookup failed, continuing without facts",
				zap.String("page", task.Page),
				zap.String("section", section.Label),
				zap.Error(err))
			facts.UserLookupFailed = true
		} else {
			looked.Now = now
			if looked.SectionUser == "" {
				looked.SectionUser = section.Label
			}
			facts = looked
		}
	}
	return task.Pipeline.Run(section.Label, section.Body, facts)
}

// afterHeaderLine drops the first line of a section body.
func afterHeaderLine(body string) string {
	if i := strings.Index(body, "\n"); i >= 0 {
		return body[i+1:]
	}
	return ""
}

// replyGap matches blank lines squeezed in front of a signed reply line.
var replyGap = regexp.MustCompile(`\n+([^\n]+~~~~)`)

// normalizeReplyGaps collapses empty lines left behind in front of replies
// after sections were cut out of the page.
func normalizeReplyGaps(text string) string {
	return replyGap.ReplaceAllString(text, "\n$1")
}
