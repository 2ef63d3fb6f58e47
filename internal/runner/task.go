package runner

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/jvaisto/clerkbot/internal/annotate"
	"github.com/jvaisto/clerkbot/internal/classify"
	"github.com/jvaisto/clerkbot/internal/config"
	"github.com/jvaisto/clerkbot/internal/eligibility"
)

// BuildTask compiles a page definition into a runnable Task. The facts
// provider may be nil when the page configures no annotators.
func BuildTask(cfg config.PageConfig, facts annotate.Provider, logger *zap.Logger) (Task, error) {
	sectionHeader, err := regexp.Compile(cfg.SectionHeader)
	if err != nil {
		return Task{}, fmt.Errorf("page %q: section_header: %w", cfg.Page, err)
	}
	var groupHeader *regexp.Regexp
	if cfg.GroupHeader != "" {
		groupHeader, err = regexp.Compile(cfg.GroupHeader)
		if err != nil {
			return Task{}, fmt.Errorf("page %q: group_header: %w", cfg.Page, err)
		}
	}

	markers := make([]classify.Marker, 0, len(cfg.ClosingMarkers))
	for _, m := range cfg.ClosingMarkers {
		openValues := m.OpenValues
		if openValues == nil {
			openValues = classify.DefaultOpenValues
		}
		markers = append(markers, classify.Marker{
			Name:       m.Name,
			OpenValues: openValues,
			BareClosed: m.BareClosed,
		})
	}

	engine := eligibility.New(eligibility.Rules{
		Blockers:      cfg.Blockers,
		KeywordDelays: cfg.Delays(),
		DefaultDelay:  cfg.DefaultDelay(),
	})

	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return Task{}, err
	}
	if pipeline == nil {
		facts = nil
	}

	return Task{
		Page:            cfg.Page,
		Mode:            Mode(cfg.Mode),
		SectionHeader:   sectionHeader,
		GroupHeader:     groupHeader,
		Classifier:      classify.New(markers),
		Engine:          engine,
		Pipeline:        pipeline,
		Facts:           facts,
		ArchiveTemplate: cfg.ArchivePage,
		ArchivePreamble: cfg.ArchivePreamble,
		MaxArchived:     cfg.ArchiveMaxSections,
	}, nil
}

// buildPipeline instantiates the configured annotators in order. A page
// without annotators gets no pipeline at all.
func buildPipeline(cfg config.PageConfig, logger *zap.Logger) (*annotate.Pipeline, error) {
	if len(cfg.Annotators) == 0 {
		return nil, nil
	}
	var titlePattern *regexp.Regexp
	if cfg.PageTitlePattern != "" {
		var err error
		titlePattern, err = regexp.Compile(cfg.PageTitlePattern)
		if err != nil {
			return nil, fmt.Errorf("page %q: page_title_pattern: %w", cfg.Page, err)
		}
	}

	annotators := make([]annotate.Annotator, 0, len(cfg.Annotators))
	for _, name := range cfg.Annotators {
		switch name {
		case "blocked-user-notice":
			annotators = append(annotators, annotate.NewBlockedUserNotice())
		case "no-filters-triggered":
			annotators = append(annotators, annotate.NewNoFiltersTriggered(titlePattern))
		case "page-name-repair":
			if titlePattern == nil {
				return nil, fmt.Errorf("page %q: annotator %q requires page_title_pattern", cfg.Page, name)
			}
			annotators = append(annotators, annotate.NewPageNameRepair(titlePattern, nil))
		case "private-filter-notice":
			annotators = append(annotators, annotate.NewPrivateFilterNotice())
		default:
			return nil, fmt.Errorf("page %q: unknown annotator %q", cfg.Page, name)
		}
	}
	return annotate.NewPipeline(logger, annotators...), nil
}
