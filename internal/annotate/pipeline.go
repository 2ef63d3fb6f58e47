package annotate

import (
	"go.uber.org/zap"
)

// Annotator inspects a section body together with its facts and returns a
// possibly modified body plus the reason tags it applied. Annotators are
// pure functions of their inputs; one that finds nothing notable returns
// the body unchanged with no tags.
type Annotator interface {
	Name() string
	Annotate(body string, facts Facts) (string, []string, error)
}

// Pipeline runs registered annotators in a fixed order, threading the body
// forward and accumulating reason tags.
type Pipeline struct {
	annotators []Annotator
	logger     *zap.Logger
}

// NewPipeline builds a pipeline. Order is significant: each annotator sees
// the body as left by the previous one.
func NewPipeline(logger *zap.Logger, annotators ...Annotator) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{annotators: annotators, logger: logger}
}

// Run applies every annotator to the section. An annotator failure drops
// only that annotator's contribution; the rest of the pipeline still runs.
func (p *Pipeline) Run(sectionLabel, body string, facts Facts) (string, []string) {
	var reasons []string
	for _, a := range p.annotators {
		next, tags, err := a.Annotate(body, facts)
		if err != nil {
			p.logger.Warn("annotator failed, skipping",
				zap.String("annotator", a.Name()),
				zap.String("section", sectionLabel),
				zap.Error(err))
			continue
		}
		body = next
		reasons = append(reasons, tags...)
	}
	return body, reasons
}
