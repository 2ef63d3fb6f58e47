// Package merge integrates newly archived section bodies into destination
// archive documents. The grouped variant files sections under matching
// top-level headers; the rolling variant appends to a single flat list
// bounded by a capacity window.
package merge

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jvaisto/clerkbot/internal/archiver"
	"github.com/jvaisto/clerkbot/internal/segment"
)

// ErrUnparseableDestination is returned when an existing, non-empty
// destination yields no top-level groups. Appending blindly there would
// risk silently mangling previously archived content, so the run fails
// loudly instead.
var ErrUnparseableDestination = errors.New("destination cannot be parsed into groups")

// Grouped appends the batch to dest, filing each section under the
// top-level group whose header matches its label. Missing groups are
// created at the end of the document, in order of first appearance in the
// batch. An empty dest starts from preamble. The merge has no
// deduplication: callers run it exactly once per pass.
func Grouped(dest, preamble string, batch []archiver.ArchivedSection, groupHeader *regexp.Regexp) (string, error) {
	if len(batch) == 0 {
		return dest, nil
	}
	if dest == "" {
		dest = preamble
	}

	pending := groupBatch(batch)

	doc := segment.Segment(dest, groupHeader)
	if len(doc.Sections) == 0 && unparseable(dest, preamble) {
		return "", fmt.Errorf("merge into existing archive: %w", ErrUnparseableDestination)
	}

	var out strings.Builder
	out.WriteString(doc.Preface)
	for _, group := range doc.Sections {
		out.WriteString(group.Body)
		if bodies, ok := pending.take(group.Label); ok {
			out.WriteString("\n" + strings.Join(bodies, "\n") + "\n")
		}
	}

	// Whatever found no existing group becomes a new one, preserving the
	// order labels first appeared in the batch.
	for _, label := range pending.order {
		bodies, ok := pending.take(label)
		if !ok {
			continue
		}
		out.WriteString(fmt.Sprintf("\n== %s ==\n%s\n", label, strings.Join(bodies, "\n")))
	}

	return out.String(), nil
}

// Rolling appends new section bodies to a flat archive and keeps only the
// last maxSections entries, evicting from the front. maxSections <= 0
// disables the capacity window. An empty dest starts from preamble.
func Rolling(dest, preamble string, newBodies []string, maxSections int, sectionHeader *regexp.Regexp) string {
	if len(newBodies) == 0 {
		return dest
	}
	if dest == "" {
		dest = preamble
	}

	doc := segment.Segment(dest, sectionHeader)
	bodies := make([]string, 0, len(doc.Sections)+len(newBodies))
	for _, s := range doc.Sections {
		bodies = append(bodies, s.Body)
	}
	for _, b := range newBodies {
		if !strings.HasSuffix(b, "\n") {
			b += "\n"
		}
		bodies = append(bodies, b)
	}

	if maxSections > 0 && len(bodies) > maxSections {
		bodies = bodies[len(bodies)-maxSections:]
	}

	return doc.Preface + strings.Join(bodies, "")
}

// pendingGroups tracks batch bodies by group label in first-appearance
// order. Mapping iteration order must never leak into output.
type pendingGroups struct {
	order  []string
	bodies map[string][]string
}

func groupBatch(batch []archiver.ArchivedSection) *pendingGroups {
	p := &pendingGroups{bodies: make(map[string][]string)}
	for _, s := range batch {
		body := strings.TrimRight(s.Body, "\n")
		if _, seen := p.bodies[s.GroupLabel]; !seen {
			p.order = append(p.order, s.GroupLabel)
		}
		p.bodies[s.GroupLabel] = append(p.bodies[s.GroupLabel], body)
	}
	return p
}

func (p *pendingGroups) take(label string) ([]string, bool) {
	bodies, ok := p.bodies[label]
	if !ok {
		return nil, false
	}
	delete(p.bodies, label)
	return bodies, true
}

// unparseable reports whether existing destination content looks like it
// should have contained groups but did not parse into any. A destination
// still equal to its preamble (or blank) is a legitimate fresh archive.
func unparseable(dest, preamble string) bool {
	trimmed := strings.TrimSpace(dest)
	return trimmed != "" && trimmed != strings.TrimSpace(preamble)
}
