// Package segment splits page text into an ordered preface plus sections
// delimited by configurable header lines.
package segment

import (
	"regexp"
	"strings"

	"github.com/jvaisto/clerkbot/internal/archiver"
)

// Segment splits text on lines matching header. The header pattern must be
// multiline-anchored and capture the section label in its first group.
// The preface is everything before the first header, returned verbatim.
// Each section spans from its header to the start of the next one (or end
// of text) and is normalized to end with a single trailing newline. When no
// header matches, the whole text is returned as preface with no sections.
func Segment(text string, header *regexp.Regexp) archiver.Document {
	matches := header.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return archiver.Document{Preface: text}
	}

	doc := archiver.Document{Preface: text[:matches[0][0]]}
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		doc.Sections = append(doc.Sections, archiver.Section{
			Label: label(text, m),
			Body:  normalizeTail(text[m[0]:end]),
		})
	}
	return doc
}

// SegmentGroups performs two-level segmentation: text is first split into
// top-level groups, then each group body is split into thread sections.
// Text inside a group but before its first thread header becomes the
// group's preface.
func SegmentGroups(text string, groupHeader, threadHeader *regexp.Regexp) (string, []archiver.Group) {
	top := Segment(text, groupHeader)
	groups := make([]archiver.Group, 0, len(top.Sections))
	for _, g := range top.Sections {
		inner := Segment(g.Body, threadHeader)
		groups = append(groups, archiver.Group{
			Label:    g.Label,
			Preface:  inner.Preface,
			Sections: inner.Sections,
		})
	}
	return top.Preface, groups
}

func label(text string, m []int) string {
	if len(m) < 4 || m[2] < 0 {
		return ""
	}
	return strings.TrimSpace(text[m[2]:m[3]])
}

// normalizeTail guarantees a section body ends with exactly one newline,
// independent of how much trailing whitespace the source carried.
func normalizeTail(s string) string {
	return strings.TrimRight(s, " \t\n") + "\n"
}
