// Package summary formats a single human-readable change description from
// the actions one archiving pass took.
package summary

import (
	"fmt"
	"strings"

	"github.com/jvaisto/clerkbot/internal/archiver"
)

const prefix = "Bot clerking"

// Compose builds the edit summary for one pass. modified lists the
// sections the annotation pipeline changed, with their reason tags in
// application order; archivedCount is the number of sections moved to the
// archive. The output is never empty when at least one action occurred.
func Compose(archivedCount int, modified []archiver.SectionReasons) string {
	reasons := distinctReasons(modified)

	var parts []string
	switch {
	case len(modified) == 1:
		if len(reasons) <= 3 {
			parts = append(parts, "Processed a section: "+strings.Join(reasons, ", "))
		} else {
			parts = append(parts, "Processed a section")
		}
	case len(modified) > 1:
		if len(reasons) == 1 {
			parts = append(parts, fmt.Sprintf("Process %d sections (%s)", len(modified), reasons[0]))
		} else {
			parts = append(parts, fmt.Sprintf("Process %d sections", len(modified)))
		}
	}

	switch {
	case archivedCount > 1:
		parts = append(parts, fmt.Sprintf("Archive %d sections", archivedCount))
	case archivedCount == 1:
		parts = append(parts, "Archive one section")
	}

	if len(parts) == 0 {
		return prefix
	}
	return prefix + ": " + strings.Join(parts, ", ")
}

// distinctReasons flattens reason tags across sections, keeping
// first-appearance order.
func distinctReasons(modified []archiver.SectionReasons) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, section := range modified {
		for _, reason := range section.Reasons {
			if _, ok := seen[reason]; ok {
				continue
			}
			seen[reason] = struct{}{}
			out = append(out, reason)
		}
	}
	return out
}
