// Package classify derives a section's closure status from a configurable
// closing-marker vocabulary and extracts its most recent signature
// timestamp.
package classify

import (
	"regexp"
	"strings"

	"github.com/jvaisto/clerkbot/internal/archiver"
)

// DefaultOpenValues are the status-argument values treated as "still open"
// when a marker does not configure its own list.
var DefaultOpenValues = []string{"", "hold", "onhold", "on hold", "in progress", "inprogress"}

// Marker describes one closing-marker template: its name, the status values
// that keep a section open, and what a bare (argument-less) occurrence
// means. The argument may be positional ({{status|done}}) or named
// ({{sr-request|status=done}}); both are accepted.
type Marker struct {
	Name string
	// OpenValues are compared case-insensitively after trimming. Nil means
	// DefaultOpenValues.
	OpenValues []string
	// BareClosed controls whether a marker with no status argument closes
	// the section. Bare markers on request pages conventionally mean "not
	// yet handled", so the default is open.
	BareClosed bool
}

// Classifier resolves section status against a set of configured markers.
type Classifier struct {
	markers []compiledMarker
}

type compiledMarker struct {
	re         *regexp.Regexp
	openValues map[string]struct{}
	bareClosed bool
}

// New compiles a classifier from marker definitions.
func New(markers []Marker) *Classifier {
	c := &Classifier{}
	for _, m := range markers {
		open := m.OpenValues
		if open == nil {
			open = DefaultOpenValues
		}
		values := make(map[string]struct{}, len(open))
		for _, v := range open {
			values[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
		}
		c.markers = append(c.markers, compiledMarker{
			re:         markerPattern(m.Name),
			openValues: values,
			bareClosed: m.BareClosed,
		})
	}
	return c
}

// markerPattern matches a template invocation of the given name, capturing
// its argument list (everything after the first pipe).
func markerPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)\{\{\s*` + regexp.QuoteMeta(name) + `\s*(?:\|([^{}]*))?\}\}`)
}

// Classify reports whether the section body carries a recognized closing
// marker whose status argument is not an open value. Sections without any
// recognized marker are open.
func (c *Classifier) Classify(body string) archiver.Status {
	for _, m := range c.markers {
		loc := m.re.FindStringSubmatchIndex(body)
		if loc == nil {
			continue
		}
		// loc[2] < 0 means the marker carried no pipe at all.
		bare := loc[2] < 0
		arg := ""
		if !bare {
			var ok bool
			arg, ok = statusArgument(body[loc[2]:loc[3]])
			bare = !ok
		}
		if bare {
			if m.bareClosed {
				return archiver.StatusClosed
			}
			continue
		}
		if _, open := m.openValues[arg]; !open {
			return archiver.StatusClosed
		}
	}
	return archiver.StatusOpen
}

// statusArgument extracts the status value from a template argument list.
// A named status parameter wins over the first positional one. The second
// return value is false when no status-bearing argument is present (only
// unrelated named parameters).
func statusArgument(args string) (string, bool) {
	parts := strings.Split(args, "|")
	positional := ""
	havePositional := false
	for _, part := range parts {
		if name, value, found := strings.Cut(part, "="); found {
			if strings.ToLower(strings.TrimSpace(name)) == "status" {
				return strings.ToLower(strings.TrimSpace(value)), true
			}
			continue
		}
		if !havePositional {
			positional = part
			havePositional = true
		}
	}
	if havePositional {
		return strings.ToLower(strings.TrimSpace(positional)), true
	}
	return "", false
}
