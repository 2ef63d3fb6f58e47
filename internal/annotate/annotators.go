package annotate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// reportHitMaxAge bounds how old a filter hit may be while still being
// treated as the one a report is about.
const reportHitMaxAge = 3 * time.Hour

// ensureNewline pads a body so notices always start on their own line.
func ensureNewline(body string) string {
	if strings.HasSuffix(body, "\n") {
		return body
	}
	return body + "\n"
}

// BlockedUserNotice appends a notice when the reporting user is blocked.
type BlockedUserNotice struct {
	// Template receives the user name and the blocking admin.
	Template string
}

// NewBlockedUserNotice builds the annotator with its default notice text.
func NewBlockedUserNotice() *BlockedUserNotice {
	return &BlockedUserNotice{Template: ":{{EFFP|b|%s|%s|bot=1}} ~~~~\n"}
}

// Name implements Annotator.
func (*BlockedUserNotice) Name() string { return "blocked-user-notice" }

// Annotate implements Annotator.
func (a *BlockedUserNotice) Annotate(body string, facts Facts) (string, []string, error) {
	if facts.UserLookupFailed || !facts.Blocked {
		return body, nil, nil
	}
	body = ensureNewline(body)
	body += fmt.Sprintf(a.Template, facts.SectionUser, facts.BlockedBy)
	return body, []string{"Notify that user is blocked"}, nil
}

// NoFiltersTriggered notes that no recent filter hits exist for the actor
// when the report also names no page, so a human need not dig for one.
type NoFiltersTriggered struct {
	TitlePattern *regexp.Regexp
	Notice       string
}

// NewNoFiltersTriggered builds the annotator. titlePattern locates the
// reported page name in the body (first capture group).
func NewNoFiltersTriggered(titlePattern *regexp.Regexp) *NoFiltersTriggered {
	return &NoFiltersTriggered{
		TitlePattern: titlePattern,
		Notice:       ":{{EFFP|nofilterstriggered|bot=1}} ~~~~\n",
	}
}

// Name implements Annotator.
func (*NoFiltersTriggered) Name() string { return "no-filters-triggered" }

// Annotate implements Annotator.
func (a *NoFiltersTriggered) Annotate(body string, facts Facts) (string, []string, error) {
	if facts.RecentHit(reportHitMaxAge) != nil {
		return body, nil, nil
	}
	if title, ok := reportedTitle(a.TitlePattern, body); ok && title != "" {
		return body, nil, nil
	}
	body = ensureNewline(body) + a.Notice
	return body, []string{"Notify that no filters were triggered"}, nil
}

// PageNameRepair fills in a missing reported page name, or corrects one
// that differs from the filter log only in an obvious way (case or
// underscores), using the actor's most recent filter hit.
type PageNameRepair struct {
	TitlePattern *regexp.Regexp
	// Replacement receives the corrected page title.
	Replacement   string
	AddedNotice   string
	FixedNotice   string
	WrongPatterns []*regexp.Regexp
}

// NewPageNameRepair builds the annotator with the original notice texts.
func NewPageNameRepair(titlePattern *regexp.Regexp, wrongPatterns []*regexp.Regexp) *PageNameRepair {
	return &PageNameRepair{
		TitlePattern:  titlePattern,
		Replacement:   ";Page you were editing\n: [[%s]]\n",
		AddedNotice:   ":{{EFFP|pagenameadded|bot=1}} ~~~~\n",
		FixedNotice:   ":{{EFFP|pagenamefixed|bot=1}} ~~~~\n",
		WrongPatterns: wrongPatterns,
	}
}

// Name implements Annotator.
func (*PageNameRepair) Name() string { return "page-name-repair" }

// Annotate implements Annotator.
func (a *PageNameRepair) Annotate(body string, facts Facts) (string, []string, error) {
	hit := facts.RecentHit(reportHitMaxAge)
	if hit == nil || hit.PageTitle == "" {
		return body, nil, nil
	}

	title, located := reportedTitle(a.TitlePattern, body)
	missing := !located || title == ""
	wrong := false
	if !missing && title != hit.PageTitle {
		if titlesEquivalent(title, hit.PageTitle) {
			wrong = true
		}
		for _, pattern := range a.WrongPatterns {
			if m := pattern.FindStringSubmatch(title); m != nil && titlesEquivalent(m[1], hit.PageTitle) {
				wrong = true
			}
		}
	}
	if !missing && !wrong {
		return body, nil, nil
	}

	replaced := a.TitlePattern.ReplaceAllString(body, fmt.Sprintf(a.Replacement, hit.PageTitle))
	if replaced == body {
		// Could not substitute, probably a malformed report. Leave it be.
		return body, nil, nil
	}
	replaced = ensureNewline(replaced)
	if missing {
		return replaced + a.AddedNotice, []string{"Add affected page name"}, nil
	}
	return replaced + a.FixedNotice, []string{"Fix affected page name"}, nil
}

// PrivateFilterNotice notes when the triggering filter is private, since
// the reporter cannot see which rule they hit.
type PrivateFilterNotice struct {
	// Template receives the hit ID inside an HTML comment.
	Template string
}

// NewPrivateFilterNotice builds the annotator with its default text.
func NewPrivateFilterNotice() *PrivateFilterNotice {
	return &PrivateFilterNotice{Template: ":{{EFFP|p|bot=1}}<!-- %d --> ~~~~\n"}
}

// Name implements Annotator.
func (*PrivateFilterNotice) Name() string { return "private-filter-notice" }

// Annotate implements Annotator.
func (a *PrivateFilterNotice) Annotate(body string, facts Facts) (string, []string, error) {
	if facts.RecentHit(reportHitMaxAge) == nil {
		return body, nil, nil
	}
	for _, hit := range facts.FilterHits {
		// The filter id is reported empty when the filter is private.
		if hit.FilterID != "" {
			continue
		}
		if hit.Result != "disallow" && hit.Result != "warn" {
			continue
		}
		body = ensureNewline(body) + fmt.Sprintf(a.Template, hit.ID)
		return body, []string{"Add private filter notice"}, nil
	}
	return body, nil, nil
}

func reportedTitle(pattern *regexp.Regexp, body string) (string, bool) {
	if pattern == nil {
		return "", false
	}
	m := pattern.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	title := strings.TrimSpace(m[1])
	if title == "Page not specified" {
		return "", true
	}
	return title, true
}

func titlesEquivalent(first, second string) bool {
	normalize := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", " "))
	}
	return normalize(first) == normalize(second)
}
