package mediawiki

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jvaisto/clerkbot/internal/annotate"
	"github.com/jvaisto/clerkbot/internal/archiver"
)

// UserBlock reports whether the named user is currently blocked, and by
// whom.
func (c *Client) UserBlock(ctx context.Context, user string) (bool, string, error) {
	params := url.Values{
		"action":        {"query"},
		"list":          {"blocks"},
		"bkusers":       {user},
		"bkprop":        {"user|by"},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	resp, err := c.get(ctx, params)
	if err != nil {
		return false, "", fmt.Errorf("look up block for %q: %w", user, err)
	}
	if len(resp.Query.Blocks) == 0 {
		return false, "", nil
	}
	return true, resp.Query.Blocks[0].By, nil
}

// RecentFilterHits returns the user's latest abuse-filter log entries,
// newest first. A private filter comes back with an empty FilterID.
func (c *Client) RecentFilterHits(ctx context.Context, user string, limit int) ([]annotate.FilterHit, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{
		"action":        {"query"},
		"list":          {"abuselog"},
		"afluser":       {user},
		"afllimit":      {fmt.Sprintf("%d", limit)},
		"aflprop":       {"ids|filter|result|title|timestamp"},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	resp, err := c.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("look up filter hits for %q: %w", user, err)
	}
	hits := make([]annotate.FilterHit, 0, len(resp.Query.AbuseLog))
	for _, entry := range resp.Query.AbuseLog {
		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse filter hit timestamp %q: %w", entry.Timestamp, err)
		}
		hits = append(hits, annotate.FilterHit{
			ID:        entry.ID,
			FilterID:  entry.FilterID,
			Result:    entry.Result,
			PageTitle: entry.Title,
			Timestamp: ts,
		})
	}
	return hits, nil
}

// FactProvider builds annotation fact bags from live wiki lookups. The
// section label is taken as the reporting user's name, which is how the
// report pages are structured.
type FactProvider struct {
	client *Client
	clock  archiver.Clock
}

// NewFactProvider wires a Client and Clock into an annotate.Provider.
func NewFactProvider(client *Client, clock archiver.Clock) *FactProvider {
	return &FactProvider{client: client, clock: clock}
}

// Facts implements annotate.Provider.
func (p *FactProvider) Facts(ctx context.Context, sectionLabel, _ string) (annotate.Facts, error) {
	user := strings.TrimSpace(sectionLabel)
	facts := annotate.Facts{
		SectionUser: user,
		Now:         p.clock.Now(),
	}
	if user == "" {
		return facts, nil
	}
	blocked, by, err := p.client.UserBlock(ctx, user)
	if err != nil {
		return facts, err
	}
	facts.Blocked = blocked
	facts.BlockedBy = by

	hits, err := p.client.RecentFilterHits(ctx, user, 10)
	if err != nil {
		return facts, err
	}
	facts.FilterHits = hits
	return facts, nil
}
