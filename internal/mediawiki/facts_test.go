package mediawiki

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func TestUserBlock(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "blocks", r.URL.Query().Get("list"))
		require.Equal(t, "Vandal", r.URL.Query().Get("bkusers"))
		fmt.Fprint(w, `{"query":{"blocks":[{"user":"Vandal","by":"AdminUser"}]}}`)
	})

	blocked, by, err := client.UserBlock(context.Background(), "Vandal")
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, "AdminUser", by)
}

func TestUserBlockNotBlocked(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"query":{"blocks":[]}}`)
	})

	blocked, by, err := client.UserBlock(context.Background(), "GoodEditor")
	require.NoError(t, err)
	require.False(t, blocked)
	require.Empty(t, by)
}

func TestRecentFilterHits(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "abuselog", r.URL.Query().Get("list"))
		require.Equal(t, "Reporter", r.URL.Query().Get("afluser"))
		require.Equal(t, "10", r.URL.Query().Get("afllimit"))
		fmt.Fprint(w, `{"query":{"abuselog":[
			{"id":42,"filter_id":"11","result":"disallow","title":"Some article","timestamp":"2021-06-15T11:30:00Z"},
			{"id":41,"filter_id":"","result":"warn","title":"Other article","timestamp":"2021-06-15T10:00:00Z"}
		]}}`)
	})

	hits, err := client.RecentFilterHits(context.Background(), "Reporter", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, int64(42), hits[0].ID)
	require.Equal(t, "11", hits[0].FilterID)
	require.Equal(t, "Some article", hits[0].PageTitle)
	require.Empty(t, hits[1].FilterID)
	require.Equal(t, time.Date(2021, 6, 15, 10, 0, 0, 0, time.UTC), hits[1].Timestamp)
}

func TestFactProviderAssemblesFacts(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("list") {
		case "blocks":
			fmt.Fprint(w, `{"query":{"blocks":[{"user":"Reporter","by":"AdminUser"}]}}`)
		case "abuselog":
			fmt.Fprint(w, `{"query":{"abuselog":[{"id":7,"filter_id":"3","result":"disallow","title":"Target","timestamp":"2021-06-15T11:45:00Z"}]}}`)
		default:
			t.Errorf("unexpected request: %s", r.URL.RawQuery)
		}
	})

	now := time.Date(2021, 6, 15, 12, 0, 0, 0, time.UTC)
	provider := NewFactProvider(client, fixedClock{now: now})

	facts, err := provider.Facts(context.Background(), " Reporter ", "section body")
	require.NoError(t, err)
	require.Equal(t, "Reporter", facts.SectionUser)
	require.True(t, facts.Blocked)
	require.Equal(t, "AdminUser", facts.BlockedBy)
	require.Len(t, facts.FilterHits, 1)
	require.Equal(t, now, facts.Now)

	hit := facts.RecentHit(3 * time.Hour)
	require.NotNil(t, hit)
	require.Equal(t, int64(7), hit.ID)
}

func TestFactProviderEmptyLabelSkipsLookups(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(_ http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s", r.URL.RawQuery)
	})

	now := time.Date(2021, 6, 15, 12, 0, 0, 0, time.UTC)
	provider := NewFactProvider(client, fixedClock{now: now})

	facts, err := provider.Facts(context.Background(), "   ", "body")
	require.NoError(t, err)
	require.Empty(t, facts.SectionUser)
	require.False(t, facts.Blocked)
}
