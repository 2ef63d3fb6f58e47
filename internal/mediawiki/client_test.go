package mediawiki

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := New(Config{
		APIURL:    ts.URL + "/w/api.php",
		UserAgent: "clerkbot-test",
		Timeout:   5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return client, ts
}

func TestNewRequiresAPIURL(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, zap.NewNop())
	require.Error(t, err)
}

func TestPageTextIfExists(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "clerkbot-test", r.Header.Get("User-Agent"))
		require.Equal(t, "query", r.URL.Query().Get("action"))
		require.Equal(t, "Project:Noticeboard", r.URL.Query().Get("titles"))
		fmt.Fprint(w, `{"query":{"pages":[{"title":"Project:Noticeboard","revisions":[{"slots":{"main":{"content":"== Thread ==\nbody\n"}}}]}]}}`)
	})

	text, exists, err := client.PageTextIfExists(context.Background(), "Project:Noticeboard")
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, "== Thread ==\nbody\n", text)
}

func TestPageTextIfExistsMissingPage(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"query":{"pages":[{"title":"Project:Archive/2021-6","missing":true}]}}`)
	})

	text, exists, err := client.PageTextIfExists(context.Background(), "Project:Archive/2021-6")
	require.NoError(t, err)
	require.False(t, exists)
	require.Empty(t, text)
}

func TestPageTextMissingPageIsError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"query":{"pages":[{"title":"Project:Gone","missing":true}]}}`)
	})

	_, err := client.PageText(context.Background(), "Project:Gone")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestSavePage(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			require.Equal(t, "tokens", r.URL.Query().Get("meta"))
			fmt.Fprint(w, `{"query":{"tokens":{"csrftoken":"token+\\"}}}`)
			return
		}
		require.NoError(t, r.ParseForm())
		require.Equal(t, "edit", r.PostForm.Get("action"))
		require.Equal(t, "Project:Noticeboard", r.PostForm.Get("title"))
		require.Equal(t, "token+\\", r.PostForm.Get("token"))
		require.Equal(t, "1", r.PostForm.Get("bot"))
		require.Equal(t, "Bot clerking: Archive one section", r.PostForm.Get("summary"))
		fmt.Fprint(w, `{"edit":{"result":"Success"}}`)
	})

	err := client.SavePage(context.Background(), "Project:Noticeboard", "new text\n", "Bot clerking: Archive one section")
	require.NoError(t, err)
}

func TestSavePageEditFailure(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `{"query":{"tokens":{"csrftoken":"abc"}}}`)
			return
		}
		fmt.Fprint(w, `{"edit":{"result":"Failure"}}`)
	})

	err := client.SavePage(context.Background(), "Project:Noticeboard", "text", "summary")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Failure")
}

func TestGetRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"query":{"pages":[{"title":"P","revisions":[{"slots":{"main":{"content":"x"}}}]}]}}`)
	})

	text, exists, err := client.PageTextIfExists(context.Background(), "P")
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, "x", text)
	require.Equal(t, int32(2), calls.Load())
}

func TestGetDoesNotRetryAPIErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"error":{"code":"maxlag","info":"waiting for replication"}}`)
	})

	_, _, err := client.PageTextIfExists(context.Background(), "P")
	require.Error(t, err)
	require.Contains(t, err.Error(), "maxlag")
	require.Equal(t, int32(1), calls.Load())
}

func TestRetryPolicyBackoffCapped(t *testing.T) {
	t.Parallel()

	p := newRetryPolicy()
	for attempt := 0; attempt < 10; attempt++ {
		d := p.backoff(attempt)
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.LessOrEqual(t, d, p.maxDelay)
	}
}

func TestRetryPolicyStopsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	p := newRetryPolicy()
	err := fmt.Errorf("transient")
	require.True(t, p.shouldRetry(err, 0))
	require.False(t, p.shouldRetry(err, p.maxAttempts))
	require.False(t, p.shouldRetry(context.Canceled, 0))
	require.False(t, p.shouldRetry(&apiError{Code: "badtoken"}, 0))
	require.True(t, p.shouldRetry(&httpStatusError{code: 503}, 0))
	require.False(t, p.shouldRetry(&httpStatusError{code: 403}, 0))
}
