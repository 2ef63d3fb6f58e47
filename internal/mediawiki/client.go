// Package mediawiki implements a minimal MediaWiki action API client used
// to fetch page text, save edits, and look up the facts the annotation
// pipeline consumes.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config controls the API client.
type Config struct {
	// APIURL is the full api.php endpoint, e.g. https://example.org/w/api.php.
	APIURL    string
	UserAgent string
	Timeout   time.Duration
	// EditsPerMinute caps the save rate. Zero disables the limiter.
	EditsPerMinute float64
}

// Client talks to a single MediaWiki installation.
type Client struct {
	apiURL      string
	userAgent   string
	httpClient  *http.Client
	editLimiter *rate.Limiter
	retry       *retryPolicy
	logger      *zap.Logger
}

// New builds a Client. The underlying http.Client keeps a cookie jar so
// the csrf token stays bound to its session.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("wiki.api_url is required")
	}
	if _, err := url.Parse(cfg.APIURL); err != nil {
		return nil, fmt.Errorf("parse wiki.api_url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	editRate := rate.Inf
	if cfg.EditsPerMinute > 0 {
		editRate = rate.Limit(cfg.EditsPerMinute / 60.0)
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "clerkbot"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiURL:      cfg.APIURL,
		userAgent:   userAgent,
		httpClient:  &http.Client{Timeout: timeout, Jar: jar},
		editLimiter: rate.NewLimiter(editRate, 1),
		retry:       newRetryPolicy(),
		logger:      logger,
	}, nil
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("mediawiki api error %s: %s", e.Code, e.Info)
}

type apiResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Revisions []struct {
				Slots struct {
					Main struct {
						Content string `json:"content"`
					} `json:"main"`
				} `json:"slots"`
			} `json:"revisions"`
		} `json:"pages"`
		Tokens   map[string]string `json:"tokens"`
		Blocks   []blockEntry      `json:"blocks"`
		AbuseLog []abuseLogEntry   `json:"abuselog"`
	} `json:"query"`
	Edit struct {
		Result string `json:"result"`
	} `json:"edit"`
}

type blockEntry struct {
	User string `json:"user"`
	By   string `json:"by"`
}

type abuseLogEntry struct {
	ID        int64  `json:"id"`
	FilterID  string `json:"filter_id"`
	Result    string `json:"result"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
}

// PageText returns the current wikitext of a page. A missing page is an
// error; use PageTextIfExists when absence is expected.
func (c *Client) PageText(ctx context.Context, title string) (string, error) {
	text, exists, err := c.PageTextIfExists(ctx, title)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("page %q does not exist", title)
	}
	return text, nil
}

// PageTextIfExists returns the page wikitext and whether the page exists.
func (c *Client) PageTextIfExists(ctx context.Context, title string) (string, bool, error) {
	params := url.Values{
		"action":        {"query"},
		"prop":          {"revisions"},
		"rvprop":        {"content"},
		"rvslots":       {"main"},
		"titles":        {title},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	resp, err := c.get(ctx, params)
	if err != nil {
		return "", false, fmt.Errorf("fetch page %q: %w", title, err)
	}
	if len(resp.Query.Pages) == 0 {
		return "", false, fmt.Errorf("fetch page %q: empty query response", title)
	}
	page := resp.Query.Pages[0]
	if page.Missing {
		return "", false, nil
	}
	if len(page.Revisions) == 0 {
		return "", false, fmt.Errorf("fetch page %q: no revisions in response", title)
	}
	return page.Revisions[0].Slots.Main.Content, true, nil
}

// SavePage writes new page text with the given edit summary. Saves are
// throttled by the configured edit rate.
func (c *Client) SavePage(ctx context.Context, title, text, summary string) error {
	if err := c.editLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("edit rate limit: %w", err)
	}
	token, err := c.csrfToken(ctx)
	if err != nil {
		return err
	}
	form := url.Values{
		"action":        {"edit"},
		"title":         {title},
		"text":          {text},
		"summary":       {summary},
		"bot":           {"1"},
		"token":         {token},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	resp, err := c.post(ctx, form)
	if err != nil {
		return fmt.Errorf("save page %q: %w", title, err)
	}
	if resp.Edit.Result != "Success" {
		return fmt.Errorf("save page %q: edit result %q", title, resp.Edit.Result)
	}
	c.logger.Info("saved page",
		zap.String("title", title),
		zap.String("summary", summary),
	)
	return nil
}

func (c *Client) csrfToken(ctx context.Context) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"meta":          {"tokens"},
		"type":          {"csrf"},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	resp, err := c.get(ctx, params)
	if err != nil {
		return "", fmt.Errorf("fetch csrf token: %w", err)
	}
	token := resp.Query.Tokens["csrftoken"]
	if token == "" {
		return "", fmt.Errorf("fetch csrf token: empty token in response")
	}
	return token, nil
}

// get issues a read request with retries for transient failures.
func (c *Client) get(ctx context.Context, params url.Values) (*apiResponse, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.send(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !c.retry.shouldRetry(err, attempt) {
			return nil, lastErr
		}
		delay := c.retry.backoff(attempt)
		c.logger.Debug("retrying api request",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// post issues a write request. Writes are not retried.
func (c *Client) post(ctx context.Context, form url.Values) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req)
}

func (c *Client) send(req *http.Request) (*apiResponse, error) {
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return &out, nil
}

type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d", e.code)
}
