package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"quotebot-go/internal/metrics"
	"quotebot-go/internal/signal"
)

// FeedHTTP polls a JSON endpoint for new posts.
const FeedHTTP = "http"

type httpFeedResponse struct {
	Posts  []signal.Feed `json:"posts"`
	Cursor string        `json:"cursor"`
}

// HTTPFeed polls an endpoint that returns {"posts":[...],"cursor":"..."}; the cursor is sent back as
// the "since" query parameter so each post is seen once.
type HTTPFeed struct {
	*QueueFeed
	url          string
	log          zerolog.Logger
	client       *http.Client
	pollInterval time.Duration
	token        string
	cursor       string
}

// HTTPFeedOption configures an HTTPFeed.
type HTTPFeedOption func(*HTTPFeed)

// WithPollInterval overrides the default poll cadence.
func WithPollInterval(d time.Duration) HTTPFeedOption {
	return func(f *HTTPFeed) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithHTTPClient swaps the client used for polling.
func WithHTTPClient(c *http.Client) HTTPFeedOption {
	return func(f *HTTPFeed) {
		if c != nil {
			f.client = c
		}
	}
}

// WithBearerToken sends Authorization: Bearer <token> on every poll.
func WithBearerToken(token string) HTTPFeedOption {
	return func(f *HTTPFeed) { f.token = token }
}

// WithPollBufferSize bounds how many undrained posts the feed keeps; the oldest are dropped first.
func WithPollBufferSize(n int) HTTPFeedOption {
	return func(f *HTTPFeed) {
		if n > 0 {
			f.QueueFeed = NewQueueFeed(n)
		}
	}
}

// NewHTTPFeed builds a polling feed for endpoint.
func NewHTTPFeed(endpoint string, log zerolog.Logger, opts ...HTTPFeedOption) *HTTPFeed {
	f := &HTTPFeed{
		QueueFeed:    NewQueueFeed(defaultBufferSize),
		url:          endpoint,
		log:          log,
		client:       &http.Client{Timeout: 10 * time.Second},
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run polls until ctx is cancelled. Poll failures are logged and retried on the next tick.
func (f *HTTPFeed) Run(ctx context.Context) error {
	if f.url == "" {
		return fmt.Errorf("http feed requires a url")
	}
	if err := f.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		f.log.Warn().Err(err).Msg("initial feed poll failed")
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				f.log.Warn().Err(err).Msg("feed poll failed")
			}
		}
	}
}

// Poll fetches one page of posts and queues them.
func (f *HTTPFeed) Poll(ctx context.Context) error {
	target, err := url.Parse(f.url)
	if err != nil {
		return fmt.Errorf("parse feed url: %w", err)
	}
	if f.cursor != "" {
		q := target.Query()
		q.Set("since", f.cursor)
		target.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "quotebot-go/1.0")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload httpFeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	now := time.Now().UTC()
	queued := 0
	for _, feed := range payload.Posts {
		if strings.TrimSpace(feed.Post) == "" {
			continue
		}
		if feed.Timestamp.IsZero() {
			feed.Timestamp = now
		}
		f.Push(feed)
		queued++
	}
	metrics.FeedsReceived.Add(float64(queued))
	if payload.Cursor != "" {
		f.cursor = payload.Cursor
	}
	return nil
}
