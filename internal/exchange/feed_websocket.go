package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quotebot-go/internal/metrics"
	"quotebot-go/internal/signal"
)

const (
	defaultMaxBackoff = 30 * time.Second
	defaultBufferSize = 1024
)

// WebsocketFeed streams social posts from a websocket endpoint into an in-memory queue.
// Messages are either JSON objects shaped like signal.Feed or plain text posts.
type WebsocketFeed struct {
	*QueueFeed
	url          string
	log          zerolog.Logger
	backoff      time.Duration
	maxBackoff   time.Duration
	pingInterval time.Duration
	header       map[string]string
}

// WebsocketOption configures a WebsocketFeed.
type WebsocketOption func(*WebsocketFeed)

// WithBackoff overrides the initial and maximum reconnect delay.
func WithBackoff(initial, max time.Duration) WebsocketOption {
	return func(f *WebsocketFeed) {
		if initial > 0 {
			f.backoff = initial
		}
		if max > 0 {
			f.maxBackoff = max
		}
	}
}

// WithPingInterval overrides the keepalive ping cadence.
func WithPingInterval(d time.Duration) WebsocketOption {
	return func(f *WebsocketFeed) {
		if d > 0 {
			f.pingInterval = d
		}
	}
}

// WithHeader adds a header to the websocket handshake, e.g. an auth token.
func WithHeader(key, value string) WebsocketOption {
	return func(f *WebsocketFeed) {
		if key != "" && value != "" {
			f.header[key] = value
		}
	}
}

// WithBufferSize bounds how many undrained posts the feed keeps; the oldest are dropped first.
func WithBufferSize(n int) WebsocketOption {
	return func(f *WebsocketFeed) {
		if n > 0 {
			f.QueueFeed = NewQueueFeed(n)
		}
	}
}

// NewWebsocketFeed builds a feed for url. Run must be called to start receiving.
func NewWebsocketFeed(url string, log zerolog.Logger, opts ...WebsocketOption) *WebsocketFeed {
	f := &WebsocketFeed{
		QueueFeed:    NewQueueFeed(defaultBufferSize),
		url:          url,
		log:          log,
		backoff:      time.Second,
		maxBackoff:   defaultMaxBackoff,
		pingInterval: 15 * time.Second,
		header:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run keeps the connection alive, reconnecting with exponential backoff, until ctx is cancelled.
func (f *WebsocketFeed) Run(ctx context.Context) error {
	if f.url == "" {
		return fmt.Errorf("websocket feed requires a url")
	}
	backoff := f.backoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := f.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.log.Warn().Err(err).Dur("retry_in", backoff).Msg("feed stream disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(f.maxBackoff), float64(backoff)*1.8))
	}
}

func (f *WebsocketFeed) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	for k, v := range f.header {
		header.Set(k, v)
	}
	conn, _, err := dialer.DialContext(ctx, f.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("url", f.url).Msg("connected feed stream")

	readTimeout := 2 * f.pingInterval
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(f.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					f.log.Warn().Err(err).Msg("feed ping failed")
					return
				}
			case <-pingCtx.Done():
				// unblock ReadMessage on shutdown
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		feed, err := decodeFeedMessage(message)
		if err != nil {
			f.log.Warn().Err(err).Msg("failed to decode feed message")
			continue
		}
		f.Push(feed)
		metrics.FeedsReceived.Inc()
	}
}

var errEmptyPost = errors.New("empty post")

func decodeFeedMessage(message []byte) (signal.Feed, error) {
	trimmed := strings.TrimSpace(string(message))
	if trimmed == "" {
		return signal.Feed{}, errEmptyPost
	}
	if !strings.HasPrefix(trimmed, "{") {
		return signal.Feed{Post: trimmed, Timestamp: time.Now().UTC()}, nil
	}
	var feed signal.Feed
	if err := json.Unmarshal([]byte(trimmed), &feed); err != nil {
		return signal.Feed{}, fmt.Errorf("decode feed: %w", err)
	}
	if strings.TrimSpace(feed.Post) == "" {
		return signal.Feed{}, errEmptyPost
	}
	if feed.Timestamp.IsZero() {
		feed.Timestamp = time.Now().UTC()
	}
	return feed, nil
}
