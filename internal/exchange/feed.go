package exchange

import (
	"strings"
	"sync"

	"quotebot-go/internal/signal"
)

const (
	// FeedQueue keeps feeds in memory; something in-process pushes them.
	FeedQueue = "queue"
	// FeedWebsocket streams feeds from a websocket endpoint.
	FeedWebsocket = "websocket"
)

// FeedSource buffers feeds between polls.
type FeedSource interface {
	// Drain returns everything received since the previous call and empties the buffer.
	Drain() []signal.Feed
}

// QueueFeed is an in-memory FeedSource.
type QueueFeed struct {
	mu      sync.Mutex
	pending []signal.Feed
	max     int
}

// NewQueueFeed builds a queue that keeps at most max feeds (0 means unbounded); the oldest are dropped first.
func NewQueueFeed(max int) *QueueFeed {
	if max < 0 {
		max = 0
	}
	return &QueueFeed{max: max}
}

// Push appends feeds. Blank posts are ignored.
func (q *QueueFeed) Push(feeds ...signal.Feed) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, f := range feeds {
		if strings.TrimSpace(f.Post) == "" {
			continue
		}
		q.pending = append(q.pending, f)
	}
	if q.max > 0 && len(q.pending) > q.max {
		q.pending = append([]signal.Feed(nil), q.pending[len(q.pending)-q.max:]...)
	}
}

// PushPosts is Push for bare text.
func (q *QueueFeed) PushPosts(posts ...string) {
	feeds := make([]signal.Feed, 0, len(posts))
	for _, p := range posts {
		feeds = append(feeds, signal.Feed{Post: p})
	}
	q.Push(feeds...)
}

// Drain implements FeedSource.
func (q *QueueFeed) Drain() []signal.Feed {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Len reports how many feeds are waiting.
func (q *QueueFeed) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
