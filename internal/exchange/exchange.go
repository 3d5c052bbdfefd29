// Package exchange defines the venue the engine trades against and hosts its connectors and feed sources.
package exchange

import (
	"context"
	"errors"

	"quotebot-go/internal/market"
	"quotebot-go/internal/signal"
)

const (
	// ProviderPaper runs against the in-memory simulated venue.
	ProviderPaper = "paper"
)

var (
	// ErrOrderRejected wraps every insert the venue declines (tick, volume or limit violations).
	ErrOrderRejected = errors.New("order rejected")
	// ErrUnknownInstrument is returned for instrument IDs the venue does not list.
	ErrUnknownInstrument = errors.New("unknown instrument")
	// ErrNotConnected is returned when a call is made before Connect.
	ErrNotConnected = errors.New("not connected")
)

// Exchange is everything the engine needs from a venue. All calls block until the venue answers.
type Exchange interface {
	Connect(ctx context.Context) error
	ListInstruments(ctx context.Context) (map[string]market.Instrument, error)
	// GetOrderBook returns nil when the venue has no book for the instrument.
	GetOrderBook(ctx context.Context, instrumentID string) (*market.Book, error)
	GetPositions(ctx context.Context) (map[string]int, error)
	PollNewFeeds(ctx context.Context) ([]signal.Feed, error)
	CancelAllOrders(ctx context.Context, instrumentID string) error
	InsertOrder(ctx context.Context, order market.Order) (string, error)
}

// Summary is an account overview some venues can report.
type Summary struct {
	StartingCash float64
	Cash         float64
	Equity       float64
	PnL          float64
	Positions    map[string]int
}

// Reporter is implemented by venues that can summarise the account.
type Reporter interface {
	Summary(ctx context.Context) (Summary, error)
}
