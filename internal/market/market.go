// Package market holds the venue-neutral vocabulary shared by the exchange, strategy and execution layers.
package market

import "time"

// Side is the direction of an order.
type Side string

const (
	// Bid buys.
	Bid Side = "bid"
	// Ask sells.
	Ask Side = "ask"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// OrderType selects how the venue treats an unfilled remainder.
type OrderType string

const (
	// Limit orders rest on the book until filled or cancelled.
	Limit OrderType = "limit"
	// IOC orders trade against available liquidity and cancel the rest.
	IOC OrderType = "ioc"
)

// Instrument is a tradable product as listed by the venue.
type Instrument struct {
	ID       string
	TickSize float64
}

// Level is one aggregated price level of an order book.
type Level struct {
	Price  float64
	Volume int
}

// Book is a top-of-book snapshot. Bids are sorted descending and asks ascending.
type Book struct {
	InstrumentID string
	Bids         []Level
	Asks         []Level
	Ts           time.Time
}

// BestBid returns the highest bid, if any.
func (b *Book) BestBid() (float64, bool) {
	if b == nil || len(b.Bids) == 0 {
		return 0, false
	}
	return b.Bids[0].Price, true
}

// BestAsk returns the lowest ask, if any.
func (b *Book) BestAsk() (float64, bool) {
	if b == nil || len(b.Asks) == 0 {
		return 0, false
	}
	return b.Asks[0].Price, true
}

// Levels returns the book side that rests orders of the given side.
func (b *Book) Levels(side Side) []Level {
	if b == nil {
		return nil
	}
	if side == Bid {
		return b.Bids
	}
	return b.Asks
}

// TwoSided reports whether the book has at least one bid and one ask.
func (b *Book) TwoSided() bool {
	return b != nil && len(b.Bids) > 0 && len(b.Asks) > 0
}

// Order is an insert request sent to a venue.
type Order struct {
	InstrumentID string
	Side         Side
	Type         OrderType
	Price        float64
	Volume       int
}

// ActionKind enumerates the mutations the engine requests of a venue.
type ActionKind string

const (
	// ActionCancelAll removes every outstanding order for the instrument.
	ActionCancelAll ActionKind = "cancel_all"
	// ActionInsertLimit places a resting limit order.
	ActionInsertLimit ActionKind = "insert_limit"
	// ActionInsertIOC places an immediate-or-cancel order.
	ActionInsertIOC ActionKind = "insert_ioc"
)

// Action is one step of an instrument's plan for the cycle.
type Action struct {
	Kind  ActionKind
	Order Order
}

// CancelAll builds a cancel action for an instrument.
func CancelAll(instrumentID string) Action {
	return Action{Kind: ActionCancelAll, Order: Order{InstrumentID: instrumentID}}
}

// InsertLimit builds a limit insert action.
func InsertLimit(instrumentID string, side Side, price float64, volume int) Action {
	return Action{Kind: ActionInsertLimit, Order: Order{InstrumentID: instrumentID, Side: side, Type: Limit, Price: price, Volume: volume}}
}

// InsertIOC builds an immediate-or-cancel insert action.
func InsertIOC(instrumentID string, side Side, price float64, volume int) Action {
	return Action{Kind: ActionInsertIOC, Order: Order{InstrumentID: instrumentID, Side: side, Type: IOC, Price: price, Volume: volume}}
}
