// Package paper simulates an exchange account: cash, signed positions and the fills that moved them.
package paper

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"quotebot-go/internal/market"
)

// ErrPositionLimit is returned when a fill would take a position past the account limit.
var ErrPositionLimit = errors.New("position limit exceeded")

// Fill is one execution against the paper book.
type Fill struct {
	OrderID      string      `json:"order_id"`
	InstrumentID string      `json:"instrument"`
	Side         market.Side `json:"side"`
	Price        float64     `json:"price"`
	Volume       int         `json:"volume"`
	Ts           time.Time   `json:"ts"`
}

// FillRecorder captures paper fills for later inspection.
type FillRecorder interface {
	Record(Fill)
}

// Account tracks virtual cash and signed per-instrument positions.
type Account struct {
	mu            sync.Mutex
	startingCash  float64
	cash          float64
	positionLimit int
	positions     map[string]int
	recorders     []FillRecorder
}

// Snapshot is a copy of the account state marked to the supplied prices.
type Snapshot struct {
	Cash      float64
	Equity    float64
	PnL       float64
	Positions map[string]int
}

// NewAccount constructs an account with starting cash and an absolute position cap (0 disables the cap).
func NewAccount(startingCash float64, positionLimit int, recorders ...FillRecorder) *Account {
	return &Account{
		startingCash:  startingCash,
		cash:          startingCash,
		positionLimit: positionLimit,
		positions:     make(map[string]int),
		recorders:     recorders,
	}
}

// StartingCash returns the initial bankroll.
func (a *Account) StartingCash() float64 { return a.startingCash }

// CheckLimit reports whether adding volume on side keeps the instrument inside the limit.
func (a *Account) CheckLimit(instrumentID string, side market.Side, volume int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.checkLimit(instrumentID, side, volume)
}

func (a *Account) checkLimit(instrumentID string, side market.Side, volume int) error {
	if a.positionLimit <= 0 {
		return nil
	}
	next := applySide(a.positions[instrumentID], side, volume)
	if next > a.positionLimit || next < -a.positionLimit {
		return fmt.Errorf("%w: %s would reach %d (limit %d)", ErrPositionLimit, instrumentID, next, a.positionLimit)
	}
	return nil
}

// Apply books a fill, moving cash and position, and forwards it to the recorders.
func (a *Account) Apply(fill Fill) error {
	if fill.Volume <= 0 {
		return errors.New("fill volume must be positive")
	}
	if fill.Price <= 0 {
		return errors.New("fill price must be positive")
	}

	a.mu.Lock()
	if err := a.checkLimit(fill.InstrumentID, fill.Side, fill.Volume); err != nil {
		a.mu.Unlock()
		return err
	}
	notional := fill.Price * float64(fill.Volume)
	switch fill.Side {
	case market.Bid:
		a.cash -= notional
	case market.Ask:
		a.cash += notional
	default:
		a.mu.Unlock()
		return fmt.Errorf("unknown side %q", fill.Side)
	}
	a.positions[fill.InstrumentID] = applySide(a.positions[fill.InstrumentID], fill.Side, fill.Volume)
	recorders := a.recorders
	a.mu.Unlock()

	for _, r := range recorders {
		r.Record(fill)
	}
	return nil
}

// Position returns the signed position for an instrument.
func (a *Account) Position(instrumentID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[instrumentID]
}

// Positions returns a copy of every non-zero position.
func (a *Account) Positions() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.positions))
	for id, pos := range a.positions {
		if pos != 0 {
			out[id] = pos
		}
	}
	return out
}

// Snapshot returns balances marked with prices. Instruments without a mark contribute nothing to equity.
func (a *Account) Snapshot(prices map[string]float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make(map[string]int, len(a.positions))
	equity := a.cash
	for id, pos := range a.positions {
		if pos == 0 {
			continue
		}
		positions[id] = pos
		equity += float64(pos) * prices[id]
	}
	return Snapshot{
		Cash:      a.cash,
		Equity:    equity,
		PnL:       equity - a.startingCash,
		Positions: positions,
	}
}

func applySide(position int, side market.Side, volume int) int {
	switch side {
	case market.Bid:
		return position + volume
	case market.Ask:
		return position - volume
	default:
		return position
	}
}
