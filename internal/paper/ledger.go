package paper

import (
	"sync"

	"quotebot-go/internal/market"
)

// Ledger stores paper fills in memory for quick inspection.
type Ledger struct {
	mu    sync.Mutex
	fills []Fill
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{fills: make([]Fill, 0, capacity)}
}

// Record appends a fill to the ledger.
func (l *Ledger) Record(fill Fill) {
	l.mu.Lock()
	l.fills = append(l.fills, fill)
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded fills.
func (l *Ledger) Snapshot() []Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Fill, len(l.fills))
	copy(out, l.fills)
	return out
}

// ByInstrument returns the fills recorded for one instrument, oldest first.
func (l *Ledger) ByInstrument(instrumentID string) []Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Fill
	for _, f := range l.fills {
		if f.InstrumentID == instrumentID {
			out = append(out, f)
		}
	}
	return out
}

// Volume sums the traded volume per side for an instrument.
func (l *Ledger) Volume(instrumentID string) (bought, sold int) {
	for _, f := range l.ByInstrument(instrumentID) {
		if f.Side == market.Bid {
			bought += f.Volume
		} else {
			sold += f.Volume
		}
	}
	return bought, sold
}
