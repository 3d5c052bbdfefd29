package exchange

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"quotebot-go/internal/market"
	"quotebot-go/internal/paper"
	"quotebot-go/internal/signal"
)

// PaperInstrument describes one simulated product.
type PaperInstrument struct {
	ID         string
	TickSize   float64
	StartPrice float64
	// Volatility is the standard deviation of the mid move per book request, in price units.
	Volatility float64
	// SpreadTicks is the distance between best bid and best ask.
	SpreadTicks int
	Depth       int
	LevelVolume int
}

type restingOrder struct {
	id    string
	order market.Order
}

// Paper is an in-memory venue: random-walk books, resting limit orders and IOC matching,
// with positions and cash kept in a paper.Account.
type Paper struct {
	mu          sync.Mutex
	log         zerolog.Logger
	account     *paper.Account
	feeds       FeedSource
	rng         *rand.Rand
	now         func() time.Time
	connected   bool
	instruments map[string]PaperInstrument
	mids        map[string]float64
	books       map[string]*market.Book
	resting     map[string][]restingOrder
}

// PaperOption configures a Paper venue.
type PaperOption func(*Paper)

// WithSeed makes the random walk reproducible.
func WithSeed(seed int64) PaperOption {
	return func(p *Paper) { p.rng = rand.New(rand.NewSource(seed)) }
}

// WithClock overrides the book timestamp source.
func WithClock(now func() time.Time) PaperOption {
	return func(p *Paper) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPaper builds a venue over instruments. feeds may be nil when no sentiment source is wired.
func NewPaper(instruments []PaperInstrument, account *paper.Account, feeds FeedSource, log zerolog.Logger, opts ...PaperOption) *Paper {
	p := &Paper{
		log:         log,
		account:     account,
		feeds:       feeds,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
		instruments: make(map[string]PaperInstrument, len(instruments)),
		mids:        make(map[string]float64, len(instruments)),
		books:       make(map[string]*market.Book, len(instruments)),
		resting:     make(map[string][]restingOrder),
	}
	for _, inst := range instruments {
		if inst.SpreadTicks <= 0 {
			inst.SpreadTicks = 2
		}
		if inst.Depth <= 0 {
			inst.Depth = 5
		}
		if inst.LevelVolume <= 0 {
			inst.LevelVolume = 50
		}
		p.instruments[inst.ID] = inst
		p.mids[inst.ID] = inst.StartPrice
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect implements Exchange.
func (p *Paper) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
	p.log.Info().Int("instruments", len(p.instruments)).Msg("paper venue connected")
	return nil
}

// ListInstruments implements Exchange.
func (p *Paper) ListInstruments(ctx context.Context) (map[string]market.Instrument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil, ErrNotConnected
	}
	out := make(map[string]market.Instrument, len(p.instruments))
	for id, inst := range p.instruments {
		out[id] = market.Instrument{ID: id, TickSize: inst.TickSize}
	}
	return out, nil
}

// GetOrderBook advances the instrument's random walk, rebuilds its book and matches resting orders
// the new book crosses. A non-positive mid leaves the book empty.
func (p *Paper) GetOrderBook(ctx context.Context, instrumentID string) (*market.Book, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil, ErrNotConnected
	}
	inst, ok := p.instruments[instrumentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstrument, instrumentID)
	}
	book := p.step(inst)
	if book == nil {
		return nil, nil
	}
	return copyBook(book), nil
}

// step moves the market for one instrument. Caller holds p.mu.
func (p *Paper) step(inst PaperInstrument) *market.Book {
	mid := p.mids[inst.ID]
	if inst.Volatility > 0 {
		mid += p.rng.NormFloat64() * inst.Volatility
		mid = math.Max(mid, inst.TickSize*float64(inst.SpreadTicks+1))
		p.mids[inst.ID] = mid
	}
	if mid <= 0 {
		delete(p.books, inst.ID)
		return nil
	}
	book := p.buildBook(inst, mid)
	p.books[inst.ID] = book
	p.matchResting(inst.ID, book)
	return book
}

func (p *Paper) buildBook(inst PaperInstrument, mid float64) *market.Book {
	tick := decimal.NewFromFloat(inst.TickSize)
	spread := tick.Mul(decimal.NewFromInt(int64(inst.SpreadTicks)))
	bestBid := market.RoundDownToTickDecimal(decimal.NewFromFloat(mid).Sub(spread.Div(decimal.NewFromInt(2))), inst.TickSize)
	bestAsk := bestBid.Add(spread)

	book := &market.Book{InstrumentID: inst.ID, Ts: p.now()}
	for i := 0; i < inst.Depth; i++ {
		offset := tick.Mul(decimal.NewFromInt(int64(i)))
		if bid := bestBid.Sub(offset); bid.IsPositive() {
			book.Bids = append(book.Bids, market.Level{Price: bid.InexactFloat64(), Volume: inst.LevelVolume})
		}
		book.Asks = append(book.Asks, market.Level{Price: bestAsk.Add(offset).InexactFloat64(), Volume: inst.LevelVolume})
	}
	return book
}

// matchResting fills resting orders at their limit price when the new book trades through them.
func (p *Paper) matchResting(instrumentID string, book *market.Book) {
	orders := p.resting[instrumentID]
	if len(orders) == 0 {
		return
	}
	bestBid, _ := book.BestBid()
	bestAsk, _ := book.BestAsk()
	kept := orders[:0]
	for _, ro := range orders {
		crossed := (ro.order.Side == market.Bid && len(book.Asks) > 0 && ro.order.Price >= bestAsk) ||
			(ro.order.Side == market.Ask && len(book.Bids) > 0 && ro.order.Price <= bestBid)
		if !crossed {
			kept = append(kept, ro)
			continue
		}
		fill := paper.Fill{
			OrderID:      ro.id,
			InstrumentID: instrumentID,
			Side:         ro.order.Side,
			Price:        ro.order.Price,
			Volume:       ro.order.Volume,
			Ts:           book.Ts,
		}
		if err := p.account.Apply(fill); err != nil {
			p.log.Warn().Err(err).Str("instrument", instrumentID).Str("order_id", ro.id).Msg("resting order dropped")
			continue
		}
		p.log.Debug().Str("instrument", instrumentID).Str("side", string(fill.Side)).Float64("px", fill.Price).Int("vol", fill.Volume).Msg("resting order filled")
	}
	p.resting[instrumentID] = kept
}

// GetPositions implements Exchange. Every listed instrument has an entry.
func (p *Paper) GetPositions(ctx context.Context) (map[string]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil, ErrNotConnected
	}
	held := p.account.Positions()
	out := make(map[string]int, len(p.instruments))
	for id := range p.instruments {
		out[id] = held[id]
	}
	return out, nil
}

// PollNewFeeds implements Exchange.
func (p *Paper) PollNewFeeds(ctx context.Context) ([]signal.Feed, error) {
	p.mu.Lock()
	connected := p.connected
	p.mu.Unlock()
	if !connected {
		return nil, ErrNotConnected
	}
	if p.feeds == nil {
		return nil, nil
	}
	return p.feeds.Drain(), nil
}

// CancelAllOrders implements Exchange. The market steps first, so a crossed resting order fills
// rather than being cancelled.
func (p *Paper) CancelAllOrders(ctx context.Context, instrumentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return ErrNotConnected
	}
	inst, ok := p.instruments[instrumentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInstrument, instrumentID)
	}
	// orders the market traded through since the last look fill before they can be pulled
	p.step(inst)
	delete(p.resting, instrumentID)
	return nil
}

// InsertOrder validates the order, trades it against the last book and rests any limit remainder.
func (p *Paper) InsertOrder(ctx context.Context, order market.Order) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return "", ErrNotConnected
	}
	inst, ok := p.instruments[order.InstrumentID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownInstrument, order.InstrumentID)
	}
	if order.Volume <= 0 {
		return "", fmt.Errorf("%w: volume %d must be positive", ErrOrderRejected, order.Volume)
	}
	if order.Price <= 0 || !market.OnTick(order.Price, inst.TickSize) {
		return "", fmt.Errorf("%w: price %v not on tick %v", ErrOrderRejected, order.Price, inst.TickSize)
	}
	if order.Side != market.Bid && order.Side != market.Ask {
		return "", fmt.Errorf("%w: unknown side %q", ErrOrderRejected, order.Side)
	}
	if err := p.account.CheckLimit(order.InstrumentID, order.Side, order.Volume); err != nil {
		return "", fmt.Errorf("%w: %v", ErrOrderRejected, err)
	}

	id := uuid.NewString()
	remaining := p.trade(id, order)
	if remaining > 0 && order.Type == market.Limit {
		rest := order
		rest.Volume = remaining
		p.resting[order.InstrumentID] = append(p.resting[order.InstrumentID], restingOrder{id: id, order: rest})
	}
	return id, nil
}

// trade sweeps the opposite side of the last book up to the order's limit price and returns the unfilled volume.
func (p *Paper) trade(id string, order market.Order) int {
	book := p.books[order.InstrumentID]
	if book == nil {
		return order.Volume
	}
	levels := book.Levels(order.Side.Opposite())
	crosses := func(px float64) bool { return px <= order.Price }
	if order.Side == market.Ask {
		crosses = func(px float64) bool { return px >= order.Price }
	}

	remaining := order.Volume
	for i := range levels {
		if remaining == 0 || !crosses(levels[i].Price) {
			break
		}
		qty := min(remaining, levels[i].Volume)
		if qty <= 0 {
			continue
		}
		fill := paper.Fill{
			OrderID:      id,
			InstrumentID: order.InstrumentID,
			Side:         order.Side,
			Price:        levels[i].Price,
			Volume:       qty,
			Ts:           p.now(),
		}
		if err := p.account.Apply(fill); err != nil {
			p.log.Warn().Err(err).Str("instrument", order.InstrumentID).Msg("paper fill failed")
			break
		}
		levels[i].Volume -= qty
		remaining -= qty
	}
	return remaining
}

// OpenOrders returns the number of resting orders for an instrument.
func (p *Paper) OpenOrders(instrumentID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.resting[instrumentID])
}

// SetMid moves an instrument's mid price; the next book request is built around it.
func (p *Paper) SetMid(instrumentID string, mid float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.instruments[instrumentID]; ok {
		p.mids[instrumentID] = mid
	}
}

// Summary implements Reporter, marking positions at the current mids.
func (p *Paper) Summary(ctx context.Context) (Summary, error) {
	p.mu.Lock()
	marks := make(map[string]float64, len(p.mids))
	for id, mid := range p.mids {
		marks[id] = mid
	}
	p.mu.Unlock()

	snap := p.account.Snapshot(marks)
	return Summary{
		StartingCash: p.account.StartingCash(),
		Cash:         snap.Cash,
		Equity:       snap.Equity,
		PnL:          snap.PnL,
		Positions:    snap.Positions,
	}, nil
}

func copyBook(b *market.Book) *market.Book {
	out := &market.Book{InstrumentID: b.InstrumentID, Ts: b.Ts}
	out.Bids = append([]market.Level(nil), b.Bids...)
	out.Asks = append([]market.Level(nil), b.Asks...)
	sort.SliceStable(out.Bids, func(i, j int) bool { return out.Bids[i].Price > out.Bids[j].Price })
	sort.SliceStable(out.Asks, func(i, j int) bool { return out.Asks[i].Price < out.Asks[j].Price })
	return out
}
