// Package strategy prices two-sided quotes and picks the order actions for an instrument each cycle.
package strategy

import (
	"github.com/shopspring/decimal"

	"quotebot-go/internal/market"
	"quotebot-go/internal/risk"
)

// Params expresses the quoting knobs shared by every instrument.
type Params struct {
	QuotedVolume       int
	FixedMinimumCredit float64
	PriceRetreatPerLot float64
	PositionLimit      int
}

// DefaultParams returns the stock quoting configuration.
func DefaultParams() Params {
	return Params{
		QuotedVolume:       10,
		FixedMinimumCredit: 0.15,
		PriceRetreatPerLot: 0.005,
		PositionLimit:      100,
	}
}

// Quote is the engine's two-sided market for one instrument, valid for the current cycle only.
type Quote struct {
	Theoretical float64
	BidPrice    float64
	AskPrice    float64
	BidVolume   int
	AskVolume   int
	BestBid     float64
	BestAsk     float64
}

// Quoter computes quotes from a book and a position. It is a pure function of its inputs.
type Quoter struct {
	params Params
	limits risk.Limits
}

// NewQuoter builds a quoter around params.
func NewQuoter(params Params) *Quoter {
	return &Quoter{params: params, limits: risk.Limits{PositionLimit: params.PositionLimit}}
}

// Params returns the configuration the quoter was built with.
func (q *Quoter) Params() Params { return q.params }

// Quote prices the instrument. ok is false when the book lacks a bid or an ask.
func (q *Quoter) Quote(book *market.Book, position int, tickSize float64) (Quote, bool) {
	if !book.TwoSided() {
		return Quote{}, false
	}
	bestBid, _ := book.BestBid()
	bestAsk, _ := book.BestAsk()

	theo := q.theoretical(bestBid, bestAsk, position)
	credit := decimal.NewFromFloat(q.params.FixedMinimumCredit)
	bid := market.RoundDownToTickDecimal(theo.Sub(credit), tickSize).InexactFloat64()
	ask := market.RoundUpToTickDecimal(theo.Add(credit), tickSize).InexactFloat64()

	// TODO: this only fires on an already crossed book; confirm with the desk whether
	// locked markets (bestBid == bestAsk) need the same treatment.
	if bid < bestAsk && ask > bestBid && bestBid > bestAsk {
		bid, ask = bestAsk, bestBid
	}

	return Quote{
		Theoretical: theo.InexactFloat64(),
		BidPrice:    bid,
		AskPrice:    ask,
		BidVolume:   max(0, min(q.params.QuotedVolume, q.limits.BuyCapacity(position))),
		AskVolume:   max(0, min(q.params.QuotedVolume, q.limits.SellCapacity(position))),
		BestBid:     bestBid,
		BestAsk:     bestAsk,
	}, true
}

// TheoreticalPrice is the mid skewed against the current inventory.
func (q *Quoter) TheoreticalPrice(bestBid, bestAsk float64, position int) float64 {
	return q.theoretical(bestBid, bestAsk, position).InexactFloat64()
}

func (q *Quoter) theoretical(bestBid, bestAsk float64, position int) decimal.Decimal {
	mid := decimal.NewFromFloat(bestBid).Add(decimal.NewFromFloat(bestAsk)).Div(decimal.NewFromInt(2))
	skew := decimal.NewFromFloat(q.params.PriceRetreatPerLot).Mul(decimal.NewFromInt(int64(position)))
	return mid.Sub(skew)
}
