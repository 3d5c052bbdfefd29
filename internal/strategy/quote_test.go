package strategy

import (
	"testing"

	"quotebot-go/internal/market"
)

func book(bid, ask float64) *market.Book {
	return &market.Book{
		InstrumentID: "CSCO",
		Bids:         []market.Level{{Price: bid, Volume: 50}},
		Asks:         []market.Level{{Price: ask, Volume: 50}},
	}
}

func TestQuoteFlatPosition(t *testing.T) {
	q := NewQuoter(DefaultParams())
	quote, ok := q.Quote(book(9.90, 10.10), 0, 0.01)
	if !ok {
		t.Fatal("expected a quote")
	}
	if quote.Theoretical != 10.00 {
		t.Fatalf("expected theoretical 10.00, got %v", quote.Theoretical)
	}
	if quote.BidPrice != 9.85 || quote.AskPrice != 10.15 {
		t.Fatalf("expected 9.85/10.15, got %v/%v", quote.BidPrice, quote.AskPrice)
	}
	if quote.BidVolume != 10 || quote.AskVolume != 10 {
		t.Fatalf("expected 10x10, got %dx%d", quote.BidVolume, quote.AskVolume)
	}
}

func TestQuoteAtLongLimit(t *testing.T) {
	q := NewQuoter(DefaultParams())
	quote, ok := q.Quote(book(9.90, 10.10), 100, 0.01)
	if !ok {
		t.Fatal("expected a quote")
	}
	if quote.BidVolume != 0 {
		t.Fatalf("expected no bid volume at the limit, got %d", quote.BidVolume)
	}
	if quote.AskVolume != 10 {
		t.Fatalf("expected ask volume 10, got %d", quote.AskVolume)
	}
	// 10.00 - 0.005*100 = 9.50
	if quote.Theoretical != 9.5 || quote.BidPrice != 9.35 || quote.AskPrice != 9.65 {
		t.Fatalf("unexpected skewed quote %+v", quote)
	}
}

func TestQuoteSkipsOneSidedBook(t *testing.T) {
	q := NewQuoter(DefaultParams())
	cases := []*market.Book{
		nil,
		{Bids: []market.Level{{Price: 9.9, Volume: 1}}},
		{Asks: []market.Level{{Price: 10.1, Volume: 1}}},
		{},
	}
	for i, b := range cases {
		if _, ok := q.Quote(b, 0, 0.01); ok {
			t.Fatalf("case %d: expected no quote", i)
		}
	}
}

func TestQuoteVolumesRespectPositionLimit(t *testing.T) {
	params := DefaultParams()
	q := NewQuoter(params)
	for p := -params.PositionLimit; p <= params.PositionLimit; p++ {
		quote, ok := q.Quote(book(9.90, 10.10), p, 0.01)
		if !ok {
			t.Fatalf("expected a quote at position %d", p)
		}
		if quote.BidVolume < 0 || quote.AskVolume < 0 {
			t.Fatalf("negative volume at position %d: %+v", p, quote)
		}
		if quote.BidVolume+p > params.PositionLimit {
			t.Fatalf("bid volume %d breaches the long limit at position %d", quote.BidVolume, p)
		}
		if p-quote.AskVolume < -params.PositionLimit {
			t.Fatalf("ask volume %d breaches the short limit at position %d", quote.AskVolume, p)
		}
	}
}

func TestQuoteVolumesFlooredBeyondLimit(t *testing.T) {
	q := NewQuoter(DefaultParams())
	quote, _ := q.Quote(book(9.90, 10.10), -130, 0.01)
	if quote.AskVolume != 0 {
		t.Fatalf("expected ask volume floored at 0, got %d", quote.AskVolume)
	}
	if quote.BidVolume != 10 {
		t.Fatalf("expected bid volume 10, got %d", quote.BidVolume)
	}
}

func TestQuoteKeepsMinimumCredit(t *testing.T) {
	params := DefaultParams()
	q := NewQuoter(params)
	books := []*market.Book{book(9.90, 10.10), book(9.99, 10.00), book(99.5, 100.75), book(0.31, 0.37)}
	for _, b := range books {
		for p := -params.PositionLimit; p <= params.PositionLimit; p += 7 {
			quote, ok := q.Quote(b, p, 0.01)
			if !ok {
				t.Fatal("expected a quote")
			}
			if quote.BidPrice >= quote.AskPrice {
				t.Fatalf("crossed quote %+v at position %d", quote, p)
			}
			// rounding only moves prices away from the theoretical price
			if quote.Theoretical-quote.BidPrice < params.FixedMinimumCredit-1e-9 {
				t.Fatalf("bid too close to theoretical: %+v", quote)
			}
			if quote.AskPrice-quote.Theoretical < params.FixedMinimumCredit-1e-9 {
				t.Fatalf("ask too close to theoretical: %+v", quote)
			}
		}
	}
}

func TestTheoreticalPriceMonotonicInPosition(t *testing.T) {
	q := NewQuoter(DefaultParams())
	prev := q.TheoreticalPrice(9.90, 10.10, -100)
	for p := -99; p <= 100; p++ {
		cur := q.TheoreticalPrice(9.90, 10.10, p)
		if cur >= prev {
			t.Fatalf("theoretical price did not fall from position %d to %d: %v -> %v", p-1, p, prev, cur)
		}
		prev = cur
	}
}

func TestQuoteCrossedMarketCorrection(t *testing.T) {
	q := NewQuoter(DefaultParams())
	// best bid above best ask; theoretical 10.00 gives 9.85/10.15 which straddles the crossed spread
	quote, ok := q.Quote(book(10.05, 9.95), 0, 0.01)
	if !ok {
		t.Fatal("expected a quote")
	}
	if quote.BidPrice != 9.95 || quote.AskPrice != 10.05 {
		t.Fatalf("expected quote inside the crossed spread 9.95/10.05, got %v/%v", quote.BidPrice, quote.AskPrice)
	}
}
