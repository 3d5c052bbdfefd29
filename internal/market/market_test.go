package market

import "testing"

func TestRoundToTick(t *testing.T) {
	cases := []struct {
		price, tick float64
		down, up    float64
	}{
		{9.85, 0.01, 9.85, 9.85},
		{9.851, 0.01, 9.85, 9.86},
		{10.149, 0.01, 10.14, 10.15},
		{10.0, 0.1, 10.0, 10.0},
		{10.05, 0.1, 10.0, 10.1},
		{7.3, 0.25, 7.25, 7.5},
		{3.3, 0, 3.3, 3.3},
	}
	for _, tc := range cases {
		if got := RoundDownToTick(tc.price, tc.tick); got != tc.down {
			t.Fatalf("RoundDownToTick(%v, %v) = %v, want %v", tc.price, tc.tick, got, tc.down)
		}
		if got := RoundUpToTick(tc.price, tc.tick); got != tc.up {
			t.Fatalf("RoundUpToTick(%v, %v) = %v, want %v", tc.price, tc.tick, got, tc.up)
		}
	}
}

func TestOnTick(t *testing.T) {
	if !OnTick(10.15, 0.01) {
		t.Fatal("expected 10.15 on a 0.01 grid")
	}
	if OnTick(10.155, 0.01) {
		t.Fatal("expected 10.155 off a 0.01 grid")
	}
	if !OnTick(1.5, 0) {
		t.Fatal("expected any price valid without a tick")
	}
}

func TestBookBestPrices(t *testing.T) {
	book := &Book{
		Bids: []Level{{Price: 9.9, Volume: 5}, {Price: 9.8, Volume: 3}},
		Asks: []Level{{Price: 10.1, Volume: 2}},
	}
	if px, ok := book.BestBid(); !ok || px != 9.9 {
		t.Fatalf("unexpected best bid %v %v", px, ok)
	}
	if px, ok := book.BestAsk(); !ok || px != 10.1 {
		t.Fatalf("unexpected best ask %v %v", px, ok)
	}
	if !book.TwoSided() {
		t.Fatal("expected two-sided book")
	}

	oneSided := &Book{Bids: []Level{{Price: 1, Volume: 1}}}
	if oneSided.TwoSided() {
		t.Fatal("expected one-sided book")
	}
	var empty *Book
	if _, ok := empty.BestBid(); ok {
		t.Fatal("expected no bid on nil book")
	}
}

func TestSideOpposite(t *testing.T) {
	if Bid.Opposite() != Ask || Ask.Opposite() != Bid {
		t.Fatal("unexpected opposite sides")
	}
}

func TestBookLevels(t *testing.T) {
	book := &Book{
		Bids: []Level{{Price: 9.9, Volume: 5}},
		Asks: []Level{{Price: 10.1, Volume: 2}, {Price: 10.2, Volume: 4}},
	}
	if got := book.Levels(Bid.Opposite()); len(got) != 2 || got[0].Price != 10.1 {
		t.Fatalf("expected asks as the contra side of a bid, got %+v", got)
	}
	if got := book.Levels(Ask.Opposite()); len(got) != 1 || got[0].Price != 9.9 {
		t.Fatalf("expected bids as the contra side of an ask, got %+v", got)
	}
	var empty *Book
	if empty.Levels(Bid) != nil {
		t.Fatal("expected no levels on nil book")
	}
}
