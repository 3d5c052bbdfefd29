// Package risk bounds how much inventory the engine may build up.
package risk

import "quotebot-go/internal/market"

// Limits caps the absolute position per instrument.
type Limits struct {
	PositionLimit int
}

// BuyCapacity is how many lots can still be bought before hitting the long limit. Never negative.
func (l Limits) BuyCapacity(position int) int {
	return nonNegative(l.PositionLimit - position)
}

// SellCapacity is how many lots can still be sold before hitting the short limit. Never negative.
func (l Limits) SellCapacity(position int) int {
	return nonNegative(l.PositionLimit + position)
}

// Allow reports whether an order, if fully filled, keeps the position within the limit.
func (l Limits) Allow(order market.Order, position int) bool {
	if order.Volume <= 0 {
		return false
	}
	switch order.Side {
	case market.Bid:
		return order.Volume <= l.BuyCapacity(position)
	case market.Ask:
		return order.Volume <= l.SellCapacity(position)
	default:
		return false
	}
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
