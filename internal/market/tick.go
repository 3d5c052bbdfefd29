package market

import "github.com/shopspring/decimal"

// RoundDownToTick floors price to the nearest multiple of tick.
func RoundDownToTick(price, tick float64) float64 {
	return RoundDownToTickDecimal(decimal.NewFromFloat(price), tick).InexactFloat64()
}

// RoundUpToTick ceils price to the nearest multiple of tick.
func RoundUpToTick(price, tick float64) float64 {
	return RoundUpToTickDecimal(decimal.NewFromFloat(price), tick).InexactFloat64()
}

// RoundDownToTickDecimal is RoundDownToTick for callers already working in decimal.
// A non-positive tick leaves the price unchanged.
func RoundDownToTickDecimal(price decimal.Decimal, tick float64) decimal.Decimal {
	if tick <= 0 {
		return price
	}
	t := decimal.NewFromFloat(tick)
	return price.Div(t).Floor().Mul(t)
}

// RoundUpToTickDecimal is RoundUpToTick for callers already working in decimal.
func RoundUpToTickDecimal(price decimal.Decimal, tick float64) decimal.Decimal {
	if tick <= 0 {
		return price
	}
	t := decimal.NewFromFloat(tick)
	return price.Div(t).Ceil().Mul(t)
}

// OnTick reports whether price is an exact multiple of tick.
func OnTick(price, tick float64) bool {
	if tick <= 0 {
		return true
	}
	return decimal.NewFromFloat(price).Mod(decimal.NewFromFloat(tick)).IsZero()
}
