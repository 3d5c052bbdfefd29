package strategy

import (
	"quotebot-go/internal/market"
	"quotebot-go/internal/signal"
)

// Mode names the branch the selector took for an instrument.
type Mode string

const (
	// ModeFlatten unwinds the whole position after a risk signal.
	ModeFlatten Mode = "flatten"
	// ModeTake buys at the offer after an optimism signal.
	ModeTake Mode = "take"
	// ModePassive quotes both sides around the theoretical price.
	ModePassive Mode = "passive"
)

// Plan is the ordered list of actions for one instrument in one cycle.
type Plan struct {
	InstrumentID string
	Mode         Mode
	Actions      []market.Action
	// Cooldown asks the scheduler to pause quoting after the plan runs.
	Cooldown bool
}

// Decide picks exactly one mode in priority order: risk beats optimism, optimism beats passive quoting.
func Decide(instrumentID string, verdict signal.Verdict, quote Quote, position int) Plan {
	switch {
	case verdict.Risky:
		return flatten(instrumentID, quote, position)
	case verdict.Optimistic:
		return take(instrumentID, quote)
	default:
		return passive(instrumentID, quote)
	}
}

func flatten(instrumentID string, quote Quote, position int) Plan {
	plan := Plan{InstrumentID: instrumentID, Mode: ModeFlatten, Cooldown: true}
	switch {
	case position > 0:
		plan.Actions = append(plan.Actions, market.InsertIOC(instrumentID, market.Ask, quote.BestBid, position))
	case position < 0:
		plan.Actions = append(plan.Actions, market.InsertIOC(instrumentID, market.Bid, quote.BestAsk, -position))
	}
	return plan
}

func take(instrumentID string, quote Quote) Plan {
	plan := Plan{InstrumentID: instrumentID, Mode: ModeTake}
	if quote.BidVolume > 0 {
		plan.Actions = append(plan.Actions, market.InsertIOC(instrumentID, market.Bid, quote.BestAsk, quote.BidVolume))
	}
	return plan
}

func passive(instrumentID string, quote Quote) Plan {
	plan := Plan{InstrumentID: instrumentID, Mode: ModePassive}
	plan.Actions = append(plan.Actions, market.CancelAll(instrumentID))
	if quote.BidVolume > 0 {
		plan.Actions = append(plan.Actions, market.InsertLimit(instrumentID, market.Bid, quote.BidPrice, quote.BidVolume))
	}
	if quote.AskVolume > 0 {
		plan.Actions = append(plan.Actions, market.InsertLimit(instrumentID, market.Ask, quote.AskPrice, quote.AskVolume))
	}
	return plan
}
