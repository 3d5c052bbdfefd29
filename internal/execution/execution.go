// Package execution turns a strategy plan into venue calls, respecting the venue's rate limit.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"quotebot-go/internal/exchange"
	"quotebot-go/internal/market"
	"quotebot-go/internal/metrics"
	"quotebot-go/internal/strategy"
	"quotebot-go/internal/util"
)

// DefaultOrderDelay is the pause after every insert.
const DefaultOrderDelay = 50 * time.Millisecond

// Gateway is the slice of the venue the executor writes to.
type Gateway interface {
	CancelAllOrders(ctx context.Context, instrumentID string) error
	InsertOrder(ctx context.Context, order market.Order) (string, error)
}

// Result summarises one executed plan.
type Result struct {
	Cancels  int
	Inserts  int
	OrderIDs []string
}

// Executor submits plans without waiting for fills.
type Executor struct {
	gw    Gateway
	delay time.Duration
	sleep util.Sleeper
	log   zerolog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleeper replaces the real-clock delay, mainly for tests.
func WithSleeper(s util.Sleeper) Option {
	return func(e *Executor) {
		if s != nil {
			e.sleep = s
		}
	}
}

// NewExecutor wraps gw. A negative delay is treated as zero.
func NewExecutor(gw Gateway, delay time.Duration, log zerolog.Logger, opts ...Option) *Executor {
	if delay < 0 {
		delay = 0
	}
	e := &Executor{gw: gw, delay: delay, sleep: util.Sleep, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CancelAll withdraws every resting order for an instrument.
func (e *Executor) CancelAll(ctx context.Context, instrumentID string) error {
	if err := e.gw.CancelAllOrders(ctx, instrumentID); err != nil {
		return fmt.Errorf("cancel %s: %w", instrumentID, err)
	}
	return nil
}

// Execute runs the plan's cancels first, then its inserts in order, pausing after every insert
// whether the venue accepted it or not.
// The first failed insert abandons the rest of the plan; rejections are logged and counted here.
func (e *Executor) Execute(ctx context.Context, plan strategy.Plan) (Result, error) {
	var res Result
	for _, action := range orderActions(plan.Actions) {
		switch action.Kind {
		case market.ActionCancelAll:
			if err := e.CancelAll(ctx, action.Order.InstrumentID); err != nil {
				return res, err
			}
			res.Cancels++
		case market.ActionInsertLimit, market.ActionInsertIOC:
			id, err := e.insert(ctx, action.Order)
			// a rejected request still counts against the venue's rate limit
			sleepErr := e.sleep(ctx, e.delay)
			if err != nil {
				return res, err
			}
			res.Inserts++
			res.OrderIDs = append(res.OrderIDs, id)
			if sleepErr != nil {
				return res, sleepErr
			}
		default:
			return res, fmt.Errorf("unknown action %q", action.Kind)
		}
	}
	return res, nil
}

func (e *Executor) insert(ctx context.Context, order market.Order) (string, error) {
	metrics.OrdersTotal.WithLabelValues(order.InstrumentID, string(order.Side), string(order.Type)).Inc()
	id, err := e.gw.InsertOrder(ctx, order)
	if err != nil {
		if errors.Is(err, exchange.ErrOrderRejected) {
			metrics.OrderRejects.WithLabelValues(order.InstrumentID).Inc()
			e.log.Warn().Err(err).
				Str("instrument", order.InstrumentID).
				Str("side", string(order.Side)).
				Str("type", string(order.Type)).
				Float64("px", order.Price).
				Int("vol", order.Volume).
				Msg("order rejected")
		}
		return "", fmt.Errorf("insert %s %s %s: %w", order.InstrumentID, order.Side, order.Type, err)
	}
	e.log.Info().
		Str("instrument", order.InstrumentID).
		Str("side", string(order.Side)).
		Str("type", string(order.Type)).
		Float64("px", order.Price).
		Int("vol", order.Volume).
		Str("order_id", id).
		Msg("order submitted")
	return id, nil
}

// orderActions moves cancels ahead of inserts, keeping relative order within each group.
func orderActions(actions []market.Action) []market.Action {
	out := make([]market.Action, 0, len(actions))
	for _, a := range actions {
		if a.Kind == market.ActionCancelAll {
			out = append(out, a)
		}
	}
	for _, a := range actions {
		if a.Kind != market.ActionCancelAll {
			out = append(out, a)
		}
	}
	return out
}
