// Package engine runs the trading cycle: read sentiment, then quote, flatten or take on every instrument.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"quotebot-go/internal/exchange"
	"quotebot-go/internal/execution"
	"quotebot-go/internal/market"
	"quotebot-go/internal/metrics"
	"quotebot-go/internal/risk"
	"quotebot-go/internal/signal"
	"quotebot-go/internal/strategy"
	"quotebot-go/internal/util"
)

const (
	// DefaultRefresh is the pause between cycles.
	DefaultRefresh = 2 * time.Second
	// DefaultCooldown is the pause after a flatten before quoting resumes.
	DefaultCooldown = 10 * time.Second
)

// Engine owns the cycle loop. It is single-goroutine; nothing it holds is shared across cycles.
type Engine struct {
	ex       exchange.Exchange
	agg      *signal.Aggregator
	quoter   *strategy.Quoter
	exec     *execution.Executor
	limits   risk.Limits
	refresh  time.Duration
	cooldown time.Duration
	sleep    util.Sleeper
	log      zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRefresh sets the pause between cycles.
func WithRefresh(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.refresh = d
		}
	}
}

// WithCooldown sets the post-flatten pause.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.cooldown = d
		}
	}
}

// WithSleeper replaces the real-clock pauses, mainly for tests.
func WithSleeper(s util.Sleeper) Option {
	return func(e *Engine) {
		if s != nil {
			e.sleep = s
		}
	}
}

// New wires an engine. The exchange must already be connected.
func New(ex exchange.Exchange, agg *signal.Aggregator, quoter *strategy.Quoter, exec *execution.Executor, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		ex:       ex,
		agg:      agg,
		quoter:   quoter,
		exec:     exec,
		limits:   risk.Limits{PositionLimit: quoter.Params().PositionLimit},
		refresh:  DefaultRefresh,
		cooldown: DefaultCooldown,
		sleep:    util.Sleep,
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report describes what one cycle did.
type Report struct {
	Feeds    int
	Verdicts signal.Verdicts
	Plans    []strategy.Plan
	Skipped  []string
}

// Run repeats RunCycle until ctx is cancelled. A failed cycle is logged and counted, and the loop
// carries on after the usual pause.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info().Dur("refresh", e.refresh).Dur("cooldown", e.cooldown).Msg("engine started")
	for {
		if _, err := e.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.CycleErrorsTotal.Inc()
			e.log.Error().Err(err).Msg("cycle failed")
		}
		if err := e.sleep(ctx, e.refresh); err != nil {
			return err
		}
	}
}

// RunCycle performs one pass over every listed instrument.
func (e *Engine) RunCycle(ctx context.Context) (Report, error) {
	start := time.Now()
	metrics.CyclesTotal.Inc()
	defer func() { metrics.CycleDuration.Observe(time.Since(start).Seconds()) }()

	var report Report
	feeds, err := e.ex.PollNewFeeds(ctx)
	if err != nil {
		return report, fmt.Errorf("poll feeds: %w", err)
	}
	report.Feeds = len(feeds)

	instruments, err := e.ex.ListInstruments(ctx)
	if err != nil {
		return report, fmt.Errorf("list instruments: %w", err)
	}
	ids := make([]string, 0, len(instruments))
	for id := range instruments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	verdicts, err := e.agg.Evaluate(ctx, feeds, ids)
	if err != nil {
		return report, fmt.Errorf("evaluate feeds: %w", err)
	}
	report.Verdicts = verdicts
	for id, v := range verdicts {
		if v.Risky {
			metrics.VerdictsTotal.WithLabelValues(id, "risky").Inc()
		}
		if v.Optimistic {
			metrics.VerdictsTotal.WithLabelValues(id, "optimistic").Inc()
		}
	}

	for _, id := range ids {
		plan, ok, err := e.runInstrument(ctx, instruments[id], verdicts.For(id))
		if err != nil {
			return report, err
		}
		if !ok {
			report.Skipped = append(report.Skipped, id)
			continue
		}
		report.Plans = append(report.Plans, plan)
	}

	e.logSummary(ctx)
	return report, nil
}

// runInstrument handles one instrument. It only returns an error when ctx is done; venue failures
// skip the instrument.
func (e *Engine) runInstrument(ctx context.Context, inst market.Instrument, verdict signal.Verdict) (strategy.Plan, bool, error) {
	log := e.log.With().Str("instrument", inst.ID).Logger()

	if err := e.exec.CancelAll(ctx, inst.ID); err != nil {
		if ctx.Err() != nil {
			return strategy.Plan{}, false, ctx.Err()
		}
		log.Warn().Err(err).Msg("cancel failed, skipping")
		return strategy.Plan{}, false, nil
	}

	book, err := e.ex.GetOrderBook(ctx, inst.ID)
	if err != nil {
		if ctx.Err() != nil {
			return strategy.Plan{}, false, ctx.Err()
		}
		log.Warn().Err(err).Msg("order book unavailable, skipping")
		return strategy.Plan{}, false, nil
	}
	if !book.TwoSided() {
		log.Debug().Msg("book is one-sided or empty, skipping")
		return strategy.Plan{}, false, nil
	}

	positions, err := e.ex.GetPositions(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return strategy.Plan{}, false, ctx.Err()
		}
		log.Warn().Err(err).Msg("positions unavailable, skipping")
		return strategy.Plan{}, false, nil
	}
	position := positions[inst.ID]
	metrics.Position.WithLabelValues(inst.ID).Set(float64(position))

	quote, ok := e.quoter.Quote(book, position, inst.TickSize)
	if !ok {
		return strategy.Plan{}, false, nil
	}
	metrics.TheoreticalPrice.WithLabelValues(inst.ID).Set(quote.Theoretical)

	plan := e.guard(strategy.Decide(inst.ID, verdict, quote, position), position, log)
	metrics.ActionsTotal.WithLabelValues(inst.ID, string(plan.Mode)).Inc()
	log.Info().
		Str("action", string(plan.Mode)).
		Int("position", position).
		Float64("theo", quote.Theoretical).
		Float64("bid_px", quote.BidPrice).
		Float64("ask_px", quote.AskPrice).
		Int("bid_vol", quote.BidVolume).
		Int("ask_vol", quote.AskVolume).
		Msg("plan")

	if _, err := e.exec.Execute(ctx, plan); err != nil {
		if ctx.Err() != nil {
			return plan, true, ctx.Err()
		}
		if !errors.Is(err, exchange.ErrOrderRejected) {
			log.Warn().Err(err).Msg("plan abandoned")
		}
	}

	if plan.Cooldown {
		log.Info().Dur("cooldown", e.cooldown).Msg("risk signal, holding off quoting")
		if err := e.sleep(ctx, e.cooldown); err != nil {
			return plan, true, err
		}
	}
	return plan, true, nil
}

// guard drops any insert that would, if fully filled, take the position past the limit.
func (e *Engine) guard(plan strategy.Plan, position int, log zerolog.Logger) strategy.Plan {
	kept := plan.Actions[:0:0]
	for _, a := range plan.Actions {
		if a.Kind != market.ActionCancelAll && !e.limits.Allow(a.Order, position) {
			log.Warn().Str("side", string(a.Order.Side)).Int("vol", a.Order.Volume).Int("position", position).Msg("order dropped by position limit")
			continue
		}
		kept = append(kept, a)
	}
	plan.Actions = kept
	return plan
}

func (e *Engine) logSummary(ctx context.Context) {
	reporter, ok := e.ex.(exchange.Reporter)
	if !ok {
		return
	}
	summary, err := reporter.Summary(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("account summary unavailable")
		return
	}
	ev := e.log.Info().
		Float64("starting_cash", summary.StartingCash).
		Float64("cash", summary.Cash).
		Float64("equity", summary.Equity).
		Float64("pnl", summary.PnL)
	for id, pos := range summary.Positions {
		ev = ev.Int("pos_"+id, pos)
	}
	ev.Msg("account")
}
