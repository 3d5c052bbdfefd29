package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"quotebot-go/internal/exchange"
	"quotebot-go/internal/market"
	"quotebot-go/internal/strategy"
)

type recordingGateway struct {
	calls  []string
	reject map[market.Side]bool
}

func (g *recordingGateway) CancelAllOrders(_ context.Context, instrumentID string) error {
	g.calls = append(g.calls, "cancel "+instrumentID)
	return nil
}

func (g *recordingGateway) InsertOrder(_ context.Context, o market.Order) (string, error) {
	g.calls = append(g.calls, fmt.Sprintf("insert %s %s %s %.2f x%d", o.InstrumentID, o.Side, o.Type, o.Price, o.Volume))
	if g.reject[o.Side] {
		return "", fmt.Errorf("%w: limit", exchange.ErrOrderRejected)
	}
	return fmt.Sprintf("id-%d", len(g.calls)), nil
}

type recordingSleeper struct {
	calls []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func TestExecuteCancelsBeforeInsertsAndDelaysInserts(t *testing.T) {
	gw := &recordingGateway{}
	sl := &recordingSleeper{}
	exec := NewExecutor(gw, DefaultOrderDelay, zerolog.Nop(), WithSleeper(sl.sleep))

	plan := strategy.Plan{InstrumentID: "CSCO", Mode: strategy.ModePassive, Actions: []market.Action{
		market.InsertLimit("CSCO", market.Bid, 9.85, 10),
		market.CancelAll("CSCO"),
		market.InsertLimit("CSCO", market.Ask, 10.15, 10),
	}}
	res, err := exec.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := []string{
		"cancel CSCO",
		"insert CSCO bid limit 9.85 x10",
		"insert CSCO ask limit 10.15 x10",
	}
	if strings.Join(gw.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected call order %v", gw.calls)
	}
	if res.Cancels != 1 || res.Inserts != 2 || len(res.OrderIDs) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(sl.calls) != 2 || sl.calls[0] != DefaultOrderDelay {
		t.Fatalf("expected one delay per insert, got %v", sl.calls)
	}
}

func TestExecuteAbandonsPlanOnReject(t *testing.T) {
	var buf bytes.Buffer
	gw := &recordingGateway{reject: map[market.Side]bool{market.Bid: true}}
	sl := &recordingSleeper{}
	exec := NewExecutor(gw, DefaultOrderDelay, zerolog.New(&buf), WithSleeper(sl.sleep))

	plan := strategy.Plan{InstrumentID: "PFE", Actions: []market.Action{
		market.CancelAll("PFE"),
		market.InsertLimit("PFE", market.Bid, 9.85, 10),
		market.InsertLimit("PFE", market.Ask, 10.15, 10),
	}}
	res, err := exec.Execute(context.Background(), plan)
	if !errors.Is(err, exchange.ErrOrderRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if len(gw.calls) != 2 || res.Inserts != 0 {
		t.Fatalf("ask should not be sent after a rejected bid: %v", gw.calls)
	}
	if len(sl.calls) != 1 || sl.calls[0] != DefaultOrderDelay {
		t.Fatalf("expected the rejected insert to be paced like any other, got %v", sl.calls)
	}
	if !strings.Contains(buf.String(), "order rejected") {
		t.Fatalf("expected rejection log, got %s", buf.String())
	}
}

func TestExecutePacesRejectedIOC(t *testing.T) {
	gw := &recordingGateway{reject: map[market.Side]bool{market.Ask: true}}
	sl := &recordingSleeper{}
	exec := NewExecutor(gw, DefaultOrderDelay, zerolog.Nop(), WithSleeper(sl.sleep))

	plan := strategy.Plan{InstrumentID: "CSCO", Mode: strategy.ModeFlatten, Actions: []market.Action{
		market.InsertIOC("CSCO", market.Ask, 9.90, 30),
	}}
	if _, err := exec.Execute(context.Background(), plan); !errors.Is(err, exchange.ErrOrderRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("expected one insert sent, got %v", gw.calls)
	}
	if len(sl.calls) != 1 || sl.calls[0] != DefaultOrderDelay {
		t.Fatalf("expected one delay after the rejected insert, got %v", sl.calls)
	}
}

func TestExecuteStopsWhenContextCancelled(t *testing.T) {
	gw := &recordingGateway{}
	exec := NewExecutor(gw, time.Hour, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := strategy.Plan{InstrumentID: "ING", Actions: []market.Action{
		market.InsertIOC("ING", market.Ask, 9.90, 30),
		market.InsertIOC("ING", market.Bid, 10.10, 5),
	}}
	if _, err := exec.Execute(ctx, plan); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("expected a single insert before the interrupted delay, got %v", gw.calls)
	}
}

func TestExecuteEmptyPlan(t *testing.T) {
	gw := &recordingGateway{}
	res, err := NewExecutor(gw, 0, zerolog.Nop()).Execute(context.Background(), strategy.Plan{InstrumentID: "SAN", Mode: strategy.ModeFlatten})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(gw.calls) != 0 || res.Inserts != 0 {
		t.Fatalf("expected no calls, got %v", gw.calls)
	}
}
