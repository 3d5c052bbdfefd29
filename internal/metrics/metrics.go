package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "quoter_cycles_total", Help: "Trading cycles started"},
	)
	CycleErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "quoter_cycle_errors_total", Help: "Trading cycles aborted by an error"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "quoter_cycle_duration_seconds", Help: "Wall time of one trading cycle", Buckets: prometheus.DefBuckets},
	)
	FeedsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "quoter_feeds_total", Help: "Social feed posts received"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quoter_orders_total", Help: "Orders submitted"},
		[]string{"instrument", "side", "type"},
	)
	OrderRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quoter_order_rejects_total", Help: "Orders the venue declined"},
		[]string{"instrument"},
	)
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quoter_actions_total", Help: "Per-instrument decisions by mode"},
		[]string{"instrument", "action"},
	)
	VerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quoter_verdicts_total", Help: "Sentiment flags raised per instrument"},
		[]string{"instrument", "verdict"},
	)
	TheoreticalPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "quoter_theoretical_price", Help: "Last skewed theoretical price"},
		[]string{"instrument"},
	)
	Position = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "quoter_position", Help: "Last observed signed position"},
		[]string{"instrument"},
	)
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		CycleErrorsTotal,
		CycleDuration,
		FeedsReceived,
		OrdersTotal,
		OrderRejects,
		ActionsTotal,
		VerdictsTotal,
		TheoreticalPrice,
		Position,
	)
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
