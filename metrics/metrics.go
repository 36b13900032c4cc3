// Package metrics exposes the engine's prometheus collectors:
//
//	paper_orders_total{side}               orders placed
//	paper_orders_rejected_total{reason}    orders refused by margin checks or the risk gate
//	paper_decisions_total{signal}          AI decisions received
//	paper_exits_total{reason,side}         closed orders by close reason and side
//	paper_equity                           cash plus unrealized P&L
//	paper_available                        cash not held as margin
//	paper_open_orders                      open order count
//	paper_tick_seconds                     time spent applying one price tick
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	orders    *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	decisions *prometheus.CounterVec
	exits     *prometheus.CounterVec
	equity    prometheus.Gauge
	available prometheus.Gauge
	open      prometheus.Gauge
	tick      prometheus.Histogram
}

// New builds the collectors and registers them with reg. A nil reg skips
// registration, which keeps tests independent of the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paper_orders_total",
			Help: "Paper orders placed",
		}, []string{"side"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paper_orders_rejected_total",
			Help: "Orders refused, by reason",
		}, []string{"reason"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paper_decisions_total",
			Help: "AI decisions received",
		}, []string{"signal"}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paper_exits_total",
			Help: "Closed orders split by reason and side",
		}, []string{"reason", "side"}),
		equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paper_equity",
			Help: "Cash plus unrealized P&L in quote currency",
		}),
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paper_available",
			Help: "Cash not reserved as margin",
		}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paper_open_orders",
			Help: "Open paper orders",
		}),
		tick: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "paper_tick_seconds",
			Help:    "Time to apply one price tick",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.orders, m.rejected, m.decisions, m.exits, m.equity, m.available, m.open, m.tick)
	}
	return m
}

func (m *Metrics) OrderPlaced(side string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(side).Inc()
}

func (m *Metrics) OrderRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Decision(signal string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(signal).Inc()
}

func (m *Metrics) Exit(reason, side string) {
	if m == nil {
		return
	}
	m.exits.WithLabelValues(reason, side).Inc()
}

// Account sets the balance gauges.
func (m *Metrics) Account(equity, available float64, open int) {
	if m == nil {
		return
	}
	m.equity.Set(equity)
	m.available.Set(available)
	m.open.Set(float64(open))
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tick.Observe(d.Seconds())
}
