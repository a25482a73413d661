// Package metrics exposes protocol state as Prometheus collectors.
//
// Gauges are driven from bus envelopes rather than by reading components, so
// Handle never calls back into the ledger while an emitter holds its lock.
package metrics

import (
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"depositprotocol/internal/events"
	"depositprotocol/internal/protocol"
)

// Metrics holds the protocol collectors.
type Metrics struct {
	TotalSupply     prometheus.Gauge
	ReserveRatio    prometheus.Gauge
	Paused          prometheus.Gauge
	Events          *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	mu     sync.Mutex
	supply *big.Int
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TotalSupply: f.NewGauge(prometheus.GaugeOpts{
			Name: "deposit_total_supply",
			Help: "Outstanding deposit token supply in whole tokens",
		}),
		ReserveRatio: f.NewGauge(prometheus.GaugeOpts{
			Name: "deposit_reserve_ratio",
			Help: "Last reported reserve ratio (1 = fully backed)",
		}),
		Paused: f.NewGauge(prometheus.GaugeOpts{
			Name: "deposit_paused",
			Help: "1 while the protocol is paused",
		}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "deposit_events_total",
			Help: "Protocol events by kind",
		}, []string{"kind"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "deposit_rejections_total",
			Help: "Rejected operations by operation and reason",
		}, []string{"op", "reason"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deposit_http_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route"}),
		supply: new(big.Int),
	}
}

// Seed sets the gauges from a known starting state, e.g. after a snapshot
// has been applied and before the bus is subscribed.
func (m *Metrics) Seed(supply, ratio *big.Int, paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.supply = protocol.Clone(supply)
	m.TotalSupply.Set(tokens(m.supply))
	m.ReserveRatio.Set(tokens(ratio))
	m.Paused.Set(boolGauge(paused))
}

// Handle updates collectors from one envelope. Subscribe it to a Bus.
func (m *Metrics) Handle(env events.Envelope) {
	m.Events.WithLabelValues(string(env.Kind)).Inc()

	switch ev := env.Event.(type) {
	case protocol.Transfer:
		if !ev.IsMint() && !ev.IsBurn() {
			return
		}
		m.mu.Lock()
		if ev.IsMint() {
			m.supply.Add(m.supply, ev.Amount)
		} else {
			m.supply.Sub(m.supply, ev.Amount)
		}
		m.TotalSupply.Set(tokens(m.supply))
		m.mu.Unlock()
	case protocol.RatioUpdated:
		m.ReserveRatio.Set(tokens(ev.Ratio))
	case protocol.Paused:
		m.Paused.Set(1)
	case protocol.Unpaused:
		m.Paused.Set(0)
	}
}

// ObserveRejection counts a failed operation.
func (m *Metrics) ObserveRejection(op string, err error) {
	reason := protocol.Code(err)
	if reason == "" {
		reason = "other"
	}
	m.Rejections.WithLabelValues(op, reason).Inc()
}

// ObserveRequest records an API request duration. Call with time.Now() at
// the start of the request.
func (m *Metrics) ObserveRequest(route string, start time.Time) {
	m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// tokens converts a Scale-denominated value to a float for display.
func tokens(v *big.Int) float64 {
	f, _ := new(big.Rat).SetFrac(protocol.Clone(v), protocol.Scale).Float64()
	return f
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
