package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the ledger's Prometheus collectors
type Metrics struct {
	Calls         *prometheus.CounterVec
	CallDuration  *prometheus.HistogramVec
	BlockHeight   prometheus.Gauge
	TotalSupply   prometheus.Gauge
	PublishErrors *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_calls_total",
			Help: "ledger calls by function and result kind",
		}, []string{"function", "result"}),
		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_call_duration_seconds",
			Help:    "time to apply and journal a call",
			Buckets: prometheus.DefBuckets,
		}, []string{"function"}),
		BlockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_block_height",
			Help: "current logical block height",
		}),
		TotalSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_total_supply",
			Help: "tokens in circulation",
		}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_event_publish_errors_total",
			Help: "failed event deliveries by function",
		}, []string{"function"}),
	}
	reg.MustRegister(m.Calls, m.CallDuration, m.BlockHeight, m.TotalSupply, m.PublishErrors)
	return m
}
