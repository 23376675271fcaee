package statetransfer

import "github.com/prometheus/client_golang/prometheus"

// Metrics wraps the Stats counters as Prometheus collectors. It does
// not register itself against any registry — callers pick where these
// collectors live, since a process may run more than one Protocol
// instance (e.g. in tests) and double-registration would panic.
type Metrics struct {
	stateReqsTotal prometheus.CounterFunc
	bytesSentTotal prometheus.CounterFunc
	avgStateSize   prometheus.GaugeFunc
}

// NewMetrics builds Metrics backed by p's live Stats.
func NewMetrics(namespace string, p *Protocol) *Metrics {
	return &Metrics{
		stateReqsTotal: prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state_transfer",
			Name:      "requests_served_total",
			Help:      "Number of GET_STATE requests this node has served as a provider.",
		}, func() float64 { return float64(p.StatsSnapshot().NumStateReqs) }),
		bytesSentTotal: prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state_transfer",
			Name:      "state_bytes_sent_total",
			Help:      "Total bytes of application state sent to requesters.",
		}, func() float64 { return float64(p.StatsSnapshot().NumBytesSent) }),
		avgStateSize: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state_transfer",
			Name:      "state_bytes_avg",
			Help:      "Running average size, in bytes, of state sent per request.",
		}, func() float64 { return p.StatsSnapshot().AvgStateSize }),
	}
}

// Collectors returns the collectors for the caller to register.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.stateReqsTotal, m.bytesSentTotal, m.avgStateSize}
}
