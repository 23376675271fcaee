package executor

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the coordinator's live queue depths as Prometheus
// gauges. Only meaningful on whichever node currently holds the
// coordinator role; on a follower the gauges simply read zero.
type Metrics struct {
	queuedTasks    prometheus.GaugeFunc
	readyConsumers prometheus.GaugeFunc
}

// NewMetrics builds Metrics backed by p's live queues.
func NewMetrics(namespace string, p *Protocol) *Metrics {
	return &Metrics{
		queuedTasks: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "queued_tasks",
			Help:      "Number of submissions awaiting a consumer, as seen by this node acting as coordinator.",
		}, func() float64 { return float64(p.queueDepth()) }),
		readyConsumers: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "ready_consumers",
			Help:      "Number of consumers currently advertised as ready, as seen by this node acting as coordinator.",
		}, func() float64 { return float64(p.readyConsumerCount()) }),
	}
}

// Collectors returns the collectors for the caller to register.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.queuedTasks, m.readyConsumers}
}
