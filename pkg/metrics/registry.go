// Package metrics wires the Prometheus collectors scattered across
// the protocol layers (statetransfer.Metrics, executor queue-depth
// gauges) into one registry an operator can expose over HTTP,
// grounded on cuemby-warren/pkg/metrics' registry-construction style.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry owns a dedicated prometheus.Registry rather than using the
// global default, so a process running more than one Stack (as the
// test suites do) never hits a duplicate-registration panic.
type Registry struct {
	*prometheus.Registry
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{Registry: prometheus.NewRegistry()}
}

// MustRegister registers every collector in cs, panicking on a
// collector that is malformed or already registered — a programmer
// error at wiring time, not a runtime condition.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.Registry.MustRegister(cs...)
}
