package edge

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors exposed by the node: counts of
// messages received and executions run, VM steps interpreted, and a gauge
// of currently open TCP connections.
type Metrics struct {
	MessagesReceived *prometheus.CounterVec
	Executions       *prometheus.CounterVec
	VMSteps          prometheus.Counter
	OpenConnections  prometheus.Gauge
}

// NewMetrics constructs and registers the node's metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svmd_messages_received_total",
			Help: "Messages accepted by the line protocol, by command.",
		}, []string{"command"}),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svmd_executions_total",
			Help: "Executor invocations, by message kind and outcome.",
		}, []string{"kind", "outcome"}),
		VMSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "svmd_vm_steps_total",
			Help: "Instructions interpreted by the VM across all runs.",
		}),
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "svmd_open_connections",
			Help: "Currently open TCP line-protocol connections.",
		}),
	}
	reg.MustRegister(m.MessagesReceived, m.Executions, m.VMSteps, m.OpenConnections)
	return m
}
