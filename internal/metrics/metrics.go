package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the nodeforge collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	resolutions      *prometheus.CounterVec
	discoveries      *prometheus.CounterVec
	discoveryResults *prometheus.HistogramVec
	nodesCreated     *prometheus.CounterVec
	editorJobs       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeforge_resolutions_total",
				Help: "Symbol resolution attempts by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		discoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeforge_discovery_requests_total",
				Help: "Discovery operations by operation and success",
			},
			[]string{"operation", "success"},
		),
		discoveryResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nodeforge_discovery_results",
				Help:    "Number of actions returned per discovery operation",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
			[]string{"operation"},
		),
		nodesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeforge_nodes_created_total",
				Help: "Nodes created by node kind",
			},
			[]string{"kind"},
		),
		editorJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeforge_editor_jobs_total",
				Help: "Jobs run on the editing context by outcome",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.resolutions, m.discoveries, m.discoveryResults, m.nodesCreated, m.editorJobs)
	return m
}

// NewUnregistered creates collectors on a private registry, for tests and tools.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Resolution records one strategy outcome ("resolved", "declined" or "failed").
func (m *Metrics) Resolution(strategy, outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(strategy, outcome).Inc()
}

// Discovery records one discovery operation and its result size.
func (m *Metrics) Discovery(operation string, success bool, count int) {
	if m == nil {
		return
	}
	m.discoveries.WithLabelValues(operation, strconv.FormatBool(success)).Inc()
	m.discoveryResults.WithLabelValues(operation).Observe(float64(count))
}

// NodeCreated records a created node of the given kind.
func (m *Metrics) NodeCreated(kind string) {
	if m == nil {
		return
	}
	m.nodesCreated.WithLabelValues(kind).Inc()
}

// EditorJob records a job outcome on the editing context.
func (m *Metrics) EditorJob(outcome string) {
	if m == nil {
		return
	}
	m.editorJobs.WithLabelValues(outcome).Inc()
}
