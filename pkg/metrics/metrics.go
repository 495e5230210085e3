package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Monitoring sweeps
	SweepRuns     *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec
	SweepItems    *prometheus.CounterVec

	// Alerts and safety decisions
	AlertsCreated *prometheus.CounterVec
	Decisions     *prometheus.CounterVec

	// Drug information API
	LookupRequests *prometheus.CounterVec
	LookupLatency  *prometheus.HistogramVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec

	// Broker metrics
	BrokerPublishes *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on the default registry
func NewMetrics(namespace, subsystem string) *Metrics {
	return NewWithRegistry(namespace, subsystem, prometheus.DefaultRegisterer)
}

// New returns metrics registered on a private registry. Used by tests and
// components that must not collide with the process-wide collectors.
func New(namespace string) *Metrics {
	return NewWithRegistry(namespace, "", prometheus.NewRegistry())
}

func NewWithRegistry(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_runs_total",
			Help:      "Total number of monitoring sweep runs",
		}, []string{"job", "status"}),
		SweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Time spent running a monitoring sweep",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"job"}),
		SweepItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_items_total",
			Help:      "Medications examined by sweeps, by outcome",
		}, []string{"job", "outcome"}),

		AlertsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_created_total",
			Help:      "Total number of alerts committed",
		}, []string{"type", "severity"}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "interaction_decisions_total",
			Help:      "Candidate medication safety decisions by verdict",
		}, []string{"verdict"}),

		LookupRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "drug_api_requests_total",
			Help:      "Total number of drug information API requests",
		}, []string{"operation", "status"}),
		LookupLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "drug_api_request_duration_seconds",
			Help:      "Duration of drug information API requests",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),

		BrokerPublishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "broker_publishes_total",
			Help:      "Total number of alert publications to the message broker",
		}, []string{"status"}),
	}
}
