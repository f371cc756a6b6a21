package escalation

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the escalation subsystem.
type Metrics struct {
	CreatedTotal       *prometheus.CounterVec
	TransitionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	ResolvedLateTotal  *prometheus.CounterVec
	OpenEscalations    prometheus.Gauge
}

// NewMetrics registers and returns escalation metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "colleco_escalations_created_total",
			Help: "Total escalations created by team, type, and severity.",
		}, []string{"team", "type", "severity"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "colleco_escalation_transitions_total",
			Help: "Total lifecycle transitions by from/to status.",
		}, []string{"from", "to"}),
		ResolutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "colleco_escalation_resolution_seconds",
			Help:    "Time from creation to resolution in seconds.",
			Buckets: prometheus.ExponentialBuckets(60, 2, 12), // 1m .. ~3.4d
		}, []string{"team"}),
		ResolvedLateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "colleco_escalations_resolved_late_total",
			Help: "Escalations resolved after their SLA deadline.",
		}, []string{"team"}),
		OpenEscalations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "colleco_escalations_open",
			Help: "Escalations not yet resolved.",
		}),
	}

	reg.MustRegister(
		m.CreatedTotal,
		m.TransitionsTotal,
		m.ResolutionDuration,
		m.ResolvedLateTotal,
		m.OpenEscalations,
	)

	return m
}

// ServiceHooks receives lifecycle events from the Service. Any field may be
// nil.
type ServiceHooks struct {
	OnCreate     func(team Team, escalationType string, severity Severity)
	OnTransition func(from, to Status)
	OnResolve    func(team Team, seconds float64, late bool)
}

// Hooks returns a ServiceHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() ServiceHooks {
	return ServiceHooks{
		OnCreate: func(team Team, escalationType string, severity Severity) {
			m.CreatedTotal.WithLabelValues(string(team), escalationType, string(severity)).Inc()
			m.OpenEscalations.Inc()
		},
		OnTransition: func(from, to Status) {
			m.TransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
			if to == StatusResolved {
				m.OpenEscalations.Dec()
			}
		},
		OnResolve: func(team Team, seconds float64, late bool) {
			m.ResolutionDuration.WithLabelValues(string(team)).Observe(seconds)
			if late {
				m.ResolvedLateTotal.WithLabelValues(string(team)).Inc()
			}
		},
	}
}
