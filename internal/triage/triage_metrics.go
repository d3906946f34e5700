package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	StageDuration   *prometheus.HistogramVec
	UrgencyTotal    *prometheus.CounterVec
	EscalationsTotal prometheus.Counter
	FallbacksTotal  *prometheus.CounterVec
	SubmitsTotal    *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_runs_total",
			Help: "Total triage runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intake_run_duration_seconds",
			Help:    "Duration of triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}, []string{"urgency"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intake_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"stage"}),
		UrgencyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_urgency_total",
			Help: "Urgency decisions by tier and deciding signal path.",
		}, []string{"urgency", "decided_by"}),
		EscalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intake_escalations_total",
			Help: "Total emergency escalations.",
		}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_capability_fallbacks_total",
			Help: "Capability failures recovered via stage fallback policy.",
		}, []string{"stage"}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_submits_total",
			Help: "Total message submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StageDuration,
		m.UrgencyTotal,
		m.EscalationsTotal,
		m.FallbacksTotal,
		m.SubmitsTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnStage: func(stage string, duration float64, fallback bool) {
			m.StageDuration.WithLabelValues(stage).Observe(duration)
			if fallback {
				m.FallbacksTotal.WithLabelValues(stage).Inc()
			}
		},
		OnComplete: func(e *CompleteEvent) {
			m.RunsTotal.WithLabelValues(string(e.Status)).Inc()
			m.RunDuration.WithLabelValues(string(e.Urgency)).Observe(e.Duration)
			if e.DecidedBy != "" {
				m.UrgencyTotal.WithLabelValues(string(e.Urgency), e.DecidedBy).Inc()
			}
			if e.Escalated {
				m.EscalationsTotal.Inc()
			}
		},
	}
}
