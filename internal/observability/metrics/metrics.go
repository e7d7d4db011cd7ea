package metrics

import "github.com/prometheus/client_golang/prometheus"

// GuardMetrics exposes counters/histograms for the crisis guard.
type GuardMetrics struct {
	checksTotal     *prometheus.CounterVec
	detectionsTotal *prometheus.CounterVec
	failuresTotal   *prometheus.CounterVec
	auditTotal      *prometheus.CounterVec
	checkLatency    prometheus.Histogram
}

func NewGuardMetrics(reg prometheus.Registerer) *GuardMetrics {
	m := &GuardMetrics{
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis",
			Subsystem: "guard",
			Name:      "checks_total",
			Help:      "Messages screened by the crisis guard, by outcome",
		}, []string{"outcome"}),
		detectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis",
			Subsystem: "guard",
			Name:      "detections_total",
			Help:      "Matched messages by category and whether the banner was shown",
		}, []string{"category", "outcome"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis",
			Subsystem: "guard",
			Name:      "failures_total",
			Help:      "Recovered internal guard failures by fail mode",
		}, []string{"mode"}),
		auditTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis",
			Subsystem: "guard",
			Name:      "audit_records_total",
			Help:      "Audit payload writes by sink and status",
		}, []string{"sink", "status"}),
		checkLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crisis",
			Subsystem: "guard",
			Name:      "check_duration_seconds",
			Help:      "Latency of a single guard check",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checksTotal, m.detectionsTotal, m.failuresTotal, m.auditTotal, m.checkLatency)
	return m
}

func (m *GuardMetrics) ObserveCheck(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(outcome).Inc()
	m.checkLatency.Observe(seconds)
}

func (m *GuardMetrics) ObserveDetection(category, outcome string) {
	if m == nil {
		return
	}
	m.detectionsTotal.WithLabelValues(category, outcome).Inc()
}

func (m *GuardMetrics) ObserveFailure(mode string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(mode).Inc()
}

func (m *GuardMetrics) ObserveAudit(sink string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.auditTotal.WithLabelValues(sink, status).Inc()
}
