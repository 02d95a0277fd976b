package audit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/aidiscovery-cli/internal/model"
	"github.com/sells-group/aidiscovery-cli/internal/resilience"
)

// Metrics holds the Prometheus collectors for the audit pipeline. A nil
// *Metrics records nothing.
type Metrics struct {
	AuditsTotal   *prometheus.CounterVec
	AuditDuration prometheus.Histogram
	AuditCost     prometheus.Histogram
	AuditScore    prometheus.Histogram
	CacheHits     prometheus.Counter
	WhatsAppSent  *prometheus.CounterVec
	CircuitState  *prometheus.GaugeVec
}

// NewMetrics registers the pipeline collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuditsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aidiscovery_audits_total",
				Help: "Audits finished, by final status",
			},
			[]string{"status"},
		),
		AuditDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aidiscovery_audit_duration_seconds",
			Help:    "Wall time of a full audit",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		AuditCost: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aidiscovery_audit_cost_usd",
			Help:    "API spend per completed audit in USD",
			Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25},
		}),
		AuditScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aidiscovery_audit_score",
			Help:    "Discovery score of completed audits",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "aidiscovery_audit_cache_hits_total",
			Help: "Requests answered from a recent completed audit",
		}),
		WhatsAppSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aidiscovery_whatsapp_messages_total",
				Help: "WhatsApp sends, by message kind and result",
			},
			[]string{"kind", "result"},
		),
		CircuitState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aidiscovery_circuit_state",
				Help: "Circuit breaker state per service (0 closed, 1 open, 2 half-open)",
			},
			[]string{"service"},
		),
	}
}

func (m *Metrics) observeAudit(a *model.Audit, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AuditsTotal.WithLabelValues(string(a.Status)).Inc()
	m.AuditDuration.Observe(elapsed.Seconds())
	if a.Status == model.AuditCompleted {
		m.AuditCost.Observe(a.CostUSD)
		m.AuditScore.Observe(float64(a.Score))
	}
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

func (m *Metrics) whatsApp(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.WhatsAppSent.WithLabelValues(kind, result).Inc()
}

// circuitChanged is installed as the ServiceBreakers state hook.
func (m *Metrics) circuitChanged(service string, _, to resilience.CircuitState) {
	if m == nil {
		return
	}
	m.CircuitState.WithLabelValues(service).Set(float64(to))
}
