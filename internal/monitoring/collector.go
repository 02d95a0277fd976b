// Package monitoring watches recent audits for failure spikes, cost overruns
// and WhatsApp delivery problems, and posts alerts to a webhook.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

// collectLimit bounds the audits read per snapshot.
const collectLimit = 10000

// MetricsSnapshot holds a point-in-time view of audit health.
type MetricsSnapshot struct {
	AuditsTotal     int     `json:"audits_total"`
	AuditsCompleted int     `json:"audits_completed"`
	AuditsFailed    int     `json:"audits_failed"`
	AuditsInFlight  int     `json:"audits_in_flight"`
	FailRate        float64 `json:"fail_rate"`
	CostUSD         float64 `json:"cost_usd"`
	AvgScore        float64 `json:"avg_score"`
	AvgProcessingMs int64   `json:"avg_processing_ms"`

	WhatsAppSent   int `json:"whatsapp_sent"`
	WhatsAppFailed int `json:"whatsapp_failed"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Finished is the number of audits that reached a terminal status.
func (s *MetricsSnapshot) Finished() int {
	return s.AuditsCompleted + s.AuditsFailed
}

// AuditLister is the store method the collector reads.
type AuditLister interface {
	ListAudits(ctx context.Context, filter model.AuditFilter) ([]model.Audit, error)
}

// Collector gathers metrics from the audit store.
type Collector struct {
	store AuditLister
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st AuditLister) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	audits, err := c.store.ListAudits(ctx, model.AuditFilter{
		Since: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit: collectLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list audits")
	}

	snap.AuditsTotal = len(audits)
	var totalScore int
	var totalMs int64
	for _, a := range audits {
		snap.CostUSD += a.CostUSD
		switch a.Status {
		case model.AuditCompleted:
			snap.AuditsCompleted++
			totalScore += a.Score
			totalMs += a.ProcessingTimeMs
		case model.AuditFailed:
			snap.AuditsFailed++
		default:
			snap.AuditsInFlight++
		}
		if a.WhatsAppSent {
			snap.WhatsAppSent++
		}
		if a.WhatsAppError != "" {
			snap.WhatsAppFailed++
		}
	}

	if finished := snap.Finished(); finished > 0 {
		snap.FailRate = float64(snap.AuditsFailed) / float64(finished)
	}
	if snap.AuditsCompleted > 0 {
		snap.AvgScore = float64(totalScore) / float64(snap.AuditsCompleted)
		snap.AvgProcessingMs = totalMs / int64(snap.AuditsCompleted)
	}
	return snap, nil
}
