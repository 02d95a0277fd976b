package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/aidiscovery-cli/internal/monitoring"
)

func TestFormatSnapshot(t *testing.T) {
	snap := &monitoring.MetricsSnapshot{
		AuditsTotal:     10,
		AuditsCompleted: 7,
		AuditsFailed:    3,
		FailRate:        0.3,
		CostUSD:         0.1234,
		AvgScore:        61.5,
		AvgProcessingMs: 14200,
		WhatsAppSent:    6,
		WhatsAppFailed:  1,
		LookbackHours:   24,
	}
	alerts := []monitoring.Alert{{
		Type:     monitoring.AlertAuditFailureRate,
		Severity: "critical",
		Message:  "audit failure rate 30.0% exceeds threshold 20.0%",
	}}

	var buf bytes.Buffer
	formatSnapshot(&buf, snap, alerts)

	out := buf.String()
	assert.Contains(t, out, "last 24h")
	assert.Contains(t, out, "30.0%")
	assert.Contains(t, out, "61.5")
	assert.Contains(t, out, "14200ms")
	assert.Contains(t, out, "$0.1234")
	assert.Contains(t, out, "[critical] audit_failure_rate: audit failure rate 30.0% exceeds threshold 20.0%")
	assert.NotContains(t, out, "No alerts.")
}

func TestFormatSnapshot_NoAlerts(t *testing.T) {
	var buf bytes.Buffer
	formatSnapshot(&buf, &monitoring.MetricsSnapshot{LookbackHours: 6}, nil)
	assert.Contains(t, buf.String(), "last 6h")
	assert.Contains(t, buf.String(), "No alerts.")
}
