package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

func TestFormatAuditsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	audits := []model.Audit{
		{
			ID:               "abc12345-6789-0000-0000-000000000000",
			PlaceID:          "ChIJ-sorriso",
			Status:           model.AuditCompleted,
			Score:            63,
			Tier:             "good",
			CostUSD:          0.0123,
			ProcessingTimeMs: 12500,
			CreatedAt:        now,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			PlaceID:   "ChIJ-padaria",
			Status:    model.AuditProcessing,
			CreatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatAuditsList(&buf, audits)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "PLACE")
	assert.Contains(t, output, "SCORE")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "ChIJ-sorriso")
	assert.Contains(t, output, "completed")
	assert.Contains(t, output, "63")
	assert.Contains(t, output, "good")
	assert.Contains(t, output, "$0.0123")
	assert.Contains(t, output, "12.5s")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "processing")
	assert.NotContains(t, output, "def12345-6789")
}

func TestFormatAuditsList_LongPlaceID(t *testing.T) {
	audits := []model.Audit{{
		ID:      "1",
		PlaceID: "ChIJN1t_tDeuEmsRUsoyG83frY4-very-long-place-identifier",
		Status:  model.AuditFailed,
	}}

	var buf bytes.Buffer
	formatAuditsList(&buf, audits)
	assert.Contains(t, buf.String(), "ChIJN1t_tDeuEmsRUsoyG83frY4...")
	assert.Contains(t, buf.String(), "failed")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
