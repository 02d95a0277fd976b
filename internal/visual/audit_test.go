package visual

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAudit(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		coverage float64
		recs     []string
	}{
		{"no photos", 0, 0.0, []string{SuggestFacade, SuggestInterior, SuggestProducts, SuggestTeam, SuggestDetails}},
		{"negative reads as zero", -3, 0.0, []string{SuggestFacade, SuggestInterior, SuggestProducts, SuggestTeam, SuggestDetails}},
		{"few photos", 3, 0.3, []string{SuggestFacade, SuggestInterior, SuggestProducts, SuggestTeam, SuggestDetails}},
		{"five photos", 5, 0.6, []string{SuggestProducts, SuggestTeam, SuggestDetails}},
		{"ten photos", 10, 0.8, []string{SuggestDetails}},
		{"fifteen photos", 15, 0.8, []string{}},
		{"twenty photos", 20, 0.95, []string{}},
		{"many photos", 120, 0.95, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Audit(tt.count)
			assert.InDelta(t, tt.coverage, got.CoverageScore, 1e-9)
			assert.Equal(t, tt.recs, got.Recommendations)
			if tt.count >= 0 {
				assert.Equal(t, tt.count, got.PhotoCount)
			} else {
				assert.Equal(t, 0, got.PhotoCount)
			}
		})
	}
}
