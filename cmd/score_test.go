package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aidiscovery-cli/internal/competitor"
	"github.com/sells-group/aidiscovery-cli/internal/schema"
	"github.com/sells-group/aidiscovery-cli/internal/scoring"
)

const bareBusinessYAML = `
business:
  name: Loja Vazia
skip_competitive: true
`

func TestDecodeScoreInput_YAML(t *testing.T) {
	in, err := decodeScoreInput([]byte(`
business:
  name: Clínica Sorriso
  rating: "4.5"
  total_reviews: 120
  photos_count: 12
  website: https://sorriso.example
competitors:
  - name: OdontoMax
    rating: 4.9
    total_reviews: 500
ai_mentions:
  OdontoMax: true
ai_perception:
  confidence_score: 0.8
`))
	require.NoError(t, err)

	assert.Equal(t, "Clínica Sorriso", in.Business.Name)
	require.NotNil(t, in.Business.Rating)
	assert.Equal(t, 4.5, *in.Business.Rating)
	assert.Equal(t, 120, in.Business.ReviewCount())
	require.Len(t, in.Competitors, 1)
	assert.True(t, in.AIMentions.Mentioned("OdontoMax"))
	assert.Equal(t, 0.8, in.AIPerception.ConfidenceScore)

	// No visual block: coverage comes from the photo count.
	assert.Equal(t, 12, in.Visual.PhotoCount)
	assert.Equal(t, 0.8, in.Visual.CoverageScore)
	assert.NotNil(t, in.Sentiment.Topics)
}

func TestDecodeScoreInput_JSON(t *testing.T) {
	in, err := decodeScoreInput([]byte(`{"business":{"name":"Loja"},"visual":{"coverage_score":0.5},"skip_competitive":true}`))
	require.NoError(t, err)
	assert.Equal(t, 0.5, in.Visual.CoverageScore)
	assert.True(t, in.SkipCompetitive)
}

func TestDecodeScoreInput_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not yaml", "business: [unclosed"},
		{"missing business", "competitors: []"},
		{"competitors not a list", "business: {}\ncompetitors: many"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeScoreInput([]byte(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := decodeScoreInput([]byte("competitors: []"))
	var verr *schema.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEvaluate_NoSignals(t *testing.T) {
	in, err := decodeScoreInput([]byte(bareBusinessYAML))
	require.NoError(t, err)

	res := evaluate(in, scoring.DefaultWeights())
	assert.Nil(t, res.Competitive)
	assert.Equal(t, 10.0, res.Breakdown.Competitive)
	assert.Equal(t, 10, res.Score)
	assert.Equal(t, scoring.TierCritical, res.Interpretation.Tier)
	assert.NotEmpty(t, res.Recommendations)
}

func TestEvaluate_VisualFromInput(t *testing.T) {
	in, err := decodeScoreInput([]byte(`{"business":{"name":"Loja"},"visual":{"coverage_score":0.5},"skip_competitive":true}`))
	require.NoError(t, err)

	res := evaluate(in, scoring.DefaultWeights())
	assert.Equal(t, 7.5, res.Breakdown.Visual)
	assert.Equal(t, 17, res.Score)
}

func TestEvaluate_RunsCompetitiveAnalysis(t *testing.T) {
	in, err := decodeScoreInput([]byte(`{"business":{"name":"Loja"}}`))
	require.NoError(t, err)

	res := evaluate(in, scoring.DefaultWeights())
	require.NotNil(t, res.Competitive)
	assert.Equal(t, competitor.NeutralScore, res.Competitive.CompetitiveScore)
	assert.Equal(t, 10.0, res.Breakdown.Competitive)
}

func TestFormatScore(t *testing.T) {
	in, err := decodeScoreInput([]byte(bareBusinessYAML))
	require.NoError(t, err)

	var buf bytes.Buffer
	formatScore(&buf, evaluate(in, scoring.DefaultWeights()))

	out := buf.String()
	assert.Contains(t, out, "10/100")
	assert.Contains(t, out, "Crítico (critical)")
	assert.Contains(t, out, "Competitive:")
	assert.Contains(t, out, "Recommendations:")
	assert.Contains(t, out, "PRIORITY")
	assert.Contains(t, out, "pontos")
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(bareBusinessYAML), 0o644))

	data, err := readInput(path, nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Loja Vazia")

	data, err = readInput("-", strings.NewReader("business: {}"))
	require.NoError(t, err)
	assert.Equal(t, "business: {}", string(data))

	_, err = readInput(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestRunScore(t *testing.T) {
	testConfig(t)
	path := filepath.Join(t.TempDir(), "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(bareBusinessYAML), 0o644))

	var buf bytes.Buffer
	scoreCmd.SetOut(&buf)
	t.Cleanup(func() {
		scoreCmd.SetOut(nil)
		_ = scoreCmd.Flags().Set("input", "")
		_ = scoreCmd.Flags().Set("json", "false")
	})
	require.NoError(t, scoreCmd.Flags().Set("input", path))
	require.NoError(t, scoreCmd.Flags().Set("json", "true"))

	require.NoError(t, runScore(scoreCmd, nil))
	assert.Contains(t, buf.String(), `"score": 10`)
	assert.Contains(t, buf.String(), `"tier": "critical"`)
}
