package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentimentResult_DropsMalformedGaps(t *testing.T) {
	t.Parallel()

	input := `{
		"topics": {"atendimento": 0.9, "preco": "0.5", "limpeza": "boa"},
		"gaps": [
			{"claimed": "Implantes", "status": "validated"},
			"not a record",
			42,
			null,
			{"claimed": "Ortodontia", "status": "missing_validation"},
			["nested"]
		]
	}`

	var s SentimentResult
	require.NoError(t, json.Unmarshal([]byte(input), &s))

	require.Len(t, s.Gaps, 2)
	assert.Equal(t, 1, s.CountStatus(StatusValidated))
	assert.Equal(t, 1, s.CountStatus(StatusMissingValidation))

	assert.Len(t, s.Topics, 2)
	assert.InDelta(t, 0.7, s.MeanTopicScore(0.5), 1e-9)

	g, ok := s.FirstWithStatus(StatusMissingValidation)
	require.True(t, ok)
	assert.Equal(t, "Ortodontia", g.Claimed)

	_, ok = s.FirstWithStatus(StatusNegativePerception)
	assert.False(t, ok)
}

func TestSentimentResult_GapsNotAList(t *testing.T) {
	t.Parallel()

	var s SentimentResult
	require.NoError(t, json.Unmarshal([]byte(`{"topics": [], "gaps": "oops"}`), &s))
	assert.Empty(t, s.Gaps)
	assert.Empty(t, s.Topics)
	assert.InDelta(t, 0.5, s.MeanTopicScore(0.5), 1e-9)
}

func TestAIPerceptionResult_Lenient(t *testing.T) {
	t.Parallel()

	var p AIPerceptionResult
	require.NoError(t, json.Unmarshal([]byte(`{"confidence_score":"1.4","strengths":["a",{"x":1},"b"]}`), &p))
	assert.InDelta(t, 1.4, p.ConfidenceScore, 1e-9)
	assert.Equal(t, []string{"a", "b"}, p.Strengths)

	require.NoError(t, json.Unmarshal([]byte(`{"confidence_score":"high"}`), &p))
	assert.Zero(t, p.ConfidenceScore)
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	p := DefaultPerception()
	assert.Zero(t, p.ConfidenceScore)
	assert.Equal(t, UnavailableSummary, p.Summary)

	s := DefaultSentiment()
	assert.NotNil(t, s.Topics)
	assert.NotNil(t, s.Gaps)
	assert.Empty(t, s.Gaps)
}

func TestVisualAuditResult_Lenient(t *testing.T) {
	t.Parallel()

	var v VisualAuditResult
	require.NoError(t, json.Unmarshal([]byte(`{"coverage_score":"0.6","recommendations":["Fachada"],"photo_count":7}`), &v))
	assert.InDelta(t, 0.6, v.CoverageScore, 1e-9)
	assert.Equal(t, []string{"Fachada"}, v.Recommendations)
	assert.Equal(t, 7, v.PhotoCount)
}

func TestAIMentionMap(t *testing.T) {
	t.Parallel()

	m := AIMentionMap{"MyBiz": false, "Zeta": true, "Alpha": true}
	assert.False(t, m.Mentioned("MyBiz"))
	assert.True(t, m.Mentioned("Zeta"))
	assert.False(t, m.Mentioned("Unknown"))
	assert.Equal(t, []string{"Alpha", "Zeta"}, m.MentionedExcept("MyBiz"))
	assert.Equal(t, []string{"Zeta"}, m.MentionedExcept("Alpha"))

	var empty AIMentionMap
	assert.False(t, empty.Mentioned("x"))
	assert.Empty(t, empty.MentionedExcept("x"))
}

func TestRecommendation_ImpactLabel(t *testing.T) {
	t.Parallel()

	r := Recommendation{Action: "Reivindique", Priority: PriorityHigh, ImpactPoints: 10, Category: "verification"}
	assert.Equal(t, "+10 pontos", r.ImpactLabel())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"impact":"+10 pontos"`)
	assert.Contains(t, string(data), `"impact_points":10`)
}

func TestPriorityRank(t *testing.T) {
	t.Parallel()

	assert.Less(t, PriorityRank(PriorityHigh), PriorityRank(PriorityMedium))
	assert.Less(t, PriorityRank(PriorityMedium), PriorityRank(PriorityLow))
	assert.Less(t, PriorityRank(PriorityLow), PriorityRank("urgent"))
}
