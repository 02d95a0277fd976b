package scoring

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

func fullBusiness() model.BusinessSignal {
	return model.BusinessSignal{
		Name:         "Clinica Sorriso",
		Description:  "Clinica odontologica completa com implantes e ortodontia.",
		Website:      "https://clinicasorriso.com.br",
		Phone:        "(11) 99999-0000",
		Claimed:      true,
		TotalReviews: ptrInt(100),
		Rating:       ptrFloat64(5),
	}
}

func validatedSentiment() model.SentimentResult {
	return model.SentimentResult{Gaps: []model.ClaimValidation{
		{Claimed: "Implantes", Status: model.StatusValidated},
		{Claimed: "Ortodontia", Status: model.StatusValidated},
	}}
}

func TestCalculate_Examples(t *testing.T) {
	calc := NewCalculator(DefaultWeights())

	tests := []struct {
		name       string
		perception model.AIPerceptionResult
		sentiment  model.SentimentResult
		visual     model.VisualAuditResult
		business   model.BusinessSignal
		analysis   *model.CompetitiveAnalysis
		want       int
	}{
		{
			name:       "maximal signals without competitor data",
			perception: model.AIPerceptionResult{ConfidenceScore: 1.0},
			sentiment:  validatedSentiment(),
			visual:     model.VisualAuditResult{CoverageScore: 1.0},
			business:   fullBusiness(),
			want:       90,
		},
		{
			name:       "maximal signals with perfect competitive score",
			perception: model.AIPerceptionResult{ConfidenceScore: 1.0},
			sentiment:  validatedSentiment(),
			visual:     model.VisualAuditResult{CoverageScore: 1.0},
			business:   fullBusiness(),
			analysis:   &model.CompetitiveAnalysis{CompetitiveScore: 100},
			want:       100,
		},
		{
			name:     "all zero with explicit zero competitive score",
			analysis: &model.CompetitiveAnalysis{CompetitiveScore: 0},
			want:     0,
		},
		{
			name: "all zero without competitor data gets half credit",
			want: 10,
		},
		{
			name:     "neutral empty analysis",
			analysis: &model.CompetitiveAnalysis{CompetitiveScore: 50},
			want:     10,
		},
		{
			name:       "overshooting confidence is clamped at the total",
			perception: model.AIPerceptionResult{ConfidenceScore: 5.0},
			sentiment:  validatedSentiment(),
			visual:     model.VisualAuditResult{CoverageScore: 1.0},
			business:   fullBusiness(),
			want:       100,
		},
		{
			name:       "negative confidence is clamped at zero",
			perception: model.AIPerceptionResult{ConfidenceScore: -10},
			analysis:   &model.CompetitiveAnalysis{CompetitiveScore: 0},
			want:       0,
		},
		{
			name:       "fractional total floors",
			perception: model.AIPerceptionResult{ConfidenceScore: 0.5},
			analysis:   &model.CompetitiveAnalysis{CompetitiveScore: 0},
			want:       12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Calculate(tt.perception, tt.sentiment, tt.visual, tt.business, tt.analysis)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculate_ReviewComponentCaps(t *testing.T) {
	calc := NewCalculator(DefaultWeights())
	p := model.AIPerceptionResult{ConfidenceScore: 0.7}
	v := model.VisualAuditResult{CoverageScore: 0.6}

	forty := fullBusiness()
	forty.TotalReviews = ptrInt(40)
	fourHundred := fullBusiness()
	fourHundred.TotalReviews = ptrInt(400)

	assert.Equal(t,
		calc.Calculate(p, validatedSentiment(), v, forty, nil),
		calc.Calculate(p, validatedSentiment(), v, fourHundred, nil),
	)
}

func TestBreakdown_Components(t *testing.T) {
	calc := NewCalculator(DefaultWeights())

	b := model.BusinessSignal{
		Description:  "Odontologia",
		Claimed:      true,
		TotalReviews: ptrInt(25),
		Rating:       ptrFloat64(4.0),
	}
	s := model.SentimentResult{Gaps: []model.ClaimValidation{
		{Status: model.StatusValidated},
		{Status: model.StatusMissingValidation},
		{Status: model.StatusNegativePerception},
		{Status: model.StatusValidated},
	}}

	got := calc.Breakdown(
		model.AIPerceptionResult{ConfidenceScore: 0.8},
		s,
		model.VisualAuditResult{CoverageScore: 0.3},
		b,
		&model.CompetitiveAnalysis{CompetitiveScore: 75},
	)

	assert.InDelta(t, 20.0, got.AIConfidence, 1e-9)
	// description 4 + claimed 4 + reviews 2.5 + rating 2.4
	assert.InDelta(t, 12.9, got.Completeness, 1e-9)
	assert.InDelta(t, 10.0, got.Sentiment, 1e-9)
	assert.InDelta(t, 4.5, got.Visual, 1e-9)
	assert.InDelta(t, 15.0, got.Competitive, 1e-9)
	assert.Equal(t, 62, Total(got))
}

func TestBreakdown_NoGapsScoresZeroSentiment(t *testing.T) {
	calc := NewCalculator(DefaultWeights())
	got := calc.Breakdown(model.AIPerceptionResult{}, model.SentimentResult{}, model.VisualAuditResult{}, model.BusinessSignal{}, nil)
	assert.Zero(t, got.Sentiment)
	assert.InDelta(t, 10.0, got.Competitive, 1e-9)
}

func TestBreakdown_HugeReviewCountHitsCap(t *testing.T) {
	calc := NewCalculator(DefaultWeights())
	completeness := func(doc string) float64 {
		var b model.BusinessSignal
		require.NoError(t, json.Unmarshal([]byte(doc), &b))
		return calc.Breakdown(model.AIPerceptionResult{}, model.SentimentResult{}, model.VisualAuditResult{}, b, nil).Completeness
	}

	capped := completeness(`{"name":"A","total_reviews":400}`)
	assert.Greater(t, capped, 0.0)
	for _, doc := range []string{
		`{"name":"A","total_reviews":3000000000}`,
		`{"name":"A","total_reviews":1e20}`,
		`{"name":"A","total_reviews":"1e20"}`,
	} {
		assert.InDelta(t, capped, completeness(doc), 1e-9, doc)
	}
}

func TestBreakdown_CustomCompletenessWeightScales(t *testing.T) {
	w := DefaultWeights()
	w.Completeness = 10
	w.AIConfidence = 35
	calc := NewCalculator(w)

	got := calc.Breakdown(model.AIPerceptionResult{}, model.SentimentResult{}, model.VisualAuditResult{}, fullBusiness(), nil)
	assert.InDelta(t, 10.0, got.Completeness, 1e-9)
}

func TestTotal_NonFinite(t *testing.T) {
	assert.Equal(t, 0, Total(model.ScoreBreakdown{AIConfidence: math.NaN()}))
	assert.Equal(t, 100, Total(model.ScoreBreakdown{AIConfidence: math.Inf(1)}))
	assert.Equal(t, 0, Total(model.ScoreBreakdown{AIConfidence: math.Inf(-1)}))
}

func TestCalculate_Idempotent(t *testing.T) {
	calc := NewCalculator(DefaultWeights())
	p := model.AIPerceptionResult{ConfidenceScore: 0.63}
	v := model.VisualAuditResult{CoverageScore: 0.8}
	a := &model.CompetitiveAnalysis{CompetitiveScore: 47.5}

	first := calc.Calculate(p, validatedSentiment(), v, fullBusiness(), a)
	second := calc.Calculate(p, validatedSentiment(), v, fullBusiness(), a)
	assert.Equal(t, first, second)
}

func FuzzCalculate(f *testing.F) {
	f.Add(1.0, 1.0, 5.0, 100, 100.0, true, true)
	f.Add(0.0, 0.0, 0.0, 0, 0.0, false, false)
	f.Add(7.5, -3.0, 99.0, -4, 1e9, true, false)
	f.Add(math.NaN(), math.Inf(1), math.Inf(-1), 1<<30, math.NaN(), false, true)

	calc := NewCalculator(DefaultWeights())
	f.Fuzz(func(t *testing.T, confidence, coverage, rating float64, reviews int, competitive float64, claimed, withAnalysis bool) {
		b := model.BusinessSignal{Rating: &rating, TotalReviews: &reviews, Claimed: claimed}
		var a *model.CompetitiveAnalysis
		if withAnalysis {
			a = &model.CompetitiveAnalysis{CompetitiveScore: competitive}
		}
		got := calc.Calculate(
			model.AIPerceptionResult{ConfidenceScore: confidence},
			validatedSentiment(),
			model.VisualAuditResult{CoverageScore: coverage},
			b, a,
		)
		if got < 0 || got > 100 {
			t.Fatalf("score %d out of range", got)
		}
	})
}
