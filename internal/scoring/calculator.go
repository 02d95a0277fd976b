package scoring

import (
	"math"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

// Calculator combines the five weighted signal buckets into the 0-100
// discovery score.
type Calculator struct {
	weights Weights
}

// NewCalculator creates a Calculator with the given weights.
func NewCalculator(w Weights) Calculator {
	return Calculator{weights: w}
}

// Weights returns the weights the calculator was built with.
func (c Calculator) Weights() Weights { return c.weights }

// Calculate returns the discovery score: the component sum floored and
// clamped to [0, 100]. A nil analysis means competitor data was never
// gathered and earns the configured default.
func (c Calculator) Calculate(
	perception model.AIPerceptionResult,
	sentiment model.SentimentResult,
	visual model.VisualAuditResult,
	business model.BusinessSignal,
	analysis *model.CompetitiveAnalysis,
) int {
	return Total(c.Breakdown(perception, sentiment, visual, business, analysis))
}

// Breakdown returns each weighted component before summing. Components are
// not clamped individually; an out-of-range confidence overshoots here and is
// only capped by Total.
func (c Calculator) Breakdown(
	perception model.AIPerceptionResult,
	sentiment model.SentimentResult,
	visual model.VisualAuditResult,
	business model.BusinessSignal,
	analysis *model.CompetitiveAnalysis,
) model.ScoreBreakdown {
	w := c.weights
	return model.ScoreBreakdown{
		AIConfidence: perception.ConfidenceScore * w.AIConfidence,
		Completeness: c.completeness(business),
		Sentiment:    sentimentAlignment(sentiment) * w.Sentiment,
		Visual:       visual.CoverageScore * w.Visual,
		Competitive:  c.competitive(analysis),
	}
}

// Total floors the component sum and clamps it to [0, 100]. Non-finite sums
// from garbage upstream values clamp as well.
func Total(b model.ScoreBreakdown) int {
	sum := b.Sum()
	switch {
	case math.IsNaN(sum), sum < 0:
		return 0
	case sum > 100:
		return 100
	}
	return int(math.Floor(sum))
}

func (c Calculator) completeness(b model.BusinessSignal) float64 {
	var pts float64
	if b.HasDescription() {
		pts += descriptionPoints
	}
	if b.HasWebsite() {
		pts += websitePoints
	}
	if b.HasPhone() {
		pts += phonePoints
	}
	if b.Claimed {
		pts += claimedPoints
	}
	pts += math.Min(float64(b.ReviewCount())/reviewsPerPoint, reviewsCapPoints)
	pts += (b.RatingValue() / maxRating) * ratingPoints

	return pts * (c.weights.Completeness / completenessBase)
}

// sentimentAlignment is the validated share of claim records. No records
// means no evidence, which scores 0.
func sentimentAlignment(s model.SentimentResult) float64 {
	total := len(s.Gaps)
	if total < 1 {
		total = 1
	}
	return float64(s.CountStatus(model.StatusValidated)) / float64(total)
}

func (c Calculator) competitive(a *model.CompetitiveAnalysis) float64 {
	if a == nil {
		return c.weights.CompetitiveDefault
	}
	return a.CompetitiveScore / 100 * c.weights.Competitive
}
