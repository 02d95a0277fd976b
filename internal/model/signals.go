package model

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// UnavailableSummary is the perception summary used when the AI analysis
// could not be produced.
const UnavailableSummary = "Análise indisponível"

// AIPerceptionResult is how a generative model perceives the business.
// ConfidenceScore is nominally 0..1 but is not trusted or clamped.
type AIPerceptionResult struct {
	ConfidenceScore float64  `json:"confidence_score"`
	Summary         string   `json:"summary,omitempty"`
	Strengths       []string `json:"strengths,omitempty"`
	Weaknesses      []string `json:"weaknesses,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
}

// DefaultPerception is substituted when the perception call fails.
func DefaultPerception() AIPerceptionResult {
	return AIPerceptionResult{ConfidenceScore: 0, Summary: UnavailableSummary}
}

// UnmarshalJSON decodes leniently; a non-numeric confidence reads as 0.
func (p *AIPerceptionResult) UnmarshalJSON(data []byte) error {
	if !validJSON(data) {
		return eris.New("model: invalid perception json")
	}
	r := gjson.ParseBytes(data)
	*p = AIPerceptionResult{
		ConfidenceScore: floatOr(r.Get("confidence_score"), 0),
		Summary:         r.Get("summary").String(),
		Strengths:       stringList(r.Get("strengths")),
		Weaknesses:      stringList(r.Get("weaknesses")),
		Keywords:        stringList(r.Get("keywords")),
	}
	return nil
}

// Claim validation statuses.
const (
	StatusValidated          = "validated"
	StatusMissingValidation  = "missing_validation"
	StatusNegativePerception = "negative_perception"
)

// ClaimValidation records whether a business claim is backed by reviews.
type ClaimValidation struct {
	Claimed  string `json:"claimed"`
	Status   string `json:"status"`
	Evidence string `json:"evidence,omitempty"`
}

// SentimentResult is the review sentiment analysis. Gaps only ever holds
// well-formed records; malformed entries are dropped while decoding.
type SentimentResult struct {
	Topics map[string]float64 `json:"topics"`
	Gaps   []ClaimValidation  `json:"gaps"`
}

// DefaultSentiment is substituted when the sentiment call fails.
func DefaultSentiment() SentimentResult {
	return SentimentResult{Topics: map[string]float64{}, Gaps: []ClaimValidation{}}
}

// UnmarshalJSON decodes leniently. Non-object gap entries and non-numeric
// topic scores are skipped.
func (s *SentimentResult) UnmarshalJSON(data []byte) error {
	if !validJSON(data) {
		return eris.New("model: invalid sentiment json")
	}
	r := gjson.ParseBytes(data)
	out := DefaultSentiment()

	if topics := r.Get("topics"); topics.IsObject() {
		topics.ForEach(func(k, v gjson.Result) bool {
			if f := optFloat(v); f != nil {
				out.Topics[k.String()] = *f
			}
			return true
		})
	}
	if gaps := r.Get("gaps"); gaps.IsArray() {
		gaps.ForEach(func(_, g gjson.Result) bool {
			if !g.IsObject() {
				return true
			}
			out.Gaps = append(out.Gaps, ClaimValidation{
				Claimed:  g.Get("claimed").String(),
				Status:   g.Get("status").String(),
				Evidence: g.Get("evidence").String(),
			})
			return true
		})
	}
	*s = out
	return nil
}

// CountStatus returns how many gap records carry the given status.
func (s SentimentResult) CountStatus(status string) int {
	n := 0
	for _, g := range s.Gaps {
		if g.Status == status {
			n++
		}
	}
	return n
}

// FirstWithStatus returns the first gap record with the given status.
func (s SentimentResult) FirstWithStatus(status string) (ClaimValidation, bool) {
	for _, g := range s.Gaps {
		if g.Status == status {
			return g, true
		}
	}
	return ClaimValidation{}, false
}

// MeanTopicScore averages the topic scores, or returns def when there are
// none.
func (s SentimentResult) MeanTopicScore(def float64) float64 {
	if len(s.Topics) == 0 {
		return def
	}
	var sum float64
	for _, v := range s.Topics {
		sum += v
	}
	return sum / float64(len(s.Topics))
}

// VisualAuditResult is the photo coverage assessment.
type VisualAuditResult struct {
	CoverageScore   float64  `json:"coverage_score"`
	PhotoCount      int      `json:"photo_count"`
	Recommendations []string `json:"recommendations"`
}

// UnmarshalJSON decodes leniently.
func (v *VisualAuditResult) UnmarshalJSON(data []byte) error {
	if !validJSON(data) {
		return eris.New("model: invalid visual audit json")
	}
	r := gjson.ParseBytes(data)
	*v = VisualAuditResult{
		CoverageScore:   floatOr(r.Get("coverage_score"), 0),
		Recommendations: stringList(r.Get("recommendations")),
	}
	if n := optInt(r.Get("photo_count")); n != nil {
		v.PhotoCount = *n
	}
	return nil
}

// AIMentionMap records whether an AI recommender mentioned each name.
// Keys match exactly; a missing key means not mentioned.
type AIMentionMap map[string]bool

// Mentioned reports whether name was marked as mentioned.
func (m AIMentionMap) Mentioned(name string) bool {
	return m[name]
}

// MentionedExcept lists the mentioned names other than exclude, sorted so
// callers get a stable order.
func (m AIMentionMap) MentionedExcept(exclude string) []string {
	var out []string
	for name, ok := range m {
		if ok && name != exclude {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
