package model

// Gap types produced by the competitive analysis.
const (
	GapReviews      = "reviews"
	GapRating       = "rating"
	GapPhotos       = "photos"
	GapAIVisibility = "ai_visibility"
	GapWebsite      = "website"
)

// Severity levels for gaps.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// GapRecord is one actionable difference between the business and its
// competitors.
type GapRecord struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Action   string `json:"action"`
}

// BusinessMetrics is the business row of the comparison matrix.
type BusinessMetrics struct {
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"total_reviews"`
	PhotosCount  int     `json:"photos_count"`
	HasWebsite   bool    `json:"has_website"`
}

// CompetitorAverages holds competitor means: rating to one decimal, counts
// truncated.
type CompetitorAverages struct {
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"total_reviews"`
	PhotosCount  int     `json:"photos_count"`
}

// CompetitorSummary is a competitor reduced to its comparable metrics.
type CompetitorSummary struct {
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"total_reviews"`
	PhotosCount  int     `json:"photos_count"`
	HasWebsite   bool    `json:"has_website"`
}

// ComparisonMatrix is the side-by-side view of business vs competitors. It is
// the zero value when there are no competitors.
type ComparisonMatrix struct {
	Business       *BusinessMetrics    `json:"your_business,omitempty"`
	CompetitorsAvg *CompetitorAverages `json:"competitor_average,omitempty"`
	TopCompetitors []CompetitorSummary `json:"top_competitors,omitempty"`
}

// IsEmpty reports whether the matrix carries no data.
func (m ComparisonMatrix) IsEmpty() bool {
	return m.Business == nil && m.CompetitorsAvg == nil && len(m.TopCompetitors) == 0
}

// RankedCompetitor is a competitor surfaced in the report, ordered by
// rating x reviews.
type RankedCompetitor struct {
	Rank          int      `json:"rank"`
	Name          string   `json:"name"`
	PlaceID       string   `json:"place_id,omitempty"`
	Address       string   `json:"address,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	TotalReviews  int      `json:"total_reviews"`
	PhotosCount   int      `json:"photos_count"`
	Category      string   `json:"category,omitempty"`
	Website       string   `json:"website,omitempty"`
	GoogleMapsURL string   `json:"google_maps_url,omitempty"`
	AIMentioned   bool     `json:"ai_mentioned"`
}

// CompetitiveAnalysis is the output of the competitive analyzer. Callers pass
// it by pointer; nil means no analysis was run.
type CompetitiveAnalysis struct {
	Competitors      []RankedCompetitor `json:"competitors"`
	ComparisonMatrix ComparisonMatrix   `json:"comparison_matrix"`
	Gaps             []GapRecord        `json:"gaps"`
	AIMentions       AIMentionMap       `json:"ai_mentions"`
	CompetitiveScore float64            `json:"competitive_score"`
}
