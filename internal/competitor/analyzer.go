// Package competitor compares a business against nearby competitors: the
// comparison matrix, gap statements, the competitive position score and the
// ranking shown in reports.
package competitor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

// NeutralScore is the competitive score when there is nothing to compare
// against.
const NeutralScore = 50.0

// Competitive score component caps.
const (
	ratingMax        = 30.0
	ratingFallback   = 15.0
	reviewsMax       = 30.0
	photosMax        = 15.0
	aiMentionPoints  = 15.0
	websitePoints    = 10.0
	topCompetitorsN  = 3
	namedCompetitors = 2
)

// Analyze builds the comparison matrix, gap list and competitive score. It
// never fails: an empty competitor list yields the neutral result.
func Analyze(business model.BusinessSignal, competitors []model.CompetitorRecord, mentions model.AIMentionMap) model.CompetitiveAnalysis {
	if mentions == nil {
		mentions = model.AIMentionMap{}
	}
	if len(competitors) == 0 {
		return model.CompetitiveAnalysis{
			Competitors:      []model.RankedCompetitor{},
			Gaps:             []model.GapRecord{},
			AIMentions:       mentions,
			CompetitiveScore: NeutralScore,
		}
	}

	matrix := BuildMatrix(business, competitors)
	return model.CompetitiveAnalysis{
		Competitors:      Rank(competitors, mentions),
		ComparisonMatrix: matrix,
		Gaps:             IdentifyGaps(business, competitors, mentions),
		AIMentions:       mentions,
		CompetitiveScore: Score(business, competitors, mentions),
	}
}

// BuildMatrix returns the side-by-side metrics. Competitor means divide by the
// full competitor count, with absent values counted as zero.
func BuildMatrix(business model.BusinessSignal, competitors []model.CompetitorRecord) model.ComparisonMatrix {
	if len(competitors) == 0 {
		return model.ComparisonMatrix{}
	}

	avg := averages(competitors)
	top := make([]model.CompetitorSummary, 0, topCompetitorsN)
	for i, c := range competitors {
		if i == topCompetitorsN {
			break
		}
		top = append(top, model.CompetitorSummary{
			Name:         c.Name,
			Rating:       c.RatingValue(),
			TotalReviews: c.ReviewCount(),
			PhotosCount:  c.PhotoCount(),
			HasWebsite:   c.HasWebsite(),
		})
	}

	return model.ComparisonMatrix{
		Business: &model.BusinessMetrics{
			Name:         business.Name,
			Rating:       business.RatingValue(),
			TotalReviews: business.ReviewCount(),
			PhotosCount:  business.PhotoCount(),
			HasWebsite:   business.HasWebsite(),
		},
		CompetitorsAvg: &avg,
		TopCompetitors: top,
	}
}

func averages(competitors []model.CompetitorRecord) model.CompetitorAverages {
	if len(competitors) == 0 {
		return model.CompetitorAverages{}
	}
	var rating, reviews, photos float64
	for _, c := range competitors {
		rating += c.RatingValue()
		reviews += float64(c.ReviewCount())
		photos += float64(c.PhotoCount())
	}
	n := float64(len(competitors))
	return model.CompetitorAverages{
		Rating:       round1(rating / n),
		TotalReviews: model.SaturatingInt(reviews / n),
		PhotosCount:  model.SaturatingInt(photos / n),
	}
}

// IdentifyGaps compares the business against the competitor averages. Every
// comparison is strict so ties never produce a gap.
func IdentifyGaps(business model.BusinessSignal, competitors []model.CompetitorRecord, mentions model.AIMentionMap) []model.GapRecord {
	gaps := []model.GapRecord{}
	if len(competitors) == 0 {
		return gaps
	}

	avg := averages(competitors)
	reviews := business.ReviewCount()
	rating := business.RatingValue()
	photos := business.PhotoCount()

	if reviews < avg.TotalReviews {
		severity := model.SeverityMedium
		if float64(reviews) < float64(avg.TotalReviews)*0.5 {
			severity = model.SeverityHigh
		}
		gaps = append(gaps, model.GapRecord{
			Type:     model.GapReviews,
			Severity: severity,
			Message:  fmt.Sprintf("Seus concorrentes têm em média %d avaliações. Você tem %d.", avg.TotalReviews, reviews),
			Action:   "Implemente uma estratégia de solicitação de avaliações.",
		})
	}

	if rating < avg.Rating {
		severity := model.SeverityMedium
		if rating < avg.Rating-0.5 {
			severity = model.SeverityHigh
		}
		gaps = append(gaps, model.GapRecord{
			Type:     model.GapRating,
			Severity: severity,
			Message:  fmt.Sprintf("Nota média dos concorrentes: %.1f. Sua nota: %s.", avg.Rating, formatRating(rating)),
			Action:   "Responda avaliações negativas e melhore pontos críticos.",
		})
	}

	if photos < avg.PhotosCount {
		gaps = append(gaps, model.GapRecord{
			Type:     model.GapPhotos,
			Severity: model.SeverityMedium,
			Message:  fmt.Sprintf("Concorrentes têm em média %d fotos. Você tem %d.", avg.PhotosCount, photos),
			Action:   "Adicione fotos profissionais do espaço, equipe e serviços.",
		})
	}

	if !mentions.Mentioned(business.Name) {
		if named := mentionedCompetitors(business.Name, competitors, mentions); len(named) > 0 {
			if len(named) > namedCompetitors {
				named = named[:namedCompetitors]
			}
			gaps = append(gaps, model.GapRecord{
				Type:     model.GapAIVisibility,
				Severity: model.SeverityHigh,
				Message:  fmt.Sprintf("A IA recomenda %s na sua cidade. Seu negócio não é mencionado.", strings.Join(named, ", ")),
				Action:   "Otimize seu conteúdo online para ser reconhecido pela IA.",
			})
		}
	}

	if !business.HasWebsite() {
		withSite := 0
		for _, c := range competitors {
			if c.HasWebsite() {
				withSite++
			}
		}
		if withSite > 0 {
			gaps = append(gaps, model.GapRecord{
				Type:     model.GapWebsite,
				Severity: model.SeverityHigh,
				Message:  fmt.Sprintf("%d de %d concorrentes têm site. Você não tem.", withSite, len(competitors)),
				Action:   "Crie um site profissional com informações de serviços.",
			})
		}
	}

	return gaps
}

// mentionedCompetitors lists mentioned names other than the business:
// competitors in input order first, then any remaining names from the map.
func mentionedCompetitors(businessName string, competitors []model.CompetitorRecord, mentions model.AIMentionMap) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range competitors {
		if c.Name != businessName && mentions.Mentioned(c.Name) && !seen[c.Name] {
			seen[c.Name] = true
			out = append(out, c.Name)
		}
	}
	for _, name := range mentions.MentionedExcept(businessName) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Score rates the business's competitive position from 0 to 100, rounded to
// one decimal. Each metric is scored as a share of the best competitor.
func Score(business model.BusinessSignal, competitors []model.CompetitorRecord, mentions model.AIMentionMap) float64 {
	if len(competitors) == 0 {
		return NeutralScore
	}

	var maxRating float64
	var maxReviews, maxPhotos int
	for _, c := range competitors {
		maxRating = math.Max(maxRating, c.RatingValue())
		if n := c.ReviewCount(); n > maxReviews {
			maxReviews = n
		}
		if n := c.PhotoCount(); n > maxPhotos {
			maxPhotos = n
		}
	}

	ratingScore := ratingFallback
	if maxRating != 0 {
		ratingScore = math.Min(business.RatingValue()/maxRating, 1) * ratingMax
	}
	var reviewScore, photoScore float64
	if maxReviews != 0 {
		reviewScore = math.Min(float64(business.ReviewCount())/float64(maxReviews), 1) * reviewsMax
	}
	if maxPhotos != 0 {
		photoScore = math.Min(float64(business.PhotoCount())/float64(maxPhotos), 1) * photosMax
	}
	var aiScore, siteScore float64
	if mentions.Mentioned(business.Name) {
		aiScore = aiMentionPoints
	}
	if business.HasWebsite() {
		siteScore = websitePoints
	}

	total := ratingScore + reviewScore + photoScore + aiScore + siteScore
	if math.IsNaN(total) {
		total = 0
	}
	return round1(math.Min(math.Max(total, 0), 100))
}

// round1 rounds to one decimal, ties to even.
func round1(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}

// formatRating prints a rating at full precision, keeping at least one
// decimal: 4 prints as "4.0" and 4.25 as "4.25".
func formatRating(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
