package scoring

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

// MaxRecommendations caps the recommendation list.
const MaxRecommendations = 10

const (
	lowConfidenceThreshold = 0.5
	lowCoverageThreshold   = 0.6
	qaSeedingMinReviews    = 10
	maxPhotoSuggestions    = 3
	maxNamedCompetitors    = 2
	defaultClaim           = "atendimento"
)

// Recommendation categories.
const (
	CategoryProfileCompletion  = "profile_completion"
	CategoryVerification       = "verification"
	CategoryReviewGeneration   = "review_generation"
	CategoryVisualOptimization = "visual_optimization"
	CategoryContentSeeding     = "content_seeding"
	CategoryAIVisibility       = "ai_visibility"
	competitivePrefix          = "competitive_"
)

// Engine turns score inputs and gaps into prioritized action items.
type Engine struct{}

// NewEngine creates a recommendation engine.
func NewEngine() Engine { return Engine{} }

// Recommend evaluates every rule independently, then orders the results by
// priority and descending impact. Ties keep emission order. At most
// MaxRecommendations are returned; a profile with nothing to fix gets an
// empty, non-nil list.
func (Engine) Recommend(
	_ int,
	perception model.AIPerceptionResult,
	sentiment model.SentimentResult,
	visual model.VisualAuditResult,
	business model.BusinessSignal,
	analysis *model.CompetitiveAnalysis,
) []model.Recommendation {
	recs := []model.Recommendation{}

	if perception.ConfidenceScore < lowConfidenceThreshold {
		recs = append(recs, model.Recommendation{
			Action:       "Complete seu perfil com descrição detalhada e serviços específicos",
			Priority:     model.PriorityHigh,
			ImpactPoints: 15,
			Effort:       model.EffortLow,
			Category:     CategoryProfileCompletion,
		})
	}

	if !business.Claimed {
		recs = append(recs, model.Recommendation{
			Action:       "Reivindique e verifique seu perfil no Google Meu Negócio",
			Priority:     model.PriorityHigh,
			ImpactPoints: 10,
			Effort:       model.EffortLow,
			Category:     CategoryVerification,
		})
	}

	if !business.HasWebsite() {
		recs = append(recs, model.Recommendation{
			Action:       "Adicione um site ou landing page ao seu perfil",
			Priority:     model.PriorityMedium,
			ImpactPoints: 5,
			Effort:       model.EffortMedium,
			Category:     CategoryProfileCompletion,
		})
	}

	if gap, ok := sentiment.FirstWithStatus(model.StatusMissingValidation); ok {
		claim := strings.TrimSpace(gap.Claimed)
		if claim == "" {
			claim = defaultClaim
		}
		recs = append(recs, model.Recommendation{
			Action:       fmt.Sprintf("Solicite avaliações mencionando '%s'", claim),
			Priority:     model.PriorityHigh,
			ImpactPoints: 8,
			Effort:       model.EffortLow,
			Category:     CategoryReviewGeneration,
			Template:     fmt.Sprintf("Adoraríamos saber sua opinião sobre nosso %s!", cases.Lower(language.BrazilianPortuguese).String(claim)),
		})
	}

	if visual.CoverageScore < lowCoverageThreshold {
		recs = append(recs, model.Recommendation{
			Action:       "Adicione fotos profissionais: " + strings.Join(firstN(visual.Recommendations, maxPhotoSuggestions), ", "),
			Priority:     model.PriorityMedium,
			ImpactPoints: 12,
			Effort:       model.EffortMedium,
			Category:     CategoryVisualOptimization,
		})
	}

	if business.ReviewCount() > qaSeedingMinReviews {
		recs = append(recs, model.Recommendation{
			Action:       "Publique perguntas e respostas estratégicas no seu perfil",
			Priority:     model.PriorityMedium,
			ImpactPoints: 7,
			Effort:       model.EffortLow,
			Category:     CategoryContentSeeding,
			Detail:       "Exemplo: 'Vocês atendem emergências?' / 'Sim, atendemos de segunda a sábado até 20h'",
		})
	}

	if analysis != nil {
		recs = append(recs, competitiveRecommendations(business, analysis)...)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		pi, pj := model.PriorityRank(recs[i].Priority), model.PriorityRank(recs[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return recs[i].ImpactPoints > recs[j].ImpactPoints
	})

	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}

func competitiveRecommendations(business model.BusinessSignal, analysis *model.CompetitiveAnalysis) []model.Recommendation {
	var recs []model.Recommendation

	for _, gap := range analysis.Gaps {
		// The website rule above already covers a missing site.
		if gap.Type == model.GapWebsite && !business.HasWebsite() {
			continue
		}
		priority, impact := model.PriorityMedium, 5
		if gap.Severity == model.SeverityHigh {
			priority, impact = model.PriorityHigh, 10
		}
		action := gap.Action
		if action == "" {
			action = gap.Message
		}
		recs = append(recs, model.Recommendation{
			Action:       action,
			Priority:     priority,
			ImpactPoints: impact,
			Effort:       model.EffortMedium,
			Category:     competitivePrefix + gap.Type,
			Detail:       gap.Message,
		})
	}

	if len(analysis.AIMentions) > 0 && !analysis.AIMentions.Mentioned(business.Name) {
		if others := analysis.AIMentions.MentionedExcept(business.Name); len(others) > 0 {
			recs = append(recs, model.Recommendation{
				Action:       "Otimize sua presença online para aparecer nas recomendações da IA",
				Priority:     model.PriorityHigh,
				ImpactPoints: 15,
				Effort:       model.EffortHigh,
				Category:     CategoryAIVisibility,
				Detail: fmt.Sprintf("Concorrentes mencionados pela IA: %s. Melhore conteúdo do site, avaliações e dados estruturados.",
					strings.Join(firstN(others, maxNamedCompetitors), ", ")),
			})
		}
	}
	return recs
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
