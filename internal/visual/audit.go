// Package visual rates a profile's photo coverage from its photo count.
package visual

import "github.com/sells-group/aidiscovery-cli/internal/model"

// Photo suggestions, added as the photo count falls below each threshold.
const (
	SuggestFacade   = "Adicione fotos da fachada/entrada"
	SuggestInterior = "Mostre o interior do estabelecimento"
	SuggestProducts = "Adicione fotos dos produtos/serviços"
	SuggestTeam     = "Mostre sua equipe trabalhando"
	SuggestDetails  = "Inclua fotos de detalhes (equipamentos, acabamento)"
)

var coverageSteps = []struct {
	below    int
	coverage float64
}{
	{1, 0.0},
	{5, 0.3},
	{10, 0.6},
	{20, 0.8},
}

const fullCoverage = 0.95

// Audit returns the coverage score and photo suggestions for a photo count.
func Audit(photoCount int) model.VisualAuditResult {
	if photoCount < 0 {
		photoCount = 0
	}

	coverage := fullCoverage
	for _, s := range coverageSteps {
		if photoCount < s.below {
			coverage = s.coverage
			break
		}
	}

	recs := []string{}
	if photoCount < 5 {
		recs = append(recs, SuggestFacade, SuggestInterior)
	}
	if photoCount < 10 {
		recs = append(recs, SuggestProducts, SuggestTeam)
	}
	if photoCount < 15 {
		recs = append(recs, SuggestDetails)
	}

	return model.VisualAuditResult{
		CoverageScore:   coverage,
		PhotoCount:      photoCount,
		Recommendations: recs,
	}
}
