package scoring

// Tier is the qualitative band of a discovery score.
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierRegular   Tier = "regular"
	TierCritical  Tier = "critical"
)

// Interpretation is the display data for a score tier.
type Interpretation struct {
	Tier    Tier   `json:"tier"`
	Label   string `json:"label"`
	Color   string `json:"color"`
	Message string `json:"message"`
}

var interpretations = []struct {
	min int
	Interpretation
}{
	{80, Interpretation{TierExcellent, "Excelente", "#22c55e", "Seu negócio está muito bem posicionado para ser descoberto pela IA do Google!"}},
	{60, Interpretation{TierGood, "Bom", "#3b82f6", "Bom posicionamento, mas há oportunidades de melhoria."}},
	{40, Interpretation{TierRegular, "Regular", "#f59e0b", "A IA tem dificuldade para entender seu negócio. Otimização necessária."}},
	{0, Interpretation{TierCritical, "Crítico", "#ef4444", "Seu negócio está praticamente invisível para buscas com IA. Ação urgente necessária!"}},
}

// Interpret maps a score to its tier. Each tier includes its lower bound.
func Interpret(score int) Interpretation {
	for _, in := range interpretations {
		if score >= in.min {
			return in.Interpretation
		}
	}
	return interpretations[len(interpretations)-1].Interpretation
}
