package analyst

import "strings"

var claimKeywords = []struct {
	keyword string
	claim   string
}{
	{"qualidade", "Alta qualidade"},
	{"atendimento", "Atendimento diferenciado"},
	{"experiência", "Equipe experiente"},
	{"moderno", "Equipamentos modernos"},
	{"luxo", "Ambiente luxuoso"},
	{"acessível", "Preços acessíveis"},
	{"rápido", "Atendimento rápido"},
	{"personalizado", "Atendimento personalizado"},
}

// ExtractClaims derives the strengths a business claims from its
// description, for checking against reviews. Without a description the
// generic claims quality, service and location are assumed.
func ExtractClaims(description string) []string {
	if strings.TrimSpace(description) == "" {
		return []string{"Qualidade", "Atendimento", "Localização"}
	}

	desc := strings.ToLower(description)
	var claims []string
	for _, k := range claimKeywords {
		if strings.Contains(desc, k.keyword) {
			claims = append(claims, k.claim)
		}
	}
	if len(claims) == 0 {
		return []string{"Qualidade", "Atendimento"}
	}
	return claims
}
