package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

const divider = "━━━━━━━━━━━━━━━━━━━━"

var medals = []string{"🥇", "🥈", "🥉"}

// WhatsApp builds the three-section diagnostic sent to the business:
// who dominates the region, where the business stands and what separates it
// from the top 3.
func WhatsApp(a *model.Audit, b model.BusinessSignal) string {
	lines := []string{
		"🔍 *DIAGNÓSTICO COMPETITIVO*",
		fmt.Sprintf("📍 %s - %s", businessName(b), b.City),
		"",
		divider,
		"*1. QUEM DOMINA SUA REGIÃO*",
		divider,
	}

	ranked := topRanked(a)
	if len(ranked) == 0 {
		lines = append(lines, "Não encontramos concorrentes próximos.")
	}
	for _, c := range ranked {
		badge := ""
		if c.AIMentioned {
			badge = " 🤖"
		}
		lines = append(lines,
			fmt.Sprintf("%s *%s*%s", medal(c.Rank), c.Name, badge),
			fmt.Sprintf("   ⭐ %s | 💬 %d avaliações | 📸 %d fotos", ratingText(c.Rating), c.TotalReviews, c.PhotosCount),
		)
	}

	m := position(a, b)
	lines = append(lines,
		"",
		divider,
		"*2. ONDE SEU NEGÓCIO ESTÁ*",
		divider,
		fmt.Sprintf("📊 *Score de Descoberta: %d/100*", a.Score),
		"",
		fmt.Sprintf("⭐ Nota: %.1f", m.Rating),
		fmt.Sprintf("💬 Avaliações: %d", m.TotalReviews),
		fmt.Sprintf("📸 Fotos: %d", m.PhotosCount),
		fmt.Sprintf("🌐 Site: %s", yesNo(m.HasWebsite)),
	)

	if gaps := topGaps(a); len(gaps) > 0 {
		lines = append(lines,
			"",
			divider,
			"*3. O QUE SEPARA VOCÊ DO TOP 3*",
			divider,
		)
		for _, g := range gaps {
			icon := "🟡"
			if g.Severity == model.SeverityHigh {
				icon = "🔴"
			}
			lines = append(lines, icon+" "+g.Message)
		}
	}

	lines = append(lines,
		"",
		divider,
		"",
		"💡 *Quer saber como fechamos essas lacunas?*",
		"Responda aqui e nosso especialista vai te explicar.",
	)
	return strings.Join(lines, "\n")
}

// OwnerNotification tells the operator that a lead received a report.
func OwnerNotification(a *model.Audit, b model.BusinessSignal) string {
	return fmt.Sprintf("🔔 *Novo lead!*\n\n📍 %s\n📱 %s\n📊 Score: %d/100\n\nO diagnóstico já foi enviado. Entre em contato agora!",
		businessName(b), a.ContactPhone, a.Score)
}

func medal(rank int) string {
	if rank >= 1 && rank <= len(medals) {
		return medals[rank-1]
	}
	return fmt.Sprintf("#%d", rank)
}
