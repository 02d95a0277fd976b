// Package report renders finished audits as a plain-text report, a WhatsApp
// message and an XLSX workbook.
package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/aidiscovery-cli/internal/model"
	"github.com/sells-group/aidiscovery-cli/internal/scoring"
)

// Sections show at most this many competitors and gaps.
const (
	topCompetitors = 3
	maxGaps        = 4
)

var rule = strings.Repeat("=", 60)

// Text builds the plain-text diagnostic report.
func Text(a *model.Audit, b model.BusinessSignal) string {
	var sb strings.Builder
	in := scoring.Interpret(a.Score)

	sb.WriteString(rule + "\n")
	sb.WriteString("DIAGNÓSTICO COMPETITIVO - AI Discovery Score\n")
	sb.WriteString(rule + "\n\n")

	fmt.Fprintf(&sb, "Negócio: %s\n", businessName(b))
	if loc := location(b); loc != "" {
		fmt.Fprintf(&sb, "Local: %s\n", loc)
	}
	fmt.Fprintf(&sb, "Score de Descoberta: %d/100 (%s)\n", a.Score, in.Label)
	fmt.Fprintf(&sb, "%s\n", in.Message)
	if a.Competitive != nil {
		fmt.Fprintf(&sb, "Score Competitivo: %.1f\n", a.Competitive.CompetitiveScore)
	} else {
		sb.WriteString("Score Competitivo: N/A\n")
	}
	sb.WriteString("\n")

	sb.WriteString("--- COMPOSIÇÃO DO SCORE ---\n\n")
	fmt.Fprintf(&sb, "  Confiança da IA:        %5.1f\n", a.Breakdown.AIConfidence)
	fmt.Fprintf(&sb, "  Perfil completo:        %5.1f\n", a.Breakdown.Completeness)
	fmt.Fprintf(&sb, "  Sentimento x alegações: %5.1f\n", a.Breakdown.Sentiment)
	fmt.Fprintf(&sb, "  Fotos:                  %5.1f\n", a.Breakdown.Visual)
	fmt.Fprintf(&sb, "  Competitividade:        %5.1f\n", a.Breakdown.Competitive)
	sb.WriteString("\n")

	if ranked := topRanked(a); len(ranked) > 0 {
		sb.WriteString("--- 1. QUEM DOMINA SUA REGIÃO ---\n\n")
		for _, c := range ranked {
			ai := ""
			if c.AIMentioned {
				ai = " [IA recomenda]"
			}
			fmt.Fprintf(&sb, "  #%d %s%s\n", c.Rank, c.Name, ai)
			fmt.Fprintf(&sb, "     Nota: %s | Avaliações: %d | Fotos: %d\n",
				ratingText(c.Rating), c.TotalReviews, c.PhotosCount)
		}
		sb.WriteString("\n")
	}

	m := position(a, b)
	sb.WriteString("--- 2. ONDE SEU NEGÓCIO ESTÁ ---\n\n")
	fmt.Fprintf(&sb, "  Nota: %.1f\n", m.Rating)
	fmt.Fprintf(&sb, "  Avaliações: %d\n", m.TotalReviews)
	fmt.Fprintf(&sb, "  Fotos: %d\n", m.PhotosCount)
	fmt.Fprintf(&sb, "  Site: %s\n", yesNo(m.HasWebsite))
	if avg := averages(a); avg != nil {
		fmt.Fprintf(&sb, "  Média dos concorrentes: nota %.1f | %d avaliações | %d fotos\n",
			avg.Rating, avg.TotalReviews, avg.PhotosCount)
	}
	sb.WriteString("\n")

	if gaps := topGaps(a); len(gaps) > 0 {
		sb.WriteString("--- 3. O QUE SEPARA VOCÊ DO TOP 3 ---\n\n")
		for _, g := range gaps {
			sev := "[MÉDIO]"
			if g.Severity == model.SeverityHigh {
				sev = "[ALTO]"
			}
			fmt.Fprintf(&sb, "  %s %s\n", sev, g.Message)
			if g.Action != "" {
				fmt.Fprintf(&sb, "         Ação: %s\n", g.Action)
			}
		}
		sb.WriteString("\n")
	}

	p := a.AIPerception
	sb.WriteString("--- COMO A IA VÊ SEU NEGÓCIO ---\n\n")
	fmt.Fprintf(&sb, "Resumo: %s\n", orNA(p.Summary))
	fmt.Fprintf(&sb, "Confiança: %.0f%%\n", p.ConfidenceScore*100)
	if len(p.Strengths) > 0 {
		fmt.Fprintf(&sb, "Pontos fortes: %s\n", strings.Join(p.Strengths, ", "))
	}
	if len(p.Weaknesses) > 0 {
		sb.WriteString("Informações faltantes:\n")
		for _, w := range p.Weaknesses {
			fmt.Fprintf(&sb, "  - %s\n", w)
		}
	}
	fmt.Fprintf(&sb, "Sentimento médio das avaliações: %.0f%%\n", a.SentimentScore*100)

	if len(a.Sentiment.Gaps) > 0 {
		sb.WriteString("\n--- ALEGAÇÕES x AVALIAÇÕES ---\n\n")
		for _, g := range a.Sentiment.Gaps {
			fmt.Fprintf(&sb, "  %s: %s\n", g.Claimed, claimStatus(g.Status))
		}
	}

	sb.WriteString("\n--- AÇÕES RECOMENDADAS ---\n\n")
	if len(a.Recommendations) == 0 {
		sb.WriteString("Nenhuma ação pendente.\n")
	}
	for i, r := range a.Recommendations {
		fmt.Fprintf(&sb, "%d. %s (Prioridade: %s, Impacto: %s)\n",
			i+1, r.Action, priorityLabel(r.Priority), r.ImpactLabel())
		if r.Detail != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Detail)
		}
	}

	if len(a.ConversationalQueries) > 0 {
		sb.WriteString("\n--- PERGUNTAS QUE DEVERIAM TE ENCONTRAR ---\n\n")
		for _, q := range a.ConversationalQueries {
			fmt.Fprintf(&sb, "  - %s\n", q.Query)
		}
	}

	sb.WriteString("\n" + rule + "\n")
	return sb.String()
}

func businessName(b model.BusinessSignal) string {
	if strings.TrimSpace(b.Name) == "" {
		return "Negócio"
	}
	return b.Name
}

func location(b model.BusinessSignal) string {
	switch {
	case b.City != "" && b.State != "":
		return b.City + " - " + b.State
	default:
		return b.City
	}
}

func topRanked(a *model.Audit) []model.RankedCompetitor {
	if a.Competitive == nil {
		return nil
	}
	c := a.Competitive.Competitors
	if len(c) > topCompetitors {
		c = c[:topCompetitors]
	}
	return c
}

func topGaps(a *model.Audit) []model.GapRecord {
	if a.Competitive == nil {
		return nil
	}
	g := a.Competitive.Gaps
	if len(g) > maxGaps {
		g = g[:maxGaps]
	}
	return g
}

func averages(a *model.Audit) *model.CompetitorAverages {
	if a.Competitive == nil {
		return nil
	}
	return a.Competitive.ComparisonMatrix.CompetitorsAvg
}

// position prefers the matrix row of the analysis and falls back to the
// business record when no competitors were compared.
func position(a *model.Audit, b model.BusinessSignal) model.BusinessMetrics {
	if a.Competitive != nil && a.Competitive.ComparisonMatrix.Business != nil {
		return *a.Competitive.ComparisonMatrix.Business
	}
	return model.BusinessMetrics{
		Name:         b.Name,
		Rating:       b.RatingValue(),
		TotalReviews: b.ReviewCount(),
		PhotosCount:  b.PhotoCount(),
		HasWebsite:   b.HasWebsite(),
	}
}

func ratingText(r *float64) string {
	if r == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *r)
}

func priorityLabel(p string) string {
	switch p {
	case model.PriorityHigh:
		return "alta"
	case model.PriorityMedium:
		return "média"
	case model.PriorityLow:
		return "baixa"
	default:
		return p
	}
}

func claimStatus(s string) string {
	switch s {
	case model.StatusValidated:
		return "confirmada pelos clientes"
	case model.StatusNegativePerception:
		return "percepção negativa"
	case model.StatusMissingValidation:
		return "sem confirmação nas avaliações"
	default:
		return s
	}
}

func yesNo(v bool) string {
	if v {
		return "Sim"
	}
	return "Não"
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
