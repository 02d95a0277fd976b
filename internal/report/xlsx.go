package report

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/aidiscovery-cli/internal/model"
	"github.com/sells-group/aidiscovery-cli/internal/scoring"
)

// Sheet names of the exported workbook.
const (
	SheetAudits          = "Auditorias"
	SheetRecommendations = "Recomendações"
)

// Entry pairs an audit with its business for export.
type Entry struct {
	Audit    *model.Audit
	Business model.BusinessSignal
}

var auditHeader = []string{
	"ID", "Negócio", "Cidade", "UF", "Categoria", "Status", "Score", "Nível",
	"Confiança IA", "Perfil", "Sentimento", "Fotos", "Competitividade",
	"Nota", "Avaliações", "Qtd. fotos", "Site", "Custo (USD)", "Tempo (ms)", "WhatsApp", "Criado em",
}

var recommendationHeader = []string{"ID", "Negócio", "#", "Ação", "Prioridade", "Impacto", "Esforço", "Categoria"}

// XLSX builds a workbook with one row per audit and one row per
// recommendation.
func XLSX(entries []Entry) (*xlsx.File, error) {
	f := xlsx.NewFile()
	audits, err := f.AddSheet(SheetAudits)
	if err != nil {
		return nil, eris.Wrap(err, "report: add audits sheet")
	}
	recs, err := f.AddSheet(SheetRecommendations)
	if err != nil {
		return nil, eris.Wrap(err, "report: add recommendations sheet")
	}
	addStrings(audits.AddRow(), auditHeader)
	addStrings(recs.AddRow(), recommendationHeader)

	for _, e := range entries {
		a, b := e.Audit, e.Business
		if a == nil {
			continue
		}
		row := audits.AddRow()
		addStrings(row, []string{a.ID, b.Name, b.City, b.State, b.Category, string(a.Status)})
		row.AddCell().SetInt(a.Score)
		row.AddCell().SetString(scoring.Interpret(a.Score).Label)
		for _, v := range []float64{
			a.Breakdown.AIConfidence, a.Breakdown.Completeness, a.Breakdown.Sentiment,
			a.Breakdown.Visual, a.Breakdown.Competitive, b.RatingValue(),
		} {
			row.AddCell().SetFloat(v)
		}
		row.AddCell().SetInt(b.ReviewCount())
		row.AddCell().SetInt(b.PhotoCount())
		row.AddCell().SetString(yesNo(b.HasWebsite()))
		row.AddCell().SetFloat(a.CostUSD)
		row.AddCell().SetInt64(a.ProcessingTimeMs)
		row.AddCell().SetString(yesNo(a.WhatsAppSent))
		row.AddCell().SetString(a.CreatedAt.UTC().Format(time.RFC3339))

		for i, r := range a.Recommendations {
			rr := recs.AddRow()
			addStrings(rr, []string{a.ID, b.Name})
			rr.AddCell().SetInt(i + 1)
			addStrings(rr, []string{r.Action, priorityLabel(r.Priority), r.ImpactLabel(), r.Effort, r.Category})
		}
	}
	return f, nil
}

// WriteXLSX builds the workbook and writes it to w.
func WriteXLSX(w io.Writer, entries []Entry) error {
	f, err := XLSX(entries)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write xlsx")
	}
	return nil
}

func addStrings(row *xlsx.Row, values []string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
