// Package analyst asks Claude how an AI assistant perceives a business: its
// confidence in recommending it, whether reviews back its claims, which
// questions should surface it, and whether it gets recommended at all.
package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/aidiscovery-cli/internal/cost"
	"github.com/sells-group/aidiscovery-cli/internal/model"
	"github.com/sells-group/aidiscovery-cli/pkg/anthropic"
)

// Limits on how much review text is sent per call.
const (
	perceptionReviewSample = 10
	perceptionReviewChars  = 200
	sentimentReviewSample  = 30
	sentimentReviewChars   = 150
	maxQueries             = 20
)

const systemPrompt = `Você é o sistema de IA de um assistente de buscas analisando negócios locais brasileiros.
Responda sempre em português brasileiro e APENAS com o JSON pedido, sem texto adicional.`

var defaultTemperature = 0.3

// Analyst runs the generative analyses for one model configuration.
type Analyst struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	tracker   *cost.Tracker
}

// New creates an Analyst.
func New(client anthropic.Client, model string, maxTokens int64) *Analyst {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Analyst{client: client, model: model, maxTokens: maxTokens}
}

// WithTracker returns a copy of the Analyst that records spend on tr.
func (a *Analyst) WithTracker(tr *cost.Tracker) *Analyst {
	cp := *a
	cp.tracker = tr
	return &cp
}

// Perception asks how an AI assistant would describe and rate the business
// from its public data and a sample of reviews.
func (a *Analyst) Perception(ctx context.Context, b model.BusinessSignal, reviews []model.Review) (model.AIPerceptionResult, error) {
	var texts []string
	for _, r := range reviews {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		texts = append(texts, "- "+truncate(r.Text, perceptionReviewChars))
		if len(texts) == perceptionReviewSample {
			break
		}
	}

	prompt := fmt.Sprintf(`DADOS DO NEGÓCIO:
- Nome: %s
- Categoria: %s
- Localização: %s, %s
- Nota média: %.1f/5.0 (%d avaliações)
- Descrição: %s
- Possui site: %s
- Perfil reivindicado: %s

AVALIAÇÕES RECENTES (amostra de %d):
%s

TAREFA: com base APENAS nesses dados públicos, responda em JSON:
{
  "summary": "como você descreveria este negócio para um usuário em 2-3 frases",
  "strengths": ["5-8 atributos principais que você identifica"],
  "weaknesses": ["3-5 informações que FALTAM e limitam recomendações precisas"],
  "keywords": ["termos de busca para os quais você recomendaria este negócio"],
  "confidence_score": 0.0
}
confidence_score vai de 0.0 a 1.0: sua confiança para recomendar este negócio em perguntas complexas.`,
		b.Name, orDefault(b.Category, "Não informada"), b.City, b.State,
		b.RatingValue(), b.ReviewCount(),
		orDefault(b.Description, "Não fornecida"),
		yesNo(b.HasWebsite()), yesNo(b.Claimed),
		len(texts), strings.Join(texts, "\n"))

	raw, err := a.ask(ctx, "perception", prompt)
	if err != nil {
		return model.DefaultPerception(), err
	}
	var out model.AIPerceptionResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return model.DefaultPerception(), eris.Wrap(err, "analyst: decode perception")
	}
	return out, nil
}

// SentimentGaps groups reviews by topic and checks each claimed strength
// against what reviewers actually say. When claims is empty they are
// derived from the description.
func (a *Analyst) SentimentGaps(ctx context.Context, b model.BusinessSignal, reviews []model.Review, claims []string) (model.SentimentResult, error) {
	if len(claims) == 0 {
		claims = ExtractClaims(b.Description)
	}

	var lines []string
	for i, r := range reviews {
		if i == sentimentReviewSample {
			break
		}
		lines = append(lines, fmt.Sprintf("[%.0f★] %s", r.Rating, truncate(r.Text, sentimentReviewChars)))
	}

	claimLines := make([]string, len(claims))
	for i, c := range claims {
		claimLines[i] = "- " + c
	}

	prompt := fmt.Sprintf(`NEGÓCIO: %s
CATEGORIA: %s

O QUE O NEGÓCIO AFIRMA SER BOM:
%s

AVALIAÇÕES REAIS (%d no total):
%s

TAREFA: analise as avaliações e responda em JSON:
{
  "topics": {"atendimento": 0.85, "limpeza": 0.92},
  "gaps": [
    {"claimed": "Atendimento personalizado", "status": "missing_validation", "evidence": "trecho ou justificativa"}
  ]
}
topics: agrupe as avaliações por tópico com nota de sentimento de 0.0 a 1.0.
gaps: para CADA alegação do negócio, use o status:
- "missing_validation" se menos de 30%% das avaliações mencionam
- "negative_perception" se mencionam com sentimento negativo
- "validated" se confirmam positivamente`,
		b.Name, orDefault(b.Category, "Não informada"),
		strings.Join(claimLines, "\n"),
		len(reviews), strings.Join(lines, "\n"))

	raw, err := a.ask(ctx, "sentiment", prompt)
	if err != nil {
		return model.DefaultSentiment(), err
	}
	var out model.SentimentResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return model.DefaultSentiment(), eris.Wrap(err, "analyst: decode sentiment")
	}
	return out, nil
}

// ConversationalQueries generates up to 20 natural questions a Brazilian
// user would ask an AI assistant that should surface the business.
func (a *Analyst) ConversationalQueries(ctx context.Context, b model.BusinessSignal) ([]model.ConversationalQuery, error) {
	prompt := fmt.Sprintf(`NEGÓCIO:
- Nome: %s
- Categoria: %s
- Cidade: %s
- Descrição: %s

TAREFA: gere %d perguntas em português brasileiro que um usuário REAL faria a um assistente de IA e que deveriam encontrar este negócio.
Perguntas NATURAIS, incluindo necessidades específicas (horário, pagamento, especialidades), variando entre urgência, pesquisa e comparação.
Classifique query_type como urgent_need, research, specific_requirement ou comparison.

Responda em JSON:
[
  {"query": "Onde tem %s aberto agora perto de mim em %s?", "query_type": "urgent_need", "relevance_score": 0.9}
]`,
		b.Name, orDefault(b.Category, "Não informada"), b.City,
		orDefault(b.Description, "N/A"), maxQueries,
		strings.ToLower(orDefault(b.Category, "um lugar")), b.City)

	raw, err := a.ask(ctx, "queries", prompt)
	if err != nil {
		return nil, err
	}

	var out []model.ConversationalQuery
	gjson.Parse(raw).ForEach(func(_, v gjson.Result) bool {
		q := strings.TrimSpace(v.Get("query").String())
		if !v.IsObject() || q == "" {
			return true
		}
		out = append(out, model.ConversationalQuery{
			Query:     q,
			QueryType: v.Get("query_type").String(),
			Relevance: cast.ToFloat64(v.Get("relevance_score").Value()),
		})
		return len(out) < maxQueries
	})
	return out, nil
}

// CheckMentions asks which of the candidate businesses the assistant would
// recommend for the category in the city. Every candidate gets an entry;
// names returned in a different case or Unicode composition are matched to the
// candidate spelling.
func (a *Analyst) CheckMentions(ctx context.Context, b model.BusinessSignal, candidates []string) (model.AIMentionMap, error) {
	out := model.AIMentionMap{}
	if len(candidates) == 0 {
		return out, nil
	}

	list := make([]string, len(candidates))
	for i, c := range candidates {
		list[i] = "- " + c
	}

	prompt := fmt.Sprintf(`Um usuário pergunta: "Qual o melhor %s em %s?"

Destes estabelecimentos, quais você recomendaria ou mencionaria na sua resposta?
%s

Responda em JSON com cada nome EXATAMENTE como escrito acima e true ou false:
{"Nome do estabelecimento": true}`,
		strings.ToLower(orDefault(b.Category, "estabelecimento")), orDefault(b.City, "sua cidade"),
		strings.Join(list, "\n"))

	raw, err := a.ask(ctx, "mentions", prompt)
	if err != nil {
		return out, err
	}

	byKey := make(map[string]string, len(candidates))
	for _, c := range candidates {
		out[c] = false
		byKey[foldName(c)] = c
	}
	gjson.Parse(raw).ForEach(func(k, v gjson.Result) bool {
		name, ok := byKey[foldName(k.String())]
		if !ok {
			return true
		}
		if mentioned, err := cast.ToBoolE(v.Value()); err == nil && mentioned {
			out[name] = true
		}
		return true
	})
	return out, nil
}

// ask sends one prompt and returns the JSON document from the reply.
func (a *Analyst) ask(ctx context.Context, phase, prompt string) (string, error) {
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      anthropic.CachedSystem(systemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &defaultTemperature,
	})
	if err != nil {
		return "", eris.Wrapf(err, "analyst: %s", phase)
	}

	spent := a.tracker.AddClaude(a.model,
		int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens),
		int(resp.Usage.CacheCreationInputTokens), int(resp.Usage.CacheReadInputTokens))
	zap.L().Debug("analyst: response",
		zap.String("phase", phase),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
		zap.Float64("cost_usd", spent),
	)

	raw, err := ExtractJSON(resp.Text())
	if err != nil {
		return "", eris.Wrapf(err, "analyst: %s", phase)
	}
	return raw, nil
}

// foldName normalizes a business name for matching: NFC, case-folded and
// trimmed. Casers are stateful, so each call builds its own.
func foldName(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "Sim"
	}
	return "Não"
}
