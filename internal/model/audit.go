package model

import "time"

// AuditStatus tracks an audit through the pipeline.
type AuditStatus string

const (
	AuditPending    AuditStatus = "pending"
	AuditProcessing AuditStatus = "processing"
	AuditCompleted  AuditStatus = "completed"
	AuditFailed     AuditStatus = "failed"
)

// ScoreBreakdown holds the five weighted components of the discovery score
// before truncation.
type ScoreBreakdown struct {
	AIConfidence float64 `json:"ai_confidence"`
	Completeness float64 `json:"completeness"`
	Sentiment    float64 `json:"sentiment"`
	Visual       float64 `json:"visual"`
	Competitive  float64 `json:"competitive"`
}

// Sum adds the components.
func (b ScoreBreakdown) Sum() float64 {
	return b.AIConfidence + b.Completeness + b.Sentiment + b.Visual + b.Competitive
}

// Audit is one discovery audit of a business, as persisted.
type Audit struct {
	ID                    string                `json:"id"`
	BusinessID            string                `json:"business_id"`
	PlaceID               string                `json:"place_id"`
	Status                AuditStatus           `json:"status"`
	Score                 int                   `json:"score"`
	Tier                  string                `json:"tier,omitempty"`
	Breakdown             ScoreBreakdown        `json:"breakdown"`
	AIPerception          AIPerceptionResult    `json:"ai_perception"`
	Sentiment             SentimentResult       `json:"sentiment"`
	SentimentScore        float64               `json:"sentiment_score"`
	Visual                VisualAuditResult     `json:"visual"`
	Competitive           *CompetitiveAnalysis  `json:"competitive,omitempty"`
	Recommendations       []Recommendation      `json:"recommendations"`
	ConversationalQueries []ConversationalQuery `json:"conversational_queries,omitempty"`
	ProcessingTimeMs      int64                 `json:"processing_time_ms"`
	CostUSD               float64               `json:"cost_usd"`
	ErrorMessage          string                `json:"error_message,omitempty"`
	ContactPhone          string                `json:"contact_phone,omitempty"`
	WhatsAppSent          bool                  `json:"whatsapp_sent"`
	WhatsAppError         string                `json:"whatsapp_error,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	CompletedAt           *time.Time            `json:"completed_at,omitempty"`
}

// IsFinished reports whether the audit reached a terminal status.
func (a *Audit) IsFinished() bool {
	return a.Status == AuditCompleted || a.Status == AuditFailed
}

// ConversationalQuery is a natural-language question a user might ask an AI
// assistant that should surface the business.
type ConversationalQuery struct {
	Query     string  `json:"query"`
	QueryType string  `json:"query_type,omitempty"`
	Relevance float64 `json:"relevance_score"`
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	Status  AuditStatus `json:"status,omitempty"`
	PlaceID string      `json:"place_id,omitempty"`
	Since   time.Time   `json:"since,omitempty"`
	Limit   int         `json:"limit,omitempty"`
}

// WhatsAppMessage is the delivery log entry for a message sent about an
// audit.
type WhatsAppMessage struct {
	ID        string    `json:"id"`
	AuditID   string    `json:"audit_id"`
	Phone     string    `json:"phone"`
	Kind      string    `json:"kind"`
	MessageID string    `json:"message_id,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoreInput bundles every signal the engine consumes. It is the document
// format accepted by the score command.
type ScoreInput struct {
	Business     BusinessSignal     `json:"business"`
	Competitors  []CompetitorRecord `json:"competitors,omitempty"`
	AIMentions   AIMentionMap       `json:"ai_mentions,omitempty"`
	AIPerception AIPerceptionResult `json:"ai_perception"`
	Sentiment    SentimentResult    `json:"sentiment"`
	Visual       VisualAuditResult  `json:"visual"`
	// SkipCompetitive scores without any competitive analysis, so the
	// competitive component takes its no-data default.
	SkipCompetitive bool `json:"skip_competitive,omitempty"`
}
