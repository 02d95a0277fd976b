// Package store persists businesses, audits, reviews and WhatsApp delivery
// logs. SQLite serves the CLI; Postgres serves the API deployment.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = eris.New("store: not found")

// DefaultListLimit caps audit listings when the filter sets no limit.
const DefaultListLimit = 100

// Store defines the persistence interface for the audit pipeline.
type Store interface {
	// Businesses
	UpsertBusiness(ctx context.Context, b model.BusinessSignal) (string, error)
	GetBusiness(ctx context.Context, id string) (*model.BusinessSignal, error)

	// Audits
	CreateAudit(ctx context.Context, a *model.Audit) error
	UpdateAuditStatus(ctx context.Context, id string, status model.AuditStatus) error
	SaveAudit(ctx context.Context, a *model.Audit) error
	GetAudit(ctx context.Context, id string) (*model.Audit, error)
	FindRecentCompleted(ctx context.Context, placeID string, since time.Time) (*model.Audit, error)
	ListAudits(ctx context.Context, filter model.AuditFilter) ([]model.Audit, error)

	// Reviews
	SaveReviews(ctx context.Context, placeID string, reviews []model.Review) (int64, error)
	ListReviews(ctx context.Context, placeID string, limit int) ([]model.Review, error)

	// WhatsApp delivery log
	LogWhatsApp(ctx context.Context, m *model.WhatsAppMessage) error
	ListWhatsApp(ctx context.Context, auditID string) ([]model.WhatsAppMessage, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// auditColumns is the column list shared by every audit SELECT.
const auditColumns = `id, business_id, place_id, status, score, tier, contact_phone, cost_usd,
	processing_time_ms, error_message, whatsapp_sent, whatsapp_error, result, created_at, completed_at`

// listLimit applies the default listing cap.
func listLimit(n int) int {
	if n <= 0 {
		return DefaultListLimit
	}
	return n
}
