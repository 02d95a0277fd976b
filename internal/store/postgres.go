package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/aidiscovery-cli/internal/db"
	"github.com/sells-group/aidiscovery-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// reviewColumns is the COPY column order for bulk review upserts.
var reviewColumns = []string{"place_id", "author", "published_at", "rating", "text", "language"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	place_id   TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	city       TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audits (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	business_id        TEXT NOT NULL REFERENCES businesses(id),
	place_id           TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'pending',
	score              INTEGER NOT NULL DEFAULT 0,
	tier               TEXT NOT NULL DEFAULT '',
	contact_phone      TEXT NOT NULL DEFAULT '',
	cost_usd           DOUBLE PRECISION NOT NULL DEFAULT 0,
	processing_time_ms BIGINT NOT NULL DEFAULT 0,
	error_message      TEXT NOT NULL DEFAULT '',
	whatsapp_sent      BOOLEAN NOT NULL DEFAULT false,
	whatsapp_error     TEXT NOT NULL DEFAULT '',
	result             JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_audits_place_status ON audits(place_id, status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audits_created_at ON audits(created_at DESC);

CREATE TABLE IF NOT EXISTS reviews (
	place_id     TEXT NOT NULL,
	author       TEXT NOT NULL,
	published_at TEXT NOT NULL DEFAULT '',
	rating       DOUBLE PRECISION NOT NULL DEFAULT 0,
	text         TEXT NOT NULL DEFAULT '',
	language     TEXT NOT NULL DEFAULT '',
	UNIQUE (place_id, author, published_at)
);

CREATE TABLE IF NOT EXISTS whatsapp_messages (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	audit_id   TEXT NOT NULL REFERENCES audits(id),
	phone      TEXT NOT NULL,
	kind       TEXT NOT NULL,
	message_id TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_whatsapp_audit_id ON whatsapp_messages(audit_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertBusiness(ctx context.Context, b model.BusinessSignal) (string, error) {
	if b.PlaceID == "" {
		return "", eris.New("postgres: upsert business: empty place id")
	}
	b.ID = ""
	data, err := json.Marshal(b)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal business")
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO businesses (id, place_id, name, city, state, category, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		 ON CONFLICT (place_id) DO UPDATE SET
		   name = EXCLUDED.name, city = EXCLUDED.city, state = EXCLUDED.state,
		   category = EXCLUDED.category, data = EXCLUDED.data, updated_at = now()
		 RETURNING id`,
		uuid.New().String(), b.PlaceID, b.Name, b.City, b.State, b.Category, data,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: upsert business %s", b.PlaceID)
	}
	return id, nil
}

func (s *PostgresStore) GetBusiness(ctx context.Context, id string) (*model.BusinessSignal, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM businesses WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "business %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get business %s", id)
	}

	var b model.BusinessSignal
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal business")
	}
	b.ID = id
	return &b, nil
}

func (s *PostgresStore) CreateAudit(ctx context.Context, a *model.Audit) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = model.AuditPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	result, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal audit")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audits (id, business_id, place_id, status, contact_phone, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.BusinessID, a.PlaceID, string(a.Status), a.ContactPhone, result, a.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert audit")
}

func (s *PostgresStore) UpdateAuditStatus(ctx context.Context, id string, status model.AuditStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, result = jsonb_set(result, '{status}', to_jsonb($1::text)) WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update audit status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "audit %s", id)
	}
	return nil
}

func (s *PostgresStore) SaveAudit(ctx context.Context, a *model.Audit) error {
	result, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal audit")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, score = $2, tier = $3, contact_phone = $4, cost_usd = $5,
		   processing_time_ms = $6, error_message = $7, whatsapp_sent = $8, whatsapp_error = $9,
		   result = $10, completed_at = $11
		 WHERE id = $12`,
		string(a.Status), a.Score, a.Tier, a.ContactPhone, a.CostUSD,
		a.ProcessingTimeMs, a.ErrorMessage, a.WhatsAppSent, a.WhatsAppError,
		result, a.CompletedAt, a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save audit %s", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "audit %s", a.ID)
	}
	return nil
}

func (s *PostgresStore) GetAudit(ctx context.Context, id string) (*model.Audit, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+auditColumns+` FROM audits WHERE id = $1`, id)
	a, err := scanPostgresAudit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "audit %s", id)
	}
	return a, err
}

func (s *PostgresStore) FindRecentCompleted(ctx context.Context, placeID string, since time.Time) (*model.Audit, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+auditColumns+` FROM audits
		 WHERE place_id = $1 AND status = $2 AND created_at >= $3
		 ORDER BY created_at DESC LIMIT 1`,
		placeID, string(model.AuditCompleted), since.UTC(),
	)
	a, err := scanPostgresAudit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *PostgresStore) ListAudits(ctx context.Context, filter model.AuditFilter) ([]model.Audit, error) {
	query := `SELECT ` + auditColumns + ` FROM audits WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.PlaceID != "" {
		query += fmt.Sprintf(` AND place_id = $%d`, argIdx)
		args = append(args, filter.PlaceID)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audits")
	}
	defer rows.Close()

	var audits []model.Audit
	for rows.Next() {
		a, err := scanPostgresAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, *a)
	}
	return audits, eris.Wrap(rows.Err(), "postgres: list audits iterate")
}

var reviewMerge = db.Merge{
	Table:   "reviews",
	Columns: reviewColumns,
	Keys:    []string{"place_id", "author", "published_at"},
}

func (s *PostgresStore) SaveReviews(ctx context.Context, placeID string, reviews []model.Review) (int64, error) {
	rows := make([][]any, 0, len(reviews))
	for _, r := range reviews {
		rows = append(rows, []any{placeID, r.Author, r.PublishedAt, r.Rating, r.Text, r.Language})
	}
	n, err := reviewMerge.Run(ctx, s.pool, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save reviews for %s", placeID)
	}
	return n, nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, placeID string, limit int) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT place_id, author, published_at, rating, text, language FROM reviews
		 WHERE place_id = $1 ORDER BY published_at DESC LIMIT $2`,
		placeID, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviews")
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.PlaceID, &r.Author, &r.PublishedAt, &r.Rating, &r.Text, &r.Language); err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list reviews iterate")
}

func (s *PostgresStore) LogWhatsApp(ctx context.Context, m *model.WhatsAppMessage) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO whatsapp_messages (id, audit_id, phone, kind, message_id, status, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.AuditID, m.Phone, m.Kind, m.MessageID, m.Status, m.Error, m.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: log whatsapp for audit %s", m.AuditID)
}

func (s *PostgresStore) ListWhatsApp(ctx context.Context, auditID string) ([]model.WhatsAppMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, audit_id, phone, kind, message_id, status, error, created_at
		 FROM whatsapp_messages WHERE audit_id = $1 ORDER BY created_at`,
		auditID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list whatsapp")
	}
	defer rows.Close()

	var out []model.WhatsAppMessage
	for rows.Next() {
		var m model.WhatsAppMessage
		if err := rows.Scan(&m.ID, &m.AuditID, &m.Phone, &m.Kind, &m.MessageID, &m.Status, &m.Error, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan whatsapp")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list whatsapp iterate")
}

// scanPostgresAudit reads one audit row. pgx.ErrNoRows is returned unwrapped
// so callers can map it.
func scanPostgresAudit(row pgx.Row) (*model.Audit, error) {
	var (
		a      model.Audit
		status string
		result []byte
	)
	err := row.Scan(&a.ID, &a.BusinessID, &a.PlaceID, &status, &a.Score, &a.Tier, &a.ContactPhone,
		&a.CostUSD, &a.ProcessingTimeMs, &a.ErrorMessage, &a.WhatsAppSent, &a.WhatsAppError,
		&result, &a.CreatedAt, &a.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan audit")
	}

	if err := mergeAuditResult(&a, result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal audit result")
	}
	a.Status = model.AuditStatus(status)
	return &a, nil
}
