package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id         TEXT PRIMARY KEY,
	place_id   TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	city       TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS audits (
	id                 TEXT PRIMARY KEY,
	business_id        TEXT NOT NULL REFERENCES businesses(id),
	place_id           TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'pending',
	score              INTEGER NOT NULL DEFAULT 0,
	tier               TEXT NOT NULL DEFAULT '',
	contact_phone      TEXT NOT NULL DEFAULT '',
	cost_usd           REAL NOT NULL DEFAULT 0,
	processing_time_ms INTEGER NOT NULL DEFAULT 0,
	error_message      TEXT NOT NULL DEFAULT '',
	whatsapp_sent      INTEGER NOT NULL DEFAULT 0,
	whatsapp_error     TEXT NOT NULL DEFAULT '',
	result             TEXT NOT NULL,
	created_at         DATETIME NOT NULL,
	completed_at       DATETIME
);

CREATE TABLE IF NOT EXISTS reviews (
	place_id     TEXT NOT NULL,
	author       TEXT NOT NULL,
	published_at TEXT NOT NULL DEFAULT '',
	rating       REAL NOT NULL DEFAULT 0,
	text         TEXT NOT NULL DEFAULT '',
	language     TEXT NOT NULL DEFAULT '',
	UNIQUE (place_id, author, published_at)
);

CREATE TABLE IF NOT EXISTS whatsapp_messages (
	id         TEXT PRIMARY KEY,
	audit_id   TEXT NOT NULL REFERENCES audits(id),
	phone      TEXT NOT NULL,
	kind       TEXT NOT NULL,
	message_id TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audits_place_status ON audits(place_id, status, created_at);
CREATE INDEX IF NOT EXISTS idx_audits_created_at ON audits(created_at);
CREATE INDEX IF NOT EXISTS idx_whatsapp_audit_id ON whatsapp_messages(audit_id);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertBusiness(ctx context.Context, b model.BusinessSignal) (string, error) {
	if b.PlaceID == "" {
		return "", eris.New("sqlite: upsert business: empty place id")
	}
	now := time.Now().UTC()
	newID := uuid.New().String()
	b.ID = ""

	data, err := json.Marshal(b)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal business")
	}

	var id string
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO businesses (id, place_id, name, city, state, category, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (place_id) DO UPDATE SET
		   name = excluded.name, city = excluded.city, state = excluded.state,
		   category = excluded.category, data = excluded.data, updated_at = excluded.updated_at
		 RETURNING id`,
		newID, b.PlaceID, b.Name, b.City, b.State, b.Category, string(data), now, now,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: upsert business %s", b.PlaceID)
	}
	return id, nil
}

func (s *SQLiteStore) GetBusiness(ctx context.Context, id string) (*model.BusinessSignal, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM businesses WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "business %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get business %s", id)
	}

	var b model.BusinessSignal
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal business")
	}
	b.ID = id
	return &b, nil
}

func (s *SQLiteStore) CreateAudit(ctx context.Context, a *model.Audit) error {
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
		return eris.Wrap(err, "sqlite: marshal audit")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audits (id, business_id, place_id, status, contact_phone, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.BusinessID, a.PlaceID, string(a.Status), a.ContactPhone, string(result), a.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert audit")
}

func (s *SQLiteStore) UpdateAuditStatus(ctx context.Context, id string, status model.AuditStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, result = json_set(result, '$.status', ?) WHERE id = ?`,
		string(status), string(status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update audit status %s", id)
	}
	return checkRowsAffected(res, "audit", id)
}

func (s *SQLiteStore) SaveAudit(ctx context.Context, a *model.Audit) error {
	result, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal audit")
	}

	var completed sql.NullTime
	if a.CompletedAt != nil {
		completed = sql.NullTime{Time: a.CompletedAt.UTC(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, score = ?, tier = ?, contact_phone = ?, cost_usd = ?,
		   processing_time_ms = ?, error_message = ?, whatsapp_sent = ?, whatsapp_error = ?,
		   result = ?, completed_at = ?
		 WHERE id = ?`,
		string(a.Status), a.Score, a.Tier, a.ContactPhone, a.CostUSD,
		a.ProcessingTimeMs, a.ErrorMessage, a.WhatsAppSent, a.WhatsAppError,
		string(result), completed, a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save audit %s", a.ID)
	}
	return checkRowsAffected(res, "audit", a.ID)
}

func (s *SQLiteStore) GetAudit(ctx context.Context, id string) (*model.Audit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audits WHERE id = ?`, id)
	a, err := scanSQLiteAudit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "audit %s", id)
	}
	return a, err
}

func (s *SQLiteStore) FindRecentCompleted(ctx context.Context, placeID string, since time.Time) (*model.Audit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+auditColumns+` FROM audits
		 WHERE place_id = ? AND status = ? AND created_at >= ?
		 ORDER BY created_at DESC LIMIT 1`,
		placeID, string(model.AuditCompleted), since.UTC(),
	)
	a, err := scanSQLiteAudit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *SQLiteStore) ListAudits(ctx context.Context, filter model.AuditFilter) ([]model.Audit, error) {
	query := `SELECT ` + auditColumns + ` FROM audits WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.PlaceID != "" {
		query += ` AND place_id = ?`
		args = append(args, filter.PlaceID)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audits")
	}
	defer rows.Close() //nolint:errcheck

	var audits []model.Audit
	for rows.Next() {
		a, err := scanSQLiteAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, *a)
	}
	return audits, eris.Wrap(rows.Err(), "sqlite: list audits iterate")
}

func (s *SQLiteStore) SaveReviews(ctx context.Context, placeID string, reviews []model.Review) (int64, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save reviews")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reviews (place_id, author, published_at, rating, text, language)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (place_id, author, published_at) DO UPDATE SET
		   rating = excluded.rating, text = excluded.text, language = excluded.language`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare save reviews")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, r := range reviews {
		res, err := stmt.ExecContext(ctx, placeID, r.Author, r.PublishedAt, r.Rating, r.Text, r.Language)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: save review for %s", placeID)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit save reviews")
	}
	return n, nil
}

func (s *SQLiteStore) ListReviews(ctx context.Context, placeID string, limit int) ([]model.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT place_id, author, published_at, rating, text, language FROM reviews
		 WHERE place_id = ? ORDER BY published_at DESC LIMIT ?`,
		placeID, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviews")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.PlaceID, &r.Author, &r.PublishedAt, &r.Rating, &r.Text, &r.Language); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list reviews iterate")
}

func (s *SQLiteStore) LogWhatsApp(ctx context.Context, m *model.WhatsAppMessage) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO whatsapp_messages (id, audit_id, phone, kind, message_id, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.AuditID, m.Phone, m.Kind, m.MessageID, m.Status, m.Error, m.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: log whatsapp for audit %s", m.AuditID)
}

func (s *SQLiteStore) ListWhatsApp(ctx context.Context, auditID string) ([]model.WhatsAppMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, audit_id, phone, kind, message_id, status, error, created_at
		 FROM whatsapp_messages WHERE audit_id = ? ORDER BY created_at`,
		auditID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list whatsapp")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.WhatsAppMessage
	for rows.Next() {
		var m model.WhatsAppMessage
		if err := rows.Scan(&m.ID, &m.AuditID, &m.Phone, &m.Kind, &m.MessageID, &m.Status, &m.Error, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan whatsapp")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list whatsapp iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanSQLiteAudit reads one audit row. sql.ErrNoRows is returned unwrapped so
// callers can map it.
func scanSQLiteAudit(row scannable) (*model.Audit, error) {
	var (
		a         model.Audit
		status    string
		result    string
		completed sql.NullTime
	)
	err := row.Scan(&a.ID, &a.BusinessID, &a.PlaceID, &status, &a.Score, &a.Tier, &a.ContactPhone,
		&a.CostUSD, &a.ProcessingTimeMs, &a.ErrorMessage, &a.WhatsAppSent, &a.WhatsAppError,
		&result, &a.CreatedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan audit")
	}

	if err := mergeAuditResult(&a, []byte(result)); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal audit result")
	}
	a.Status = model.AuditStatus(status)
	if completed.Valid {
		t := completed.Time.UTC()
		a.CompletedAt = &t
	}
	return &a, nil
}

// mergeAuditResult fills the analysis fields of a from the stored result
// document. Scalar columns already scanned into a take precedence.
func mergeAuditResult(a *model.Audit, result []byte) error {
	var doc model.Audit
	if err := json.Unmarshal(result, &doc); err != nil {
		return err
	}
	a.Breakdown = doc.Breakdown
	a.AIPerception = doc.AIPerception
	a.Sentiment = doc.Sentiment
	a.SentimentScore = doc.SentimentScore
	a.Visual = doc.Visual
	a.Competitive = doc.Competitive
	a.Recommendations = doc.Recommendations
	a.ConversationalQueries = doc.ConversationalQueries
	return nil
}
