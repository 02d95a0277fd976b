package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS businesses`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`SELECT 1`).WillReturnError(errors.New("connection refused"))

	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: ping")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertBusiness(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO businesses .* ON CONFLICT \(place_id\) DO UPDATE .* RETURNING id`).
		WithArgs(pgxmock.AnyArg(), "place-1", "Padaria Estrela", "Campinas", "SP", "Padaria", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("biz-1"))

	id, err := s.UpsertBusiness(context.Background(), testBusiness("place-1"))
	require.NoError(t, err)
	assert.Equal(t, "biz-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBusiness(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM businesses WHERE id = \$1`).
		WithArgs("biz-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"place_id":"place-1","name":"Padaria Estrela","rating":"4.4"}`)))

	got, err := s.GetBusiness(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "biz-1", got.ID)
	assert.Equal(t, "Padaria Estrela", got.Name)
	assert.InDelta(t, 4.4, got.RatingValue(), 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBusiness_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM businesses`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetBusiness(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateAudit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO audits`).
		WithArgs(pgxmock.AnyArg(), "biz-1", "place-1", "pending", "5511988887777", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	a := &model.Audit{BusinessID: "biz-1", PlaceID: "place-1", ContactPhone: "5511988887777"}
	require.NoError(t, s.CreateAudit(context.Background(), a))
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, model.AuditPending, a.Status)
	assert.False(t, a.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAuditStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE audits SET status = \$1`).
		WithArgs("processing", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateAuditStatus(context.Background(), "missing", model.AuditProcessing)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAudit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	done := time.Now().UTC()
	a := &model.Audit{ID: "audit-1", Status: model.AuditCompleted, Score: 71, Tier: "Bom", CompletedAt: &done}

	mock.ExpectExec(`UPDATE audits SET status = \$1, score = \$2`).
		WithArgs("completed", 71, "Bom", "", 0.0, int64(0), "", false, "", pgxmock.AnyArg(), a.CompletedAt, "audit-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.SaveAudit(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAudit_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE audits`).WillReturnError(errors.New("deadlock detected"))

	err := s.SaveAudit(context.Background(), &model.Audit{ID: "audit-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: save audit audit-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAudit_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, business_id, place_id, status`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAudit(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindRecentCompleted_None(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(`FROM audits\s+WHERE place_id = \$1 AND status = \$2 AND created_at >= \$3`).
		WithArgs("place-1", "completed", since.UTC()).
		WillReturnError(pgx.ErrNoRows)

	got, err := s.FindRecentCompleted(context.Background(), "place-1", since)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAudits_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`AND status = \$1 AND place_id = \$2 ORDER BY created_at DESC LIMIT \$3`).
		WithArgs("failed", "place-1", DefaultListLimit).
		WillReturnError(errors.New("timeout"))

	_, err := s.ListAudits(context.Background(), model.AuditFilter{Status: model.AuditFailed, PlaceID: "place-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: list audits")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveReviews(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{reviewMerge.StagingTable()}, reviewColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "reviews"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.SaveReviews(context.Background(), "place-1", []model.Review{
		{Author: "Ana", Rating: 5, Text: "Ótimo"},
		{Author: "Bruno", Rating: 4, Text: "Bom"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveReviews_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.SaveReviews(context.Background(), "place-1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListReviews(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT place_id, author, published_at, rating, text, language FROM reviews`).
		WithArgs("place-1", 10).
		WillReturnRows(pgxmock.NewRows([]string{"place_id", "author", "published_at", "rating", "text", "language"}).
			AddRow("place-1", "Ana", "2025-03-01", 5.0, "Ótimo", "pt").
			AddRow("place-1", "Bruno", "2025-02-01", 4.0, "Bom", "pt"))

	got, err := s.ListReviews(context.Background(), "place-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ana", got[0].Author)
	assert.InDelta(t, 4.0, got[1].Rating, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LogWhatsApp(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO whatsapp_messages`).
		WithArgs(pgxmock.AnyArg(), "audit-1", "5511988887777", "owner", "", "failed", "boom", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	m := &model.WhatsAppMessage{AuditID: "audit-1", Phone: "5511988887777", Kind: "owner", Status: "failed", Error: "boom"}
	require.NoError(t, s.LogWhatsApp(context.Background(), m))
	assert.NotEmpty(t, m.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
