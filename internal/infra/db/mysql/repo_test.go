package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/factcheck/internal/domain/audit"
)

var created = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newMock(t *testing.T) (*AuditRepository, *FailureRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAuditRepository(db), NewFailureRepository(db), mock
}

func TestAuditRepository_Save(t *testing.T) {
	audits, _, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO fact_checks .* ON DUPLICATE KEY UPDATE rating=VALUES\(rating\)`).
		WithArgs("3f1c", "text", "Water boils at 100C", 8.5, 0.9, `{"rating":8.5}`, "-", created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := audits.Save(context.Background(), &domain.Record{
		ID:           "3f1c",
		InputType:    "text",
		InputSummary: "Water boils at 100C",
		Rating:       8.5,
		Confidence:   0.9,
		Result:       `{"rating":8.5}`,
		CreatedAt:    created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_SaveError(t *testing.T) {
	audits, _, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO fact_checks`).WillReturnError(errors.New("connection reset"))

	err := audits.Save(context.Background(), &domain.Record{ID: "x", InputType: "url", CreatedAt: created})
	assert.EqualError(t, err, "connection reset")
}

func TestAuditRepository_Paginate(t *testing.T) {
	audits, _, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"id", "input_type", "input_summary", "rating", "confidence", "result_json", "image_key", "created_at"}).
		AddRow("b", "image", "photo.png", 2.0, 0.7, `{}`, "images/2026/10/b.png", created).
		AddRow("a", "text", "claim", 7.5, 0.8, `{}`, "-", created.Add(-time.Hour))
	mock.ExpectQuery(`SELECT id, input_type, .* FROM fact_checks ORDER BY created_at DESC, id DESC LIMIT \? OFFSET \?`).
		WithArgs(10, 20).
		WillReturnRows(rows)

	list, err := audits.Paginate(context.Background(), 3, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.RecordID("b"), list[0].ID)
	assert.Equal(t, "images/2026/10/b.png", list[0].ImageKey)
	assert.Equal(t, "", list[1].ImageKey)
	assert.Equal(t, 7.5, list[1].Rating)
	assert.Equal(t, created.Add(-time.Hour), list[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_PaginateDefaults(t *testing.T) {
	audits, _, mock := newMock(t)
	mock.ExpectQuery(`FROM fact_checks`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	list, err := audits.Paginate(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailureRepository_Save(t *testing.T) {
	_, failures, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO fact_check_failures .* VALUES \(\?,\?,\?,\?,\?,\?\)`).
		WithArgs("url", "-", "fetch", "Failed to fetch URL content: HTTP 404", 400, created).
		WillReturnResult(sqlmock.NewResult(42, 1))

	f := &domain.Failure{
		InputType: "url",
		Phase:     domain.PhaseFetch,
		Message:   "Failed to fetch URL content: HTTP 404",
		Status:    400,
		CreatedAt: created,
	}
	require.NoError(t, failures.Save(context.Background(), f))
	assert.Equal(t, int64(42), f.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailureRepository_Latest(t *testing.T) {
	_, failures, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"id", "input_type", "input_summary", "phase", "message", "status", "created_at"}).
		AddRow(int64(9), "text", "claim", "parse", "AI analysis failed: rating is required", 500, created)
	mock.ExpectQuery(`SELECT id, .* FROM fact_check_failures ORDER BY created_at DESC, id DESC LIMIT \?`).
		WithArgs(5).
		WillReturnRows(rows)

	list, err := failures.Latest(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(9), list[0].ID)
	assert.Equal(t, domain.PhaseParse, list[0].Phase)
	assert.Equal(t, 500, list[0].Status)
	assert.Equal(t, created, list[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS fact_checks`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS fact_check_failures`).WillReturnError(errors.New("denied"))

	err = EnsureSchema(context.Background(), db)
	assert.EqualError(t, err, "mysql schema: denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurePool(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configurePool(db, Pool{})
	assert.Equal(t, 25, db.Stats().MaxOpenConnections)

	configurePool(db, Pool{MaxOpenConns: 4, MaxIdleConns: 2})
	assert.Equal(t, 4, db.Stats().MaxOpenConnections)
}
