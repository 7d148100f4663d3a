package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/factcheck/internal/domain/audit"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Save inserts a verdict record
func (r *AuditRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO fact_checks
  (id, input_type, input_summary, rating, confidence, result_json, image_key, created_at)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  rating=VALUES(rating), confidence=VALUES(confidence), result_json=VALUES(result_json), image_key=VALUES(image_key);
`
	_, err := r.db.ExecContext(ctx, q,
		string(a.ID), a.InputType, stringOrDash(a.InputSummary),
		a.Rating, a.Confidence, jsonOrEmpty(a.Result), stringOrDash(a.ImageKey), nowIfZero(a.CreatedAt))
	return err
}

// Paginate returns a page of records ordered by created_at desc
func (r *AuditRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Record, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, input_type, input_summary, rating, confidence, result_json, image_key, created_at
FROM fact_checks
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Record{}
	for rows.Next() {
		var a domain.Record
		var id string
		var created time.Time
		if err := rows.Scan(&id, &a.InputType, &a.InputSummary, &a.Rating, &a.Confidence, &a.Result, &a.ImageKey, &created); err != nil {
			return nil, err
		}
		a.ID = domain.RecordID(id)
		if a.ImageKey == "-" {
			a.ImageKey = ""
		}
		a.CreatedAt = created
		out = append(out, &a)
	}
	return out, rows.Err()
}
