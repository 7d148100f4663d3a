package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/factcheck/internal/domain/audit"
)

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO fact_check_failures
  (input_type, input_summary, phase, message, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id;
`
	return r.db.QueryRowContext(ctx, q,
		stringOrDash(f.InputType), stringOrDash(f.InputSummary), stringOrDash(string(f.Phase)),
		stringOrDash(f.Message), f.Status, nowIfZero(f.CreatedAt)).Scan(&f.ID)
}

func (r *FailureRepository) Latest(ctx context.Context, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, input_type, input_summary, phase, message, status, created_at
FROM fact_check_failures
ORDER BY created_at DESC, id DESC
LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Failure{}
	for rows.Next() {
		var f domain.Failure
		var phase string
		var created time.Time
		if err := rows.Scan(&f.ID, &f.InputType, &f.InputSummary, &phase, &f.Message, &f.Status, &created); err != nil {
			return nil, err
		}
		f.Phase = domain.Phase(phase)
		f.CreatedAt = created
		out = append(out, &f)
	}
	return out, rows.Err()
}
