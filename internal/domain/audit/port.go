package audit

import "context"

// Repository port for persisting and querying verdicts
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Paginate(ctx context.Context, page, pageSize int) ([]*Record, error)
}

// FailureRepository defines persistence for failed checks
type FailureRepository interface {
	Save(ctx context.Context, f *Failure) error
	Latest(ctx context.Context, limit int) ([]*Failure, error)
}
