package factcheck

import (
	"context"
	"errors"
	"time"

	"github.com/bryanwahyu/factcheck/internal/domain/audit"
	domain "github.com/bryanwahyu/factcheck/internal/domain/factcheck"
)

// ErrAuditDisabled is returned by the read methods when no store is configured.
var ErrAuditDisabled = errors.New("audit store is not configured")

// History lists stored verdicts, newest first.
func (s *Service) History(ctx context.Context, page, pageSize int) (*audit.Page, error) {
	if s.Audit == nil {
		return nil, ErrAuditDisabled
	}
	list, err := s.Audit.Paginate(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*audit.Record{}
	}
	return &audit.Page{Data: list, Page: page, PageSize: pageSize}, nil
}

// RecentFailures lists the latest failed checks.
func (s *Service) RecentFailures(ctx context.Context, limit int) ([]*audit.Failure, error) {
	if s.Failures == nil {
		return nil, ErrAuditDisabled
	}
	list, err := s.Failures.Latest(ctx, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*audit.Failure{}
	}
	return list, nil
}

// RecordFailure stores a failed check. Best-effort like record.
func (s *Service) RecordFailure(ctx context.Context, inputType domain.InputType, input string, cause error, status int) {
	if s.Failures == nil || cause == nil {
		return
	}
	f := &audit.Failure{
		InputType:    string(inputType),
		InputSummary: audit.Summarize(input),
		Phase:        PhaseOf(cause),
		Message:      cause.Error(),
		Status:       status,
		CreatedAt:    s.now().UTC(),
	}
	// the request context may already be cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Failures.Save(ctx, f); err != nil {
		s.logger().WithError(err).Warn("failure log save failed")
	}
}

// PhaseOf classifies where a check failed.
func PhaseOf(err error) audit.Phase {
	switch {
	case domain.IsValidation(err), domain.IsInvalidFile(err), domain.IsTooLarge(err):
		return audit.PhaseValidate
	case domain.IsFetch(err):
		return audit.PhaseFetch
	case domain.IsSchema(err):
		return audit.PhaseParse
	default:
		return audit.PhaseAnalyze
	}
}
