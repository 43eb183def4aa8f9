package sequence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Scopes for the counters this service allocates.
const (
	ScopeOrderNo  = "order_no"
	ScopePartCode = "part_code"
)

// Service allocates day-scoped sequential numbers.
type Service interface {
	WithTx(tx *gorm.DB) Service
	NextOrderNo(ctx context.Context, now time.Time) (string, error)
	NextPartCode(ctx context.Context, now time.Time) (string, error)
	NextBatchNo(now time.Time) string
}

type service struct {
	repo Repository
}

// NewService wires a sequence service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sequence repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// NextOrderNo returns PO<yyyymmdd><seq> where seq restarts daily.
func (s *service) NextOrderNo(ctx context.Context, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")
	seq, err := s.repo.Increment(ctx, ScopeOrderNo, day)
	if err != nil {
		return "", fmt.Errorf("allocating order number: %w", err)
	}
	return fmt.Sprintf("PO%s%04d", day, seq), nil
}

// NextPartCode returns SP<yymmdd><seq> where seq restarts daily.
func (s *service) NextPartCode(ctx context.Context, now time.Time) (string, error) {
	day := now.UTC().Format("060102")
	seq, err := s.repo.Increment(ctx, ScopePartCode, day)
	if err != nil {
		return "", fmt.Errorf("allocating part code: %w", err)
	}
	return fmt.Sprintf("SP%s%04d", day, seq), nil
}

// NextBatchNo returns BATCH<yyyymmddhhmmss>. Batch numbers only need to be
// traceable, not gapless, so no counter row is involved.
func (s *service) NextBatchNo(now time.Time) string {
	return "BATCH" + now.UTC().Format("20060102150405")
}
