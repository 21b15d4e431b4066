package app

import (
	"context"

	"github.com/cimillas/license-store/internal/domain"
)

// TransactionRepository is append-only: records are created once by the
// checkout coordinator and afterwards only read.
type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Transaction, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Transaction, error)
}

// TransactionService exposes purchase history reads.
type TransactionService struct {
	repo TransactionRepository
}

func NewTransactionService(repo TransactionRepository) *TransactionService {
	return &TransactionService{repo: repo}
}

// ListForUser returns the caller's receipts, most recent first.
func (s *TransactionService) ListForUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	return s.repo.ListForUser(ctx, userID)
}
