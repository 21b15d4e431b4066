package app

import (
	"context"

	"github.com/cimillas/license-store/internal/domain"
)

// LedgerRepository performs the guarded counter moves. Implementations must
// make the stock check and the mutation a single atomic step per game; the
// conditional-update SQL in storage/postgres is the reference shape.
type LedgerRepository interface {
	Reserve(ctx context.Context, gameID string, quantity int) (domain.Game, error)
	Release(ctx context.Context, gameID string, quantity int) (domain.Game, error)
}

// LedgerService is the only path that mutates a game's license counters. A
// reserve moves quantity units from available to sold; a release moves them
// back. Both return the post-mutation snapshot of the game.
type LedgerService struct {
	repo LedgerRepository
}

func NewLedgerService(repo LedgerRepository) *LedgerService {
	return &LedgerService{repo: repo}
}

func (s *LedgerService) Reserve(ctx context.Context, gameID string, quantity int) (domain.Game, error) {
	if quantity <= 0 {
		return domain.Game{}, domain.ErrInvalidQuantity
	}
	return s.repo.Reserve(ctx, gameID, quantity)
}

func (s *LedgerService) Release(ctx context.Context, gameID string, quantity int) (domain.Game, error) {
	if quantity <= 0 {
		return domain.Game{}, domain.ErrInvalidQuantity
	}
	return s.repo.Release(ctx, gameID, quantity)
}
