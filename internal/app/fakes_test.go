package app

import (
	"context"
	"sync"
	"time"

	"github.com/cimillas/license-store/internal/domain"
)

// fakeStore is an in-memory stand-in for the game, ledger, and transaction
// repositories. Counter moves are guarded by one mutex so concurrency tests
// exercise the same check-and-mutate atomicity the real store provides.
type fakeStore struct {
	mu     sync.Mutex
	games  map[string]domain.Game
	txs    []domain.Transaction
	nextID int64

	releases     []domain.CartLine
	createTxErr  error
	createTxOnce bool
	onReserve    func(gameID string)
}

func newFakeStore(games ...domain.Game) *fakeStore {
	m := make(map[string]domain.Game, len(games))
	for _, g := range games {
		m[g.ID] = g
	}
	return &fakeStore{games: m, nextID: 1}
}

func (f *fakeStore) GetGame(_ context.Context, id string) (domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	game, ok := f.games[id]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return game, nil
}

func (f *fakeStore) Reserve(_ context.Context, gameID string, quantity int) (domain.Game, error) {
	f.mu.Lock()
	game, ok := f.games[gameID]
	if !ok {
		f.mu.Unlock()
		return domain.Game{}, domain.ErrGameNotFound
	}
	if quantity > game.AvailableLicenses {
		f.mu.Unlock()
		return domain.Game{}, &domain.StockError{
			GameID:    game.ID,
			GameName:  game.Name,
			Requested: quantity,
			Available: game.AvailableLicenses,
		}
	}
	game.AvailableLicenses -= quantity
	game.SoldLicenses += quantity
	f.games[gameID] = game
	f.mu.Unlock()

	if f.onReserve != nil {
		f.onReserve(gameID)
	}
	return game, nil
}

func (f *fakeStore) Release(_ context.Context, gameID string, quantity int) (domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	game, ok := f.games[gameID]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if quantity > game.SoldLicenses {
		return domain.Game{}, domain.ErrInvalidReturnQuantity
	}
	game.AvailableLicenses += quantity
	game.SoldLicenses -= quantity
	f.games[gameID] = game
	f.releases = append(f.releases, domain.CartLine{GameID: gameID, Quantity: quantity})
	return game, nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, tx domain.Transaction) (domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createTxErr != nil {
		err := f.createTxErr
		if f.createTxOnce {
			f.createTxErr = nil
		}
		return domain.Transaction{}, err
	}
	if tx.IdempotencyKey != "" {
		for _, existing := range f.txs {
			if existing.UserID == tx.UserID && existing.IdempotencyKey == tx.IdempotencyKey {
				return domain.Transaction{}, domain.ErrIdempotencyConflict
			}
		}
	}
	tx.ID = f.nextID
	f.nextID++
	f.txs = append(f.txs, tx)
	return tx, nil
}

func (f *fakeStore) FindByIdempotencyKey(_ context.Context, userID, key string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.txs {
		if f.txs[i].UserID == userID && f.txs[i].IdempotencyKey == key {
			tx := f.txs[i]
			return &tx, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListForUser(_ context.Context, userID string) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Transaction, 0)
	for i := len(f.txs) - 1; i >= 0; i-- {
		if f.txs[i].UserID == userID {
			out = append(out, f.txs[i])
		}
	}
	return out, nil
}

func (f *fakeStore) counters(gameID string) (available, sold int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	game := f.games[gameID]
	return game.AvailableLicenses, game.SoldLicenses
}

func (f *fakeStore) releaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.releases)
}

func archivedAt(t time.Time) *time.Time {
	return &t
}
