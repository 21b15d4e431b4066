package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/license-store/internal/domain"
)

// LedgerRepository moves license units between the available and sold
// counters. Each move is one conditional UPDATE, so the stock guard and the
// mutation execute atomically per game and concurrent reservations serialize
// on the row without a read-check-write window.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) Reserve(ctx context.Context, gameID string, quantity int) (domain.Game, error) {
	const stmt = `
UPDATE games
SET available_licenses = available_licenses - $2,
    sold_licenses = sold_licenses + $2
WHERE id = $1 AND archived_at IS NULL AND available_licenses >= $2
RETURNING ` + gameColumns

	game, err := r.scanMove(ctx, stmt, gameID, quantity, "reserve")
	if err == errGuardFailed {
		return domain.Game{}, r.resolveGuardFailure(ctx, gameID, quantity, true)
	}
	return game, err
}

func (r *LedgerRepository) Release(ctx context.Context, gameID string, quantity int) (domain.Game, error) {
	const stmt = `
UPDATE games
SET available_licenses = available_licenses + $2,
    sold_licenses = sold_licenses - $2
WHERE id = $1 AND archived_at IS NULL AND sold_licenses >= $2
RETURNING ` + gameColumns

	game, err := r.scanMove(ctx, stmt, gameID, quantity, "release")
	if err == errGuardFailed {
		return domain.Game{}, r.resolveGuardFailure(ctx, gameID, quantity, false)
	}
	return game, err
}

var errGuardFailed = fmt.Errorf("ledger guard failed")

func (r *LedgerRepository) scanMove(ctx context.Context, stmt, gameID string, quantity int, op string) (domain.Game, error) {
	var g domain.Game
	err := r.queryRow(ctx, stmt, gameID, quantity).Scan(
		&g.ID,
		&g.Name,
		&g.Category,
		&g.SizeKB,
		&g.Price,
		&g.AvailableLicenses,
		&g.SoldLicenses,
		&g.ImageURL,
		&g.MinStock,
		&g.ArchivedAt,
		&g.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Game{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Game{}, errGuardFailed
		}
		return domain.Game{}, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

// resolveGuardFailure distinguishes a missing game from a guard that did not
// hold, after the conditional update matched no row.
func (r *LedgerRepository) resolveGuardFailure(ctx context.Context, gameID string, quantity int, reserving bool) error {
	const query = `SELECT name, available_licenses, sold_licenses FROM games WHERE id = $1 AND archived_at IS NULL`

	var name string
	var available, sold int
	err := r.queryRow(ctx, query, gameID).Scan(&name, &available, &sold)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.ErrGameNotFound
		}
		return fmt.Errorf("resolve ledger failure: %w", err)
	}

	if reserving {
		return &domain.StockError{
			GameID:    gameID,
			GameName:  name,
			Requested: quantity,
			Available: available,
		}
	}
	return domain.ErrInvalidReturnQuantity
}

func (r *LedgerRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
