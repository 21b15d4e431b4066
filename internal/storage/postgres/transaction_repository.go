package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/license-store/internal/domain"
)

type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// CreateTransaction writes the receipt header and its line snapshots as one
// transaction. The unique (user_id, idempotency_key) index turns a duplicate
// retry into ErrIdempotencyConflict for the caller to resolve.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	created := tx
	err := withTx(ctx, r.pool, func(txCtx context.Context) error {
		const insertTx = `
INSERT INTO transactions (user_id, discount_percentage, subtotal, discount_amount, total, idempotency_key, created_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
RETURNING id`

		if err := r.queryRow(txCtx, insertTx,
			tx.UserID,
			tx.DiscountPercentage,
			tx.Subtotal,
			tx.DiscountAmount,
			tx.Total,
			tx.IdempotencyKey,
			tx.CreatedAt,
		).Scan(&created.ID); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrIdempotencyConflict
			}
			return fmt.Errorf("create transaction: %w", err)
		}

		const insertLine = `
INSERT INTO transaction_lines (transaction_id, position, game_id, game_name, unit_price, quantity, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

		for i, line := range tx.Lines {
			if _, err := r.exec(txCtx, insertLine,
				created.ID,
				i,
				line.GameID,
				line.GameName,
				line.UnitPrice,
				line.Quantity,
				line.Subtotal,
			); err != nil {
				return fmt.Errorf("create transaction line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return created, nil
}

func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Transaction, error) {
	const query = `
SELECT id, user_id, discount_percentage, subtotal, discount_amount, total, COALESCE(idempotency_key, ''), created_at
FROM transactions
WHERE user_id = $1 AND idempotency_key = $2`

	var tx domain.Transaction
	err := r.queryRow(ctx, query, userID, key).Scan(
		&tx.ID,
		&tx.UserID,
		&tx.DiscountPercentage,
		&tx.Subtotal,
		&tx.DiscountAmount,
		&tx.Total,
		&tx.IdempotencyKey,
		&tx.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find transaction by idempotency key: %w", err)
	}

	lines, err := r.linesFor(ctx, []int64{tx.ID})
	if err != nil {
		return nil, err
	}
	tx.Lines = lines[tx.ID]
	return &tx, nil
}

func (r *TransactionRepository) ListForUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	const query = `
SELECT id, user_id, discount_percentage, subtotal, discount_amount, total, COALESCE(idempotency_key, ''), created_at
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`

	rows, err := r.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.DiscountPercentage,
			&tx.Subtotal,
			&tx.DiscountAmount,
			&tx.Total,
			&tx.IdempotencyKey,
			&tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
		ids = append(ids, tx.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	if len(txs) == 0 {
		return txs, nil
	}

	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		txs[i].Lines = lines[txs[i].ID]
	}
	return txs, nil
}

func (r *TransactionRepository) linesFor(ctx context.Context, ids []int64) (map[int64][]domain.TransactionLine, error) {
	const query = `
SELECT transaction_id, game_id, game_name, unit_price, quantity, subtotal
FROM transaction_lines
WHERE transaction_id = ANY($1)
ORDER BY transaction_id, position`

	rows, err := r.query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list transaction lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[int64][]domain.TransactionLine, len(ids))
	for rows.Next() {
		var txID int64
		var line domain.TransactionLine
		if err := rows.Scan(
			&txID,
			&line.GameID,
			&line.GameName,
			&line.UnitPrice,
			&line.Quantity,
			&line.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("scan transaction line: %w", err)
		}
		lines[txID] = append(lines[txID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction lines: %w", err)
	}
	return lines, nil
}

func (r *TransactionRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *TransactionRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *TransactionRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
