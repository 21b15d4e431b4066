package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/license-store/internal/app"
	"github.com/cimillas/license-store/internal/domain"
)

const gameColumns = `id, name, category, size_kb, price, available_licenses, sold_licenses, image_url, min_stock, archived_at, created_at`

type GameRepository struct {
	pool *pgxpool.Pool
}

func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

func (r *GameRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *GameRepository) CreateGame(ctx context.Context, game domain.Game) error {
	const stmt = `
INSERT INTO games (id, name, category, size_kb, price, available_licenses, sold_licenses, image_url, min_stock, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.exec(ctx, stmt,
		game.ID,
		game.Name,
		game.Category,
		game.SizeKB,
		game.Price,
		game.AvailableLicenses,
		game.SoldLicenses,
		game.ImageURL,
		game.MinStock,
		game.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

func (r *GameRepository) GetGame(ctx context.Context, id string) (domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	return r.scanGame(r.queryRow(ctx, query, id), "get game")
}

func (r *GameRepository) GetGameForUpdate(ctx context.Context, id string) (domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1 FOR UPDATE`
	return r.scanGame(r.queryRow(ctx, query, id), "get game for update")
}

func (r *GameRepository) UpdateGame(ctx context.Context, game domain.Game) error {
	const stmt = `
UPDATE games
SET size_kb = $2,
    price = $3,
    available_licenses = $4,
    image_url = $5,
    min_stock = $6
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		game.ID,
		game.SizeKB,
		game.Price,
		game.AvailableLicenses,
		game.ImageURL,
		game.MinStock,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

func (r *GameRepository) ArchiveGame(ctx context.Context, id string, at time.Time) error {
	const stmt = `UPDATE games SET archived_at = $2 WHERE id = $1 AND archived_at IS NULL`

	tag, err := r.exec(ctx, stmt, id, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("archive game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

func (r *GameRepository) ListGames(ctx context.Context, filter app.GameFilter) ([]domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE archived_at IS NULL`
	args := make([]any, 0, 2)

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(` AND name ILIKE $%d`, len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}

	// Sort inputs are normalized by the catalog service; the fallthrough here
	// keeps the query well-formed even for a direct repository caller.
	column := "name"
	if filter.SortBy == "price" {
		column = "price"
	}
	direction := "ASC"
	if filter.SortOrder == "desc" {
		direction = "DESC"
	}
	query += ` ORDER BY ` + column + ` ` + direction + `, name ASC`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

func (r *GameRepository) ListLowStock(ctx context.Context) ([]domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games
WHERE archived_at IS NULL AND available_licenses <= min_stock
ORDER BY available_licenses ASC, name ASC`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

func (r *GameRepository) scanGame(row pgx.Row, op string) (domain.Game, error) {
	var g domain.Game
	err := row.Scan(
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
			return domain.Game{}, domain.ErrGameNotFound
		}
		return domain.Game{}, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

func collectGames(rows pgx.Rows) ([]domain.Game, error) {
	games := make([]domain.Game, 0)
	for rows.Next() {
		var g domain.Game
		if err := rows.Scan(
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
		); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

func (r *GameRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *GameRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *GameRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
