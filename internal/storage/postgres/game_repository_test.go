package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cimillas/license-store/internal/app"
	"github.com/cimillas/license-store/internal/domain"
	"github.com/cimillas/license-store/internal/testutil"
)

func TestGameRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewGameRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("CreateGame and GetGame round trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		game := domain.Game{
			ID:                uuid.NewString(),
			Name:              "PuzzleManía",
			Category:          domain.CategoryPuzzle,
			SizeKB:            512,
			Price:             decimal.RequireFromString("10.00"),
			AvailableLicenses: 30,
			ImageURL:          "https://img.example/puzzle.png",
			MinStock:          5,
			CreatedAt:         time.Now().UTC(),
		}
		if err := repo.CreateGame(ctx, game); err != nil {
			t.Fatalf("create game: %v", err)
		}

		got, err := repo.GetGame(ctx, game.ID)
		if err != nil {
			t.Fatalf("get game: %v", err)
		}
		if got.Name != game.Name || got.Category != game.Category || got.AvailableLicenses != 30 {
			t.Fatalf("unexpected game: %+v", got)
		}
		if !got.Price.Equal(game.Price) {
			t.Fatalf("expected price %s, got %s", game.Price, got.Price)
		}
	})

	t.Run("CreateGame enforces unique names", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertGame(t, ctx, pool, domain.Game{Name: "Taken", AvailableLicenses: 1})

		err := repo.CreateGame(ctx, domain.Game{
			ID:                uuid.NewString(),
			Name:              "Taken",
			Category:          domain.CategoryPuzzle,
			SizeKB:            1,
			Price:             decimal.New(1, 0),
			AvailableLicenses: 1,
			CreatedAt:         time.Now().UTC(),
		})
		if !errors.Is(err, domain.ErrDuplicateName) {
			t.Fatalf("expected ErrDuplicateName, got %v", err)
		}
	})

	t.Run("GetGame errors", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if _, err := repo.GetGame(ctx, "00000000-0000-0000-0000-000000000001"); !errors.Is(err, domain.ErrGameNotFound) {
			t.Fatalf("expected ErrGameNotFound, got %v", err)
		}
		if _, err := repo.GetGame(ctx, "nope"); !errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("UpdateGame inside WithTx under row lock", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		gameID := testutil.InsertGame(t, ctx, pool, domain.Game{Name: "Editable", AvailableLicenses: 10})

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			game, err := repo.GetGameForUpdate(txCtx, gameID)
			if err != nil {
				return err
			}
			game.Price = decimal.RequireFromString("19.99")
			game.AvailableLicenses = 25
			return repo.UpdateGame(txCtx, game)
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		got, err := repo.GetGame(ctx, gameID)
		if err != nil {
			t.Fatalf("get game: %v", err)
		}
		if got.AvailableLicenses != 25 || got.Price.StringFixed(2) != "19.99" {
			t.Fatalf("unexpected game after update: %+v", got)
		}
	})

	t.Run("ArchiveGame hides the row from listings", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		gameID := testutil.InsertGame(t, ctx, pool, domain.Game{Name: "Going Away", AvailableLicenses: 1})

		if err := repo.ArchiveGame(ctx, gameID, time.Now().UTC()); err != nil {
			t.Fatalf("archive: %v", err)
		}

		games, err := repo.ListGames(ctx, app.GameFilter{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(games) != 0 {
			t.Fatalf("expected archived game hidden, got %+v", games)
		}

		// A second archive of the same row is a no-op conflict.
		if err := repo.ArchiveGame(ctx, gameID, time.Now().UTC()); !errors.Is(err, domain.ErrGameNotFound) {
			t.Fatalf("expected ErrGameNotFound, got %v", err)
		}
	})

	t.Run("ListGames filters and sorts", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		testutil.InsertGame(t, ctx, pool, domain.Game{Name: "Alpha Quest", Category: domain.CategoryAdventure, Price: decimal.RequireFromString("30.00"), AvailableLicenses: 1})
		testutil.InsertGame(t, ctx, pool, domain.Game{Name: "Beta Puzzles", Category: domain.CategoryPuzzle, Price: decimal.RequireFromString("10.00"), AvailableLicenses: 1})
		testutil.InsertGame(t, ctx, pool, domain.Game{Name: "Gamma Puzzles", Category: domain.CategoryPuzzle, Price: decimal.RequireFromString("20.00"), AvailableLicenses: 1})

		games, err := repo.ListGames(ctx, app.GameFilter{Category: domain.CategoryPuzzle})
		if err != nil {
			t.Fatalf("list by category: %v", err)
		}
		if len(games) != 2 {
			t.Fatalf("expected 2 puzzle games, got %d", len(games))
		}

		games, err = repo.ListGames(ctx, app.GameFilter{Search: "puzzles", SortBy: "price", SortOrder: "desc"})
		if err != nil {
			t.Fatalf("search and sort: %v", err)
		}
		if len(games) != 2 || games[0].Name != "Gamma Puzzles" {
			t.Fatalf("unexpected order: %+v", games)
		}
	})

	t.Run("ListLowStock returns games at or under threshold", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		testutil.InsertGame(t, ctx, pool, domain.Game{Name: "Low", AvailableLicenses: 2, MinStock: 5})
		testutil.InsertGame(t, ctx, pool, domain.Game{Name: "Fine", AvailableLicenses: 50, MinStock: 5})

		games, err := repo.ListLowStock(ctx)
		if err != nil {
			t.Fatalf("list low stock: %v", err)
		}
		if len(games) != 1 || games[0].Name != "Low" {
			t.Fatalf("unexpected low stock list: %+v", games)
		}
	})
}
