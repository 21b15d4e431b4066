package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cimillas/license-store/internal/clock"
	"github.com/cimillas/license-store/internal/domain"
)

// GameFilter narrows and orders catalog listings.
type GameFilter struct {
	Search    string
	Category  domain.Category
	SortBy    string // "name" or "price"
	SortOrder string // "asc" or "desc"
}

type GameRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateGame(ctx context.Context, game domain.Game) error
	GetGame(ctx context.Context, id string) (domain.Game, error)
	GetGameForUpdate(ctx context.Context, id string) (domain.Game, error)
	UpdateGame(ctx context.Context, game domain.Game) error
	ArchiveGame(ctx context.Context, id string, at time.Time) error
	ListGames(ctx context.Context, filter GameFilter) ([]domain.Game, error)
	ListLowStock(ctx context.Context) ([]domain.Game, error)
}

// CatalogService owns Game records. It never touches the license counters
// directly on the purchase path; those belong to the ledger.
type CatalogService struct {
	repo  GameRepository
	clock clock.Clock
}

const defaultMinStock = 5

func NewCatalogService(repo GameRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type CreateGameInput struct {
	Name              string
	Category          domain.Category
	SizeKB            int
	Price             decimal.Decimal
	AvailableLicenses int
	ImageURL          string
	MinStock          *int
}

func (s *CatalogService) CreateGame(ctx context.Context, in CreateGameInput) (domain.Game, error) {
	if in.Name == "" {
		return domain.Game{}, domain.ErrNameRequired
	}
	if !in.Category.Valid() {
		return domain.Game{}, domain.ErrInvalidCategory
	}
	if in.SizeKB < 1 {
		return domain.Game{}, domain.ErrInvalidSize
	}
	if in.Price.IsNegative() {
		return domain.Game{}, domain.ErrInvalidPrice
	}
	if in.AvailableLicenses < 1 {
		return domain.Game{}, domain.ErrInvalidLicenseCount
	}

	minStock := defaultMinStock
	if in.MinStock != nil {
		if *in.MinStock < 0 {
			return domain.Game{}, domain.ErrInvalidMinStock
		}
		minStock = *in.MinStock
	}

	game := domain.Game{
		ID:                uuid.NewString(),
		Name:              in.Name,
		Category:          in.Category,
		SizeKB:            in.SizeKB,
		Price:             in.Price.Round(2),
		AvailableLicenses: in.AvailableLicenses,
		SoldLicenses:      0,
		ImageURL:          in.ImageURL,
		MinStock:          minStock,
		CreatedAt:         s.clock.Now(),
	}

	if err := s.repo.CreateGame(ctx, game); err != nil {
		return domain.Game{}, err
	}
	return game, nil
}

// GetGame returns the full record, sold counter included. Archived games are
// not resolvable.
func (s *CatalogService) GetGame(ctx context.Context, id string) (domain.Game, error) {
	if id == "" {
		return domain.Game{}, domain.ErrInvalidID
	}
	game, err := s.repo.GetGame(ctx, id)
	if err != nil {
		return domain.Game{}, err
	}
	if game.Archived() {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return game, nil
}

func (s *CatalogService) ListGames(ctx context.Context, filter GameFilter) ([]domain.Game, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, domain.ErrInvalidCategory
	}
	switch filter.SortBy {
	case "", "name", "price":
	default:
		filter.SortBy = "name"
	}
	switch filter.SortOrder {
	case "", "asc", "desc":
	default:
		filter.SortOrder = "asc"
	}
	return s.repo.ListGames(ctx, filter)
}

// ListLowStock returns active games at or below their restock threshold.
func (s *CatalogService) ListLowStock(ctx context.Context) ([]domain.Game, error) {
	return s.repo.ListLowStock(ctx)
}

// UpdateGameInput carries only the fields the admin path may edit. Name and
// sold_licenses have no field here on purpose; category is accepted solely so
// an unchanged echo from the form does not error.
type UpdateGameInput struct {
	Category          *domain.Category
	SizeKB            *int
	Price             *decimal.Decimal
	AvailableLicenses *int
	ImageURL          *string
	MinStock          *int
}

func (s *CatalogService) UpdateGame(ctx context.Context, id string, in UpdateGameInput) (domain.Game, error) {
	if id == "" {
		return domain.Game{}, domain.ErrInvalidID
	}

	var updated domain.Game
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		game, err := s.repo.GetGameForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if game.Archived() {
			return domain.ErrGameNotFound
		}

		if in.Category != nil && *in.Category != game.Category {
			return domain.ErrCategoryImmutable
		}
		if in.SizeKB != nil {
			if *in.SizeKB < 1 {
				return domain.ErrInvalidSize
			}
			game.SizeKB = *in.SizeKB
		}
		if in.Price != nil {
			if in.Price.IsNegative() {
				return domain.ErrInvalidPrice
			}
			game.Price = in.Price.Round(2)
		}
		if in.AvailableLicenses != nil {
			if *in.AvailableLicenses < 0 {
				return domain.ErrInvalidLicenseCount
			}
			game.AvailableLicenses = *in.AvailableLicenses
		}
		if in.ImageURL != nil {
			game.ImageURL = *in.ImageURL
		}
		if in.MinStock != nil {
			if *in.MinStock < 0 {
				return domain.ErrInvalidMinStock
			}
			game.MinStock = *in.MinStock
		}

		if err := s.repo.UpdateGame(txCtx, game); err != nil {
			return err
		}
		updated = game
		return nil
	})
	if err != nil {
		return domain.Game{}, err
	}
	return updated, nil
}

// DeleteGame soft-deletes: the row stays because transactions reference it.
// Deletion is blocked while sold licenses are outstanding.
func (s *CatalogService) DeleteGame(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidID
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		game, err := s.repo.GetGameForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if game.Archived() {
			return domain.ErrGameNotFound
		}
		if game.SoldLicenses > 0 {
			return domain.ErrGameHasSoldLicenses
		}
		return s.repo.ArchiveGame(txCtx, id, s.clock.Now())
	})
}
