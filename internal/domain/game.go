package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups games for volume-discount aggregation. It is fixed at
// creation time: discount tiers key on category, so renaming a game's
// category would silently change what historical carts aggregated toward.
type Category string

const (
	CategoryPuzzle    Category = "puzzle"
	CategoryAction    Category = "action"
	CategorySports    Category = "sports"
	CategoryStrategy  Category = "strategy"
	CategoryAdventure Category = "adventure"
	CategoryArcade    Category = "arcade"
)

// Valid reports whether c is one of the known catalog categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryPuzzle, CategoryAction, CategorySports,
		CategoryStrategy, CategoryAdventure, CategoryArcade:
		return true
	}
	return false
}

// Game is one catalog entry. AvailableLicenses and SoldLicenses partition the
// stock of sellable units; their sum is conserved across any single reserve or
// release, and they are mutated only through the license ledger.
type Game struct {
	ID                string
	Name              string
	Category          Category
	SizeKB            int
	Price             decimal.Decimal
	AvailableLicenses int
	SoldLicenses      int
	ImageURL          string
	MinStock          int
	ArchivedAt        *time.Time
	CreatedAt         time.Time
}

// Archived reports whether the game has been soft-deleted from the catalog.
func (g Game) Archived() bool {
	return g.ArchivedAt != nil
}

// LowStock reports whether available licenses have fallen to or below the
// restock threshold.
func (g Game) LowStock() bool {
	return g.AvailableLicenses <= g.MinStock
}
