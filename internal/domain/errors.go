package domain

import (
	"errors"
	"fmt"
)

var (
	ErrGameNotFound          = errors.New("game not found")
	ErrInvalidID             = errors.New("invalid id")
	ErrUserRequired          = errors.New("user id required")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrDuplicateCartLine     = errors.New("duplicate game in cart")
	ErrNameRequired          = errors.New("game name required")
	ErrInvalidCategory       = errors.New("invalid category")
	ErrCategoryImmutable     = errors.New("category cannot be changed")
	ErrInvalidPrice          = errors.New("price must not be negative")
	ErrInvalidSize           = errors.New("size must be at least 1 KB")
	ErrInvalidLicenseCount   = errors.New("available licenses must not be negative")
	ErrInvalidMinStock       = errors.New("min stock must not be negative")
	ErrDuplicateName         = errors.New("a game with that name already exists")
	ErrGameHasSoldLicenses   = errors.New("game has outstanding sold licenses")
	ErrInsufficientStock     = errors.New("insufficient licenses available")
	ErrInvalidReturnQuantity = errors.New("return exceeds sold licenses")
	ErrIdempotencyConflict   = errors.New("idempotency key already used")
)

// StockError identifies the game that could not satisfy a reservation, so the
// caller can point at the offending cart line.
type StockError struct {
	GameID    string
	GameName  string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient licenses for %q: requested %d, available %d",
		e.GameName, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
