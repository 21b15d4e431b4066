package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cimillas/license-store/internal/clock"
	"github.com/cimillas/license-store/internal/discount"
	"github.com/cimillas/license-store/internal/domain"
)

// GameReader resolves games for validation and price snapshots.
type GameReader interface {
	GetGame(ctx context.Context, id string) (domain.Game, error)
}

// Ledger is the reserve/release contract the coordinator composes per line.
type Ledger interface {
	Reserve(ctx context.Context, gameID string, quantity int) (domain.Game, error)
	Release(ctx context.Context, gameID string, quantity int) (domain.Game, error)
}

// CheckoutService turns a validated cart into reserved licenses plus one
// immutable transaction record. Reservations are applied per line, never
// under one cart-wide lock; any failure after a partial run of reservations
// triggers compensating releases for everything already reserved.
type CheckoutService struct {
	games  GameReader
	ledger Ledger
	txs    TransactionRepository
	clock  clock.Clock
	logger *log.Logger

	compensationTimeout time.Duration
}

const defaultCompensationTimeout = 10 * time.Second

func NewCheckoutService(games GameReader, ledger Ledger, txs TransactionRepository, clk clock.Clock, opts ...CheckoutOption) *CheckoutService {
	svc := &CheckoutService{
		games:               games,
		ledger:              ledger,
		txs:                 txs,
		clock:               clk,
		logger:              log.Default(),
		compensationTimeout: defaultCompensationTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CheckoutOption func(*CheckoutService)

// WithLogger overrides the logger used to report compensation failures.
func WithLogger(logger *log.Logger) CheckoutOption {
	return func(s *CheckoutService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCompensationTimeout bounds how long rollback releases may run after a
// failed checkout.
func WithCompensationTimeout(d time.Duration) CheckoutOption {
	return func(s *CheckoutService) {
		if d > 0 {
			s.compensationTimeout = d
		}
	}
}

type CheckoutInput struct {
	UserID         string
	Lines          []domain.CartLine
	IdempotencyKey string
}

// CartQuote is the priced preview of a cart. Producing one never touches
// inventory.
type CartQuote struct {
	Subtotal           decimal.Decimal
	DiscountPercentage int
	DiscountAmount     decimal.Decimal
	Total              decimal.Decimal
}

// CalculateCart prices the cart as checkout would, including the stock
// pre-check, without reserving anything.
func (s *CheckoutService) CalculateCart(ctx context.Context, lines []domain.CartLine) (CartQuote, error) {
	games, err := s.resolveLines(ctx, lines)
	if err != nil {
		return CartQuote{}, err
	}
	for i, line := range lines {
		if line.Quantity > games[i].AvailableLicenses {
			return CartQuote{}, stockError(games[i], line.Quantity)
		}
	}
	return quote(lines, games), nil
}

// Checkout validates the cart, reserves every line, and records the receipt.
// Either all lines end up reserved and billed, or none do.
func (s *CheckoutService) Checkout(ctx context.Context, in CheckoutInput) (domain.Transaction, error) {
	if in.UserID == "" {
		return domain.Transaction{}, domain.ErrUserRequired
	}

	games, err := s.resolveLines(ctx, in.Lines)
	if err != nil {
		return domain.Transaction{}, err
	}

	if in.IdempotencyKey != "" {
		existing, err := s.txs.FindByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
		if err != nil {
			return domain.Transaction{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}

	// Fail fast on stock the consistent read already shows as short. The
	// authoritative check is the conditional reserve below: stock can still
	// change between here and the per-line reservations.
	for i, line := range in.Lines {
		if line.Quantity > games[i].AvailableLicenses {
			return domain.Transaction{}, stockError(games[i], line.Quantity)
		}
	}

	reserved := make([]domain.CartLine, 0, len(in.Lines))
	for _, line := range in.Lines {
		if err := ctx.Err(); err != nil {
			s.compensate(reserved)
			return domain.Transaction{}, err
		}
		if _, err := s.ledger.Reserve(ctx, line.GameID, line.Quantity); err != nil {
			s.compensate(reserved)
			return domain.Transaction{}, err
		}
		reserved = append(reserved, line)
	}

	created, err := s.txs.CreateTransaction(ctx, s.buildTransaction(in, games))
	if err != nil {
		s.compensate(reserved)
		if in.IdempotencyKey != "" && errors.Is(err, domain.ErrIdempotencyConflict) {
			// A concurrent retry with the same key won the record insert; its
			// reservations stand and ours were just rolled back. Surface the
			// winner's receipt.
			existing, findErr := s.txs.FindByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
			if findErr == nil && existing != nil {
				return *existing, nil
			}
		}
		return domain.Transaction{}, err
	}
	return created, nil
}

// resolveLines validates the cart shape and resolves every referenced game.
// The returned slice is positionally aligned with lines.
func (s *CheckoutService) resolveLines(ctx context.Context, lines []domain.CartLine) ([]domain.Game, error) {
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	seen := make(map[string]struct{}, len(lines))
	games := make([]domain.Game, 0, len(lines))
	for _, line := range lines {
		if line.GameID == "" {
			return nil, domain.ErrInvalidID
		}
		if line.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		if _, dup := seen[line.GameID]; dup {
			return nil, domain.ErrDuplicateCartLine
		}
		seen[line.GameID] = struct{}{}

		game, err := s.games.GetGame(ctx, line.GameID)
		if err != nil {
			return nil, err
		}
		if game.Archived() {
			return nil, domain.ErrGameNotFound
		}
		games = append(games, game)
	}
	return games, nil
}

// compensate releases every reservation already applied in this checkout. It
// runs on a detached context so cancelling the request cannot strand licenses
// on the sold side.
func (s *CheckoutService) compensate(reserved []domain.CartLine) {
	if len(reserved) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.compensationTimeout)
	defer cancel()

	for _, line := range reserved {
		if _, err := s.ledger.Release(ctx, line.GameID, line.Quantity); err != nil {
			s.logger.Printf("checkout compensation failed game=%s quantity=%d err=%v",
				line.GameID, line.Quantity, err)
		}
	}
}

func (s *CheckoutService) buildTransaction(in CheckoutInput, games []domain.Game) domain.Transaction {
	q := quote(in.Lines, games)

	txLines := make([]domain.TransactionLine, 0, len(in.Lines))
	for i, line := range in.Lines {
		game := games[i]
		txLines = append(txLines, domain.TransactionLine{
			GameID:    game.ID,
			GameName:  game.Name,
			UnitPrice: game.Price,
			Quantity:  line.Quantity,
			Subtotal:  lineSubtotal(game.Price, line.Quantity),
		})
	}

	return domain.Transaction{
		UserID:             in.UserID,
		Lines:              txLines,
		DiscountPercentage: q.DiscountPercentage,
		Subtotal:           q.Subtotal,
		DiscountAmount:     q.DiscountAmount,
		Total:              q.Total,
		IdempotencyKey:     in.IdempotencyKey,
		CreatedAt:          s.clock.Now(),
	}
}

// quote prices a resolved cart: gross from snapshot prices, discount from the
// category aggregates, all amounts rounded to cents.
func quote(lines []domain.CartLine, games []domain.Game) CartQuote {
	byCategory := make(map[domain.Category]int, len(lines))
	subtotal := decimal.Zero
	for i, line := range lines {
		byCategory[games[i].Category] += line.Quantity
		subtotal = subtotal.Add(lineSubtotal(games[i].Price, line.Quantity))
	}

	pct := discount.Compute(byCategory)
	subtotal = subtotal.Round(2)
	amount := subtotal.
		Mul(decimal.NewFromInt(int64(pct))).
		Div(decimal.NewFromInt(100)).
		Round(2)

	return CartQuote{
		Subtotal:           subtotal,
		DiscountPercentage: pct,
		DiscountAmount:     amount,
		Total:              subtotal.Sub(amount),
	}
}

func lineSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

func stockError(game domain.Game, requested int) error {
	return &domain.StockError{
		GameID:    game.ID,
		GameName:  game.Name,
		Requested: requested,
		Available: game.AvailableLicenses,
	}
}
