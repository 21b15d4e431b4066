package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cimillas/license-store/internal/app"
	"github.com/cimillas/license-store/internal/domain"
	"github.com/cimillas/license-store/internal/metrics"
)

const idempotencyKeyHeader = "Idempotency-Key"

// CartService is the checkout surface the cart endpoints bind to.
type CartService interface {
	CalculateCart(ctx context.Context, lines []domain.CartLine) (app.CartQuote, error)
	Checkout(ctx context.Context, in app.CheckoutInput) (domain.Transaction, error)
}

// HandleCalculateCart prices a cart without reserving anything.
func HandleCalculateCart(svc CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := requireUser(w, r); !ok {
			return
		}

		lines, ok := decodeCart(w, r)
		if !ok {
			return
		}

		quote, err := svc.CalculateCart(r.Context(), lines)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, quoteResponse{
			Subtotal:           quote.Subtotal.StringFixed(2),
			DiscountPercentage: quote.DiscountPercentage,
			DiscountAmount:     quote.DiscountAmount.StringFixed(2),
			Total:              quote.Total.StringFixed(2),
		})
	}
}

// HandleCheckout reserves the cart and returns the created receipt. The
// optional Idempotency-Key header makes client retries safe.
func HandleCheckout(svc CartService, m *metrics.CheckoutMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		id, ok := requireUser(w, r)
		if !ok {
			return
		}

		lines, ok := decodeCart(w, r)
		if !ok {
			m.Observe("invalid")
			return
		}

		tx, err := svc.Checkout(r.Context(), app.CheckoutInput{
			UserID:         id.UserID,
			Lines:          lines,
			IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)),
		})
		if err != nil {
			m.Observe(checkoutOutcome(err))
			writeDomainError(w, err)
			return
		}

		m.Observe("completed")
		writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
	}
}

func checkoutOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrGameNotFound):
		return "game_not_found"
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrDuplicateCartLine),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrUserRequired):
		return "invalid"
	default:
		return "error"
	}
}

type cartRequest struct {
	Items []cartItemRequest `json:"items"`
}

type cartItemRequest struct {
	GameID   string `json:"game_id"`
	Quantity int    `json:"quantity"`
}

func decodeCart(w http.ResponseWriter, r *http.Request) ([]domain.CartLine, bool) {
	var req cartRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return nil, false
	}

	lines := make([]domain.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, domain.CartLine{
			GameID:   item.GameID,
			Quantity: item.Quantity,
		})
	}
	return lines, true
}

type quoteResponse struct {
	Subtotal           string `json:"subtotal"`
	DiscountPercentage int    `json:"discount_percentage"`
	DiscountAmount     string `json:"discount_amount"`
	Total              string `json:"total"`
}

type transactionResponse struct {
	ID                 int64                     `json:"id"`
	CreatedAt          time.Time                 `json:"created_at"`
	Items              []transactionLineResponse `json:"items"`
	DiscountPercentage int                       `json:"discount_percentage"`
	Subtotal           string                    `json:"subtotal"`
	DiscountAmount     string                    `json:"discount_amount"`
	Total              string                    `json:"total"`
}

type transactionLineResponse struct {
	GameID    string `json:"game_id"`
	GameName  string `json:"game_name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

func toTransactionResponse(tx domain.Transaction) transactionResponse {
	items := make([]transactionLineResponse, 0, len(tx.Lines))
	for _, line := range tx.Lines {
		items = append(items, transactionLineResponse{
			GameID:    line.GameID,
			GameName:  line.GameName,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal.StringFixed(2),
		})
	}
	return transactionResponse{
		ID:                 tx.ID,
		CreatedAt:          tx.CreatedAt,
		Items:              items,
		DiscountPercentage: tx.DiscountPercentage,
		Subtotal:           tx.Subtotal.StringFixed(2),
		DiscountAmount:     tx.DiscountAmount.StringFixed(2),
		Total:              tx.Total.StringFixed(2),
	}
}
