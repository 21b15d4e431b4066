package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/license-store/internal/domain"
)

const (
	codeMethodNotAllowed      = "method_not_allowed"
	codeNotFound              = "not_found"
	codeInvalidRequestBody    = "invalid_request_body"
	codeUnauthorized          = "unauthorized"
	codeForbidden             = "forbidden"
	codeInvalidID             = "invalid_id"
	codeUserRequired          = "user_required"
	codeEmptyCart             = "empty_cart"
	codeInvalidQuantity       = "invalid_quantity"
	codeDuplicateCartLine     = "duplicate_cart_line"
	codeGameNameRequired      = "game_name_required"
	codeInvalidCategory       = "invalid_category"
	codeCategoryImmutable     = "category_immutable"
	codeInvalidPrice          = "invalid_price"
	codeInvalidSize           = "invalid_size"
	codeInvalidLicenseCount   = "invalid_license_count"
	codeInvalidMinStock       = "invalid_min_stock"
	codeDuplicateName         = "duplicate_name"
	codeGameNotFound          = "game_not_found"
	codeGameHasSoldLicenses   = "game_has_sold_licenses"
	codeInsufficientStock     = "insufficient_stock"
	codeInvalidReturnQuantity = "invalid_return_quantity"
	codeIdempotencyConflict   = "idempotency_conflict"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	GameID string `json:"game_id,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the service error taxonomy onto HTTP statuses.
// Validation failures are 400, stale references 404, business conflicts 409,
// and everything else is the 500 persistence-failure class.
func writeDomainError(w http.ResponseWriter, err error) {
	var stockErr *domain.StockError
	if errors.As(err, &stockErr) {
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Error:  stockErr.Error(),
			Code:   codeInsufficientStock,
			GameID: stockErr.GameID,
		})
		return
	}

	status, code := http.StatusInternalServerError, codeInternalError
	switch {
	case errors.Is(err, domain.ErrUserRequired):
		status, code = http.StatusBadRequest, codeUserRequired
	case errors.Is(err, domain.ErrEmptyCart):
		status, code = http.StatusBadRequest, codeEmptyCart
	case errors.Is(err, domain.ErrInvalidQuantity):
		status, code = http.StatusBadRequest, codeInvalidQuantity
	case errors.Is(err, domain.ErrDuplicateCartLine):
		status, code = http.StatusBadRequest, codeDuplicateCartLine
	case errors.Is(err, domain.ErrNameRequired):
		status, code = http.StatusBadRequest, codeGameNameRequired
	case errors.Is(err, domain.ErrInvalidCategory):
		status, code = http.StatusBadRequest, codeInvalidCategory
	case errors.Is(err, domain.ErrCategoryImmutable):
		status, code = http.StatusBadRequest, codeCategoryImmutable
	case errors.Is(err, domain.ErrInvalidPrice):
		status, code = http.StatusBadRequest, codeInvalidPrice
	case errors.Is(err, domain.ErrInvalidSize):
		status, code = http.StatusBadRequest, codeInvalidSize
	case errors.Is(err, domain.ErrInvalidLicenseCount):
		status, code = http.StatusBadRequest, codeInvalidLicenseCount
	case errors.Is(err, domain.ErrInvalidMinStock):
		status, code = http.StatusBadRequest, codeInvalidMinStock
	case errors.Is(err, domain.ErrInvalidID):
		status, code = http.StatusBadRequest, codeInvalidID
	case errors.Is(err, domain.ErrGameNotFound):
		status, code = http.StatusNotFound, codeGameNotFound
	case errors.Is(err, domain.ErrDuplicateName):
		status, code = http.StatusConflict, codeDuplicateName
	case errors.Is(err, domain.ErrGameHasSoldLicenses):
		status, code = http.StatusConflict, codeGameHasSoldLicenses
	case errors.Is(err, domain.ErrInsufficientStock):
		status, code = http.StatusConflict, codeInsufficientStock
	case errors.Is(err, domain.ErrInvalidReturnQuantity):
		status, code = http.StatusConflict, codeInvalidReturnQuantity
	case errors.Is(err, domain.ErrIdempotencyConflict):
		status, code = http.StatusConflict, codeIdempotencyConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}
