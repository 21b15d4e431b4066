package http

import (
	"context"
	"net/http"

	"github.com/cimillas/license-store/internal/domain"
)

// TransactionLister reads a caller's purchase history.
type TransactionLister interface {
	ListForUser(ctx context.Context, userID string) ([]domain.Transaction, error)
}

// HandleListTransactions returns the caller's receipts, newest first.
func HandleListTransactions(svc TransactionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		id, ok := requireUser(w, r)
		if !ok {
			return
		}

		txs, err := svc.ListForUser(r.Context(), id.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]transactionResponse, 0, len(txs))
		for _, tx := range txs {
			resp = append(resp, toTransactionResponse(tx))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
