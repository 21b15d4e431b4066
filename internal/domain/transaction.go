package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionLine snapshots one cart line at checkout time. Name and unit
// price are copied from the game so later catalog edits never rewrite a
// historical receipt.
type TransactionLine struct {
	GameID    string
	GameName  string
	UnitPrice decimal.Decimal
	Quantity  int
	Subtotal  decimal.Decimal
}

// Transaction is an immutable receipt for one completed checkout. It is
// written exactly once by the checkout coordinator and never edited.
type Transaction struct {
	ID                 int64
	UserID             string
	Lines              []TransactionLine
	DiscountPercentage int
	Subtotal           decimal.Decimal
	DiscountAmount     decimal.Decimal
	Total              decimal.Decimal
	IdempotencyKey     string
	CreatedAt          time.Time
}
