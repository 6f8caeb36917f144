package cards

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Card statuses. A card transitions to StatusBlocked only after the issuing
// platform confirms cancellation, never optimistically.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusBlocked  = "blocked"
	StatusExpired  = "expired"
)

// Transaction types.
const (
	TypePurchase   = "purchase"
	TypeRefund     = "refund"
	TypeFunding    = "funding"
	TypeWithdrawal = "withdrawal"
	TypeFee        = "fee"
)

// Transaction statuses.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusCancelled = "cancelled"
)

// Card is the local record of an issued virtual card. Balance and status are
// a cache of the issuing platform's truth, authoritative only after a
// successful funding or sync. Cards are never hard-deleted.
type Card struct {
	CardID     string
	CardNumber string
	HolderName string
	ExpiryDate string
	CVV        string
	Status     string
	Balance    decimal.Decimal
	Currency   string
	Tags       []string
	IssuedBy   string
	IssuedAt   time.Time
	LastUsed   *time.Time
}

// MaskedNumber renders the card number with all but the last four digits hidden.
func (c Card) MaskedNumber() string {
	if len(c.CardNumber) < 4 {
		return ""
	}
	return fmt.Sprintf("****-****-****-%s", c.CardNumber[len(c.CardNumber)-4:])
}

// Transaction is an immutable audit record of one card money movement with
// full profit traceability. TotalAmount is always BaseAmount+ProfitAmount;
// it is derived at creation and never edited afterwards.
type Transaction struct {
	TransactionID         string
	CardID                string
	Type                  string
	Currency              string
	Description           string
	Status                string
	BaseAmount            decimal.Decimal
	ProfitMargin          decimal.Decimal
	ProfitAmount          decimal.Decimal
	TotalAmount           decimal.Decimal
	ExternalTransactionID string
	ProcessedBy           string
	ProcessedAt           time.Time
}
