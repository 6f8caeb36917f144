package funding

import "time"

// FundRequest captures the funding payload for a card.
type FundRequest struct {
	Amount   string `json:"amount" validate:"required"`
	Currency string `json:"currency" validate:"omitempty,oneof=USD EUR GBP"`
}

// TransactionResponse is the API shape of a recorded transaction.
type TransactionResponse struct {
	TransactionID         string    `json:"transaction_id"`
	CardID                string    `json:"card_id"`
	Type                  string    `json:"type"`
	Currency              string    `json:"currency"`
	Description           string    `json:"description"`
	Status                string    `json:"status"`
	BaseAmount            string    `json:"base_amount"`
	ProfitMargin          string    `json:"profit_margin"`
	ProfitAmount          string    `json:"profit_amount"`
	TotalAmount           string    `json:"total_amount"`
	ExternalTransactionID string    `json:"external_transaction_id"`
	ProcessedBy           string    `json:"processed_by,omitempty"`
	ProcessedAt           time.Time `json:"processed_at"`
}

// FundResponse is the API response for a successful funding.
type FundResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	NewBalance  string              `json:"new_balance"`
}
