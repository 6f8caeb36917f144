package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uweb3bank/cardadmin/internal/cards"
	"github.com/uweb3bank/cardadmin/internal/margin"
	"github.com/uweb3bank/cardadmin/internal/notification"
	"github.com/uweb3bank/cardadmin/internal/pricing"
	"github.com/uweb3bank/cardadmin/internal/upstream"
)

// ErrFundingFailed is returned when the issuing platform rejects or fails a
// funding submission. No local state is written when it is returned.
var ErrFundingFailed = errors.New("card funding failed")

// Service orchestrates card funding: margin resolution, pricing, the upstream
// charge, and the atomic local write.
type Service struct {
	store    cards.Store
	margins  *margin.Store
	client   upstream.Client
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a funding orchestrator.
func NewService(store cards.Store, margins *margin.Store, client upstream.Client, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, margins: margins, client: client, notifier: notifier, logger: logger}
}

// FundInput captures a funding request for one card.
type FundInput struct {
	CardID   string
	Amount   decimal.Decimal
	Currency string
	Actor    string
}

// Result is the domain outcome of a successful funding.
type Result struct {
	Transaction cards.Transaction
	NewBalance  decimal.Decimal
}

// Fund marks up the requested amount by the funding margin, charges the
// total upstream, and on confirmed success records the transaction and the
// new balance as one atomic write. Exactly one upstream call is made per
// invocation, and exactly one transaction is recorded on success.
func (s *Service) Fund(ctx context.Context, input FundInput) (Result, error) {
	card, err := s.store.GetCard(ctx, input.CardID)
	if err != nil {
		return Result{}, err
	}

	currency := input.Currency
	if currency == "" {
		currency = card.Currency
	}

	marginPercent := s.margins.Get(ctx, margin.KeyFunding)

	quote, err := pricing.Price(input.Amount, marginPercent)
	if err != nil {
		return Result{}, err
	}

	externalTxID, err := s.client.FundCard(ctx, card.CardID, quote.TotalAmount, currency)
	if err != nil {
		if upstream.IsIndeterminate(err) {
			// The charge may have been applied remotely. Flag for
			// reconciliation instead of assuming a clean failure.
			s.logger.Error("funding outcome unknown, reconciliation required",
				"card_id", card.CardID, "total_amount", quote.TotalAmount.StringFixed(2), "error", err)
			s.notify(ctx, notification.Message{
				Kind:   notification.KindSyncFailure,
				CardID: card.CardID,
				Body:   fmt.Sprintf("funding of %s %s timed out; sync required", currency, quote.TotalAmount.StringFixed(2)),
			})
		}
		return Result{}, fmt.Errorf("%w: %w", ErrFundingFailed, err)
	}

	txn := cards.Transaction{
		TransactionID:         transactionID(externalTxID),
		CardID:                card.CardID,
		Type:                  cards.TypeFunding,
		Currency:              currency,
		Description:           fmt.Sprintf("Card funding - %s %s", currency, quote.BaseAmount.StringFixed(2)),
		Status:                cards.TxStatusCompleted,
		BaseAmount:            quote.BaseAmount,
		ProfitMargin:          quote.ProfitMargin,
		ProfitAmount:          quote.ProfitAmount,
		TotalAmount:           quote.TotalAmount,
		ExternalTransactionID: externalTxID,
		ProcessedBy:           input.Actor,
		ProcessedAt:           time.Now().UTC(),
	}

	updated, err := s.store.ApplyFunding(ctx, card.CardID, txn)
	if err != nil {
		// The upstream charge is confirmed but the local book missed it.
		// This drift cannot be returned as an ordinary failure: escalate.
		s.logger.Error("local persistence failed after confirmed upstream funding",
			"card_id", card.CardID, "external_tx_id", externalTxID, "error", err)
		s.notify(ctx, notification.Message{
			Kind:   notification.KindLedgerDrift,
			CardID: card.CardID,
			Body:   fmt.Sprintf("upstream charge %s confirmed but local write failed: %v", externalTxID, err),
		})
		return Result{}, fmt.Errorf("record confirmed funding: %w", err)
	}

	s.logger.Info("card funded",
		"card_id", card.CardID,
		"base_amount", quote.BaseAmount.StringFixed(2),
		"profit_amount", quote.ProfitAmount.StringFixed(2),
		"total_amount", quote.TotalAmount.StringFixed(2),
		"external_tx_id", externalTxID)

	return Result{Transaction: txn, NewBalance: updated.Balance}, nil
}

func (s *Service) notify(ctx context.Context, message notification.Message) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, message)
}

func transactionID(externalTxID string) string {
	if externalTxID != "" {
		return externalTxID
	}
	return uuid.NewString()
}
