package issuing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uweb3bank/cardadmin/internal/cards"
	"github.com/uweb3bank/cardadmin/internal/upstream"
)

// Service manages the card lifecycle against the issuing platform: creation,
// status changes, and detail lookups.
type Service struct {
	store  cards.Store
	client upstream.Client
	logger *slog.Logger
}

// NewService constructs an issuing service.
func NewService(store cards.Store, client upstream.Client, logger *slog.Logger) *Service {
	return &Service{store: store, client: client, logger: logger}
}

// CreateInput captures the data required to issue a card.
type CreateInput struct {
	HolderName    string
	Currency      string
	SpendingLimit decimal.Decimal
	Tags          []string
	Actor         string
}

// Create issues a card on the platform and records it locally. The upstream
// call is not retried: issuance carries no idempotency key, so a retry could
// issue a second card.
func (s *Service) Create(ctx context.Context, input CreateInput) (cards.Card, error) {
	if input.HolderName == "" {
		return cards.Card{}, fmt.Errorf("holder name is required")
	}
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	metadata := map[string]string{}
	if len(input.Tags) > 0 {
		metadata["tags"] = strings.Join(input.Tags, ",")
	}

	created, err := s.client.CreateCard(ctx, upstream.CreateCardInput{
		HolderName:    input.HolderName,
		Currency:      currency,
		SpendingLimit: input.SpendingLimit,
		Metadata:      metadata,
	})
	if err != nil {
		return cards.Card{}, err
	}

	card := cards.Card{
		CardID:     created.CardID,
		CardNumber: created.CardNumber,
		HolderName: input.HolderName,
		ExpiryDate: created.ExpiryDate,
		CVV:        created.CVV,
		Status:     cards.StatusActive,
		Balance:    decimal.Zero,
		Currency:   currency,
		Tags:       input.Tags,
		IssuedBy:   input.Actor,
		IssuedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateCard(ctx, card); err != nil {
		// The platform issued the card but the local record is missing.
		s.logger.Error("local card record failed after confirmed issuance",
			"card_id", created.CardID, "error", err)
		return cards.Card{}, fmt.Errorf("record issued card: %w", err)
	}

	s.logger.Info("card issued", "card_id", card.CardID, "holder", card.HolderName, "actor", input.Actor)
	return card, nil
}

// Detail is a card plus its most recent transactions.
type Detail struct {
	Card               cards.Card
	RecentTransactions []cards.Transaction
}

// Get returns a card with its recent transaction history.
func (s *Service) Get(ctx context.Context, cardID string) (Detail, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return Detail{}, err
	}
	txns, err := s.store.RecentTransactions(ctx, cardID, 10)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Card: card, RecentTransactions: txns}, nil
}

// UpdateInput carries the mutable card fields for administrative updates.
type UpdateInput struct {
	Status *string
	Tags   []string
	Actor  string
}

// Update applies status and tag changes. Blocking a card first requires
// platform cancellation; the local status flips only after the platform
// acknowledges. Reactivating a blocked card goes through a platform update
// the same way.
func (s *Service) Update(ctx context.Context, cardID string, input UpdateInput) (cards.Card, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return cards.Card{}, err
	}

	if input.Status != nil && *input.Status != card.Status {
		switch {
		case *input.Status == cards.StatusBlocked:
			if err := s.client.CancelCard(ctx, cardID, "Admin request"); err != nil {
				return cards.Card{}, err
			}
		case *input.Status == cards.StatusActive && card.Status == cards.StatusBlocked:
			// Some platforms refuse to reactivate cancelled cards; surface
			// the upstream rejection as-is.
			if err := s.client.UpdateCard(ctx, cardID, upstream.UpdateCardInput{Status: cards.StatusActive}); err != nil {
				return cards.Card{}, err
			}
		}
	}

	updated, err := s.store.UpdateCard(ctx, cardID, cards.CardUpdate{Status: input.Status, Tags: input.Tags})
	if err != nil {
		return cards.Card{}, err
	}

	s.logger.Info("card updated", "card_id", cardID, "actor", input.Actor)
	return updated, nil
}
