package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uweb3bank/cardadmin/internal/cards"
	"github.com/uweb3bank/cardadmin/internal/upstream"
)

// Service refreshes local card state from the issuing platform. Local values
// are a cache; the platform is authoritative and its answer wins entirely.
type Service struct {
	store  cards.Store
	client upstream.Client
	logger *slog.Logger
}

// NewService constructs a reconciliation service.
func NewService(store cards.Store, client upstream.Client, logger *slog.Logger) *Service {
	return &Service{store: store, client: client, logger: logger}
}

// Sync overwrites the local balance, status, and last-used timestamp with the
// platform's current values. An upstream failure propagates and leaves local
// state untouched.
func (s *Service) Sync(ctx context.Context, cardID string) (cards.Card, error) {
	if _, err := s.store.GetCard(ctx, cardID); err != nil {
		return cards.Card{}, err
	}

	state, err := s.client.GetCard(ctx, cardID)
	if err != nil {
		return cards.Card{}, fmt.Errorf("fetch upstream card state: %w", err)
	}

	updated, err := s.store.OverwriteFromUpstream(ctx, cardID, state.Balance, state.Status, state.LastUsed)
	if err != nil {
		return cards.Card{}, err
	}

	s.logger.Info("card synced",
		"card_id", cardID,
		"balance", updated.Balance.StringFixed(2),
		"status", updated.Status)
	return updated, nil
}
