package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uweb3bank/cardadmin/internal/cards"
	"github.com/uweb3bank/cardadmin/internal/logging"
	"github.com/uweb3bank/cardadmin/internal/upstream"
)

func seedCard(t *testing.T, store cards.Store) cards.Card {
	t.Helper()
	card := cards.Card{
		CardID:     uuid.NewString(),
		CardNumber: "4111111111111111",
		HolderName: "Test Holder",
		ExpiryDate: "12/29",
		CVV:        "123",
		Status:     cards.StatusActive,
		Balance:    decimal.Zero,
		Currency:   "USD",
		IssuedAt:   time.Now().UTC(),
	}
	if err := store.CreateCard(context.Background(), card); err != nil {
		t.Fatalf("create card: %v", err)
	}
	return card
}

func TestSyncOverwritesLocalState(t *testing.T) {
	ctx := context.Background()
	store := cards.NewMemoryStore()
	card := seedCard(t, store)

	// Local balance is stale relative to the platform.
	cards.SeedBalance(store, card.CardID, decimal.RequireFromString("40.00"))

	lastUsed := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	platform := upstream.NewStatic()
	platform.SeedCard(card.CardID, upstream.CardState{
		Balance:  decimal.RequireFromString("125.75"),
		Status:   cards.StatusInactive,
		LastUsed: &lastUsed,
	})

	service := NewService(store, platform, logging.Discard())

	updated, err := service.Sync(ctx, card.CardID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !updated.Balance.Equal(decimal.RequireFromString("125.75")) {
		t.Fatalf("expected balance 125.75, got %s", updated.Balance)
	}
	if updated.Status != cards.StatusInactive {
		t.Fatalf("expected status inactive, got %s", updated.Status)
	}
	if updated.LastUsed == nil || !updated.LastUsed.Equal(lastUsed) {
		t.Fatalf("expected lastUsed %v, got %v", lastUsed, updated.LastUsed)
	}
}

func TestSyncMissingLocalCard(t *testing.T) {
	service := NewService(cards.NewMemoryStore(), upstream.NewStatic(), logging.Discard())

	_, err := service.Sync(context.Background(), uuid.NewString())
	if !errors.Is(err, cards.ErrNotFound) {
		t.Fatalf("expected local not found, got %v", err)
	}
}

func TestSyncUpstreamFailureLeavesLocalState(t *testing.T) {
	ctx := context.Background()
	store := cards.NewMemoryStore()
	card := seedCard(t, store)

	// Card exists locally but the platform does not know it.
	service := NewService(store, upstream.NewStatic(), logging.Discard())

	_, err := service.Sync(ctx, card.CardID)
	if !errors.Is(err, upstream.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	after, err := store.GetCard(ctx, card.CardID)
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if !after.Balance.Equal(card.Balance) {
		t.Fatalf("expected balance %s untouched, got %s", card.Balance, after.Balance)
	}
	if after.Status != card.Status {
		t.Fatalf("expected status %s untouched, got %s", card.Status, after.Status)
	}
}
