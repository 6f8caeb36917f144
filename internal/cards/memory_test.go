package cards

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newCard() Card {
	return Card{
		CardID:     uuid.NewString(),
		CardNumber: uuid.NewString(),
		HolderName: "Test Holder",
		ExpiryDate: "12/29",
		CVV:        "123",
		Status:     StatusActive,
		Balance:    decimal.Zero,
		Currency:   "USD",
		IssuedAt:   time.Now().UTC(),
	}
}

func fundingTxn(cardID, total string) Transaction {
	totalAmount := decimal.RequireFromString(total)
	return Transaction{
		TransactionID: uuid.NewString(),
		CardID:        cardID,
		Type:          TypeFunding,
		Currency:      "USD",
		Status:        TxStatusCompleted,
		BaseAmount:    totalAmount,
		ProfitMargin:  decimal.Zero,
		ProfitAmount:  decimal.Zero,
		TotalAmount:   totalAmount,
		ProcessedAt:   time.Now().UTC(),
	}
}

func TestMemoryStoreRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	card := newCard()

	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateCard(ctx, card); !errors.Is(err, ErrDuplicateCard) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	other := newCard()
	other.CardNumber = card.CardNumber
	if err := store.CreateCard(ctx, other); !errors.Is(err, ErrDuplicateCard) {
		t.Fatalf("expected duplicate card number error, got %v", err)
	}
}

func TestApplyFundingIsAtomicUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	card := newCard()
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ApplyFunding(ctx, card.CardID, fundingTxn(card.CardID, "1.00")); err != nil {
				t.Errorf("apply funding: %v", err)
			}
		}()
	}
	wg.Wait()

	after, err := store.GetCard(ctx, card.CardID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !after.Balance.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected balance 20.00, got %s", after.Balance)
	}
	if after.LastUsed == nil {
		t.Fatal("expected lastUsed set")
	}

	txns, err := store.RecentTransactions(ctx, card.CardID, 0)
	if err != nil {
		t.Fatalf("recent transactions: %v", err)
	}
	if len(txns) != workers {
		t.Fatalf("expected %d transactions, got %d", workers, len(txns))
	}
}

func TestRecentTransactionsNewestFirstAndLimited(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	card := newCard()
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatalf("create: %v", err)
	}

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		txn := fundingTxn(card.CardID, "1.00")
		txn.ProcessedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := store.ApplyFunding(ctx, card.CardID, txn); err != nil {
			t.Fatalf("apply funding: %v", err)
		}
	}

	txns, err := store.RecentTransactions(ctx, card.CardID, 3)
	if err != nil {
		t.Fatalf("recent transactions: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txns))
	}
	if !txns[0].ProcessedAt.After(txns[2].ProcessedAt) {
		t.Fatal("expected newest-first ordering")
	}
}

func TestOverwriteFromUpstreamKeepsUnreportedFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	card := newCard()
	ts := time.Now().UTC().Add(-time.Hour)
	card.LastUsed = &ts
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Empty status and nil lastUsed leave existing values in place.
	updated, err := store.OverwriteFromUpstream(ctx, card.CardID, decimal.RequireFromString("9.99"), "", nil)
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if !updated.Balance.Equal(decimal.RequireFromString("9.99")) {
		t.Fatalf("expected balance 9.99, got %s", updated.Balance)
	}
	if updated.Status != StatusActive {
		t.Fatalf("expected status preserved, got %s", updated.Status)
	}
	if updated.LastUsed == nil || !updated.LastUsed.Equal(ts) {
		t.Fatalf("expected lastUsed preserved, got %v", updated.LastUsed)
	}
}

func TestListActiveCardIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	active := newCard()
	blocked := newCard()
	blocked.Status = StatusBlocked
	for _, card := range []Card{active, blocked} {
		if err := store.CreateCard(ctx, card); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	ids, err := store.ListActiveCardIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != active.CardID {
		t.Fatalf("expected only active card, got %v", ids)
	}
}
