package funding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uweb3bank/cardadmin/internal/cards"
	"github.com/uweb3bank/cardadmin/internal/config"
	"github.com/uweb3bank/cardadmin/internal/logging"
	"github.com/uweb3bank/cardadmin/internal/margin"
	"github.com/uweb3bank/cardadmin/internal/pricing"
	"github.com/uweb3bank/cardadmin/internal/upstream"
)

type stubUpstream struct {
	upstream.Client

	mu        sync.Mutex
	fundCalls int
	fundErr   error
}

func (s *stubUpstream) FundCard(_ context.Context, _ string, _ decimal.Decimal, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fundCalls++
	if s.fundErr != nil {
		return "", s.fundErr
	}
	return uuid.NewString(), nil
}

func (s *stubUpstream) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fundCalls
}

func newTestService(t *testing.T, client *stubUpstream) (*Service, cards.Store, cards.Card) {
	t.Helper()

	store := cards.NewMemoryStore()
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

	margins := margin.NewStore(margin.NewMemoryRepository(), config.MarginDefaults{
		Default:     decimal.RequireFromString("2.5"),
		Min:         decimal.RequireFromString("0.5"),
		Max:         decimal.RequireFromString("10.0"),
		Funding:     decimal.RequireFromString("2.5"),
		Transaction: decimal.RequireFromString("1.5"),
	}, logging.Discard())

	service := NewService(store, margins, client, nil, logging.Discard())
	return service, store, card
}

func TestFundAppliesMarkup(t *testing.T) {
	ctx := context.Background()
	client := &stubUpstream{}
	service, store, card := newTestService(t, client)

	result, err := service.Fund(ctx, FundInput{
		CardID: card.CardID,
		Amount: decimal.RequireFromString("100"),
		Actor:  "admin@example.com",
	})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}

	if !result.Transaction.ProfitAmount.Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("expected profit 2.50, got %s", result.Transaction.ProfitAmount)
	}
	if !result.Transaction.TotalAmount.Equal(decimal.RequireFromString("102.50")) {
		t.Fatalf("expected total 102.50, got %s", result.Transaction.TotalAmount)
	}
	if !result.NewBalance.Equal(decimal.RequireFromString("102.50")) {
		t.Fatalf("expected balance 102.50, got %s", result.NewBalance)
	}
	if result.Transaction.Status != cards.TxStatusCompleted {
		t.Fatalf("expected completed transaction, got %s", result.Transaction.Status)
	}
	if result.Transaction.ExternalTransactionID == "" {
		t.Fatal("expected external transaction reference")
	}
	if client.calls() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", client.calls())
	}

	txns, err := store.RecentTransactions(ctx, card.CardID, 10)
	if err != nil {
		t.Fatalf("recent transactions: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected exactly one recorded transaction, got %d", len(txns))
	}
}

func TestFundZeroAmountStillRecords(t *testing.T) {
	ctx := context.Background()
	client := &stubUpstream{}
	service, store, card := newTestService(t, client)

	result, err := service.Fund(ctx, FundInput{CardID: card.CardID, Amount: decimal.Zero})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if !result.Transaction.ProfitAmount.IsZero() || !result.Transaction.TotalAmount.IsZero() {
		t.Fatalf("expected zero amounts, got profit %s total %s",
			result.Transaction.ProfitAmount, result.Transaction.TotalAmount)
	}

	txns, err := store.RecentTransactions(ctx, card.CardID, 10)
	if err != nil {
		t.Fatalf("recent transactions: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected a recorded transaction for zero funding, got %d", len(txns))
	}
}

func TestFundNegativeAmountRejected(t *testing.T) {
	ctx := context.Background()
	client := &stubUpstream{}
	service, store, card := newTestService(t, client)

	_, err := service.Fund(ctx, FundInput{CardID: card.CardID, Amount: decimal.RequireFromString("-5")})
	if !errors.Is(err, pricing.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if client.calls() != 0 {
		t.Fatalf("expected no upstream call, got %d", client.calls())
	}

	after, err := store.GetCard(ctx, card.CardID)
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if !after.Balance.IsZero() {
		t.Fatalf("expected untouched balance, got %s", after.Balance)
	}
}

func TestFundUnknownCard(t *testing.T) {
	client := &stubUpstream{}
	service, _, _ := newTestService(t, client)

	_, err := service.Fund(context.Background(), FundInput{
		CardID: uuid.NewString(),
		Amount: decimal.RequireFromString("10"),
	})
	if !errors.Is(err, cards.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if client.calls() != 0 {
		t.Fatalf("expected no upstream call, got %d", client.calls())
	}
}

func TestFundUpstreamFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	client := &stubUpstream{fundErr: &upstream.Error{Op: "fund_card", StatusCode: 402, Message: "insufficient issuer balance"}}
	service, store, card := newTestService(t, client)

	_, err := service.Fund(ctx, FundInput{CardID: card.CardID, Amount: decimal.RequireFromString("100")})
	if !errors.Is(err, ErrFundingFailed) {
		t.Fatalf("expected funding failed, got %v", err)
	}
	if !errors.Is(err, upstream.ErrUpstream) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}

	after, err := store.GetCard(ctx, card.CardID)
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if !after.Balance.IsZero() {
		t.Fatalf("expected untouched balance, got %s", after.Balance)
	}
	if after.LastUsed != nil {
		t.Fatal("expected lastUsed untouched")
	}

	txns, err := store.RecentTransactions(ctx, card.CardID, 10)
	if err != nil {
		t.Fatalf("recent transactions: %v", err)
	}
	if len(txns) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txns))
	}
}

func TestFundConcurrentSameCard(t *testing.T) {
	ctx := context.Background()
	client := &stubUpstream{}
	service, store, card := newTestService(t, client)

	// Margin 0 so balances add up exactly.
	if _, err := service.margins.SetMargins(ctx, map[string]decimal.Decimal{
		margin.KeyFunding: decimal.Zero,
	}, "test"); err != nil {
		t.Fatalf("set margins: %v", err)
	}

	amounts := []string{"50", "30"}
	var wg sync.WaitGroup
	errs := make([]error, len(amounts))
	for i, amount := range amounts {
		wg.Add(1)
		go func(i int, amount string) {
			defer wg.Done()
			_, errs[i] = service.Fund(ctx, FundInput{
				CardID: card.CardID,
				Amount: decimal.RequireFromString(amount),
			})
		}(i, amount)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("fund %d: %v", i, err)
		}
	}

	after, err := store.GetCard(ctx, card.CardID)
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if !after.Balance.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("expected balance 80, got %s", after.Balance)
	}
}
