package upstream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Static simulates the card issuing platform in memory. It backs dev mode
// and unit tests when no real platform is configured.
type Static struct {
	mu    sync.Mutex
	cards map[string]CardState
}

// NewStatic builds an empty simulated platform.
func NewStatic() *Static {
	return &Static{cards: make(map[string]CardState)}
}

// CreateCard issues a synthetic card and tracks its remote state.
func (s *Static) CreateCard(_ context.Context, input CreateCardInput) (CreatedCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.cards[id] = CardState{Balance: decimal.Zero, Status: "active"}
	return CreatedCard{
		CardID:     id,
		CardNumber: fmt.Sprintf("4%015d", time.Now().UnixNano()%1_000_000_000_000_000),
		ExpiryDate: time.Now().AddDate(3, 0, 0).Format("01/06"),
		CVV:        "123",
	}, nil
}

// GetCard returns the simulated remote state.
func (s *Static) GetCard(_ context.Context, cardID string) (CardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.cards[cardID]
	if !ok {
		return CardState{}, &Error{Op: "get_card", StatusCode: 404, Message: "card not found"}
	}
	return state, nil
}

// UpdateCard applies a status change to the simulated card.
func (s *Static) UpdateCard(_ context.Context, cardID string, input UpdateCardInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.cards[cardID]
	if !ok {
		return &Error{Op: "update_card", StatusCode: 404, Message: "card not found"}
	}
	if input.Status != "" {
		state.Status = input.Status
	}
	s.cards[cardID] = state
	return nil
}

// CancelCard blocks the simulated card.
func (s *Static) CancelCard(_ context.Context, cardID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.cards[cardID]
	if !ok {
		return &Error{Op: "cancel_card", StatusCode: 404, Message: "card not found"}
	}
	state.Status = "blocked"
	s.cards[cardID] = state
	return nil
}

// FundCard increases the simulated remote balance and returns a synthetic
// transaction reference.
func (s *Static) FundCard(_ context.Context, cardID string, amount decimal.Decimal, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.cards[cardID]
	if !ok {
		// Dev convenience: cards created outside the stub still fund.
		state = CardState{Balance: decimal.Zero, Status: "active"}
	}
	now := time.Now().UTC()
	state.Balance = state.Balance.Add(amount)
	state.LastUsed = &now
	s.cards[cardID] = state
	return uuid.NewString(), nil
}

// TestConnection always reports healthy for the simulated platform.
func (s *Static) TestConnection(context.Context) Health {
	return Health{Healthy: true}
}

// SeedCard registers remote state for a card, useful in tests.
func (s *Static) SeedCard(cardID string, state CardState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[cardID] = state
}
