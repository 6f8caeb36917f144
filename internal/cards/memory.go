package cards

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type memoryStore struct {
	mu           sync.Mutex
	cards        map[string]Card
	transactions map[string][]Transaction
}

// NewMemoryStore creates a concurrency-safe in-memory store used in dev mode
// and unit tests. The single mutex serializes per-card mutations.
func NewMemoryStore() Store {
	return &memoryStore{
		cards:        make(map[string]Card),
		transactions: make(map[string][]Transaction),
	}
}

func (s *memoryStore) CreateCard(_ context.Context, card Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cards[card.CardID]; exists {
		return ErrDuplicateCard
	}
	for _, existing := range s.cards {
		if existing.CardNumber == card.CardNumber {
			return ErrDuplicateCard
		}
	}
	s.cards[card.CardID] = cloneCard(card)
	return nil
}

func (s *memoryStore) GetCard(_ context.Context, cardID string) (Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[cardID]
	if !ok {
		return Card{}, ErrNotFound
	}
	return cloneCard(card), nil
}

func (s *memoryStore) UpdateCard(_ context.Context, cardID string, update CardUpdate) (Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[cardID]
	if !ok {
		return Card{}, ErrNotFound
	}
	if update.Status != nil {
		card.Status = *update.Status
	}
	if update.Tags != nil {
		card.Tags = append([]string(nil), update.Tags...)
	}
	s.cards[cardID] = card
	return cloneCard(card), nil
}

func (s *memoryStore) ApplyFunding(_ context.Context, cardID string, txn Transaction) (Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[cardID]
	if !ok {
		return Card{}, ErrNotFound
	}

	now := txn.ProcessedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	card.Balance = card.Balance.Add(txn.TotalAmount)
	card.LastUsed = &now
	s.cards[cardID] = card
	s.transactions[cardID] = append(s.transactions[cardID], txn)

	return cloneCard(card), nil
}

func (s *memoryStore) OverwriteFromUpstream(_ context.Context, cardID string, balance decimal.Decimal, status string, lastUsed *time.Time) (Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[cardID]
	if !ok {
		return Card{}, ErrNotFound
	}
	card.Balance = balance
	if status != "" {
		card.Status = status
	}
	if lastUsed != nil {
		ts := lastUsed.UTC()
		card.LastUsed = &ts
	}
	s.cards[cardID] = card
	return cloneCard(card), nil
}

func (s *memoryStore) RecentTransactions(_ context.Context, cardID string, limit int) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[cardID]; !ok {
		return nil, ErrNotFound
	}

	txns := append([]Transaction(nil), s.transactions[cardID]...)
	sort.Slice(txns, func(i, j int) bool {
		return txns[i].ProcessedAt.After(txns[j].ProcessedAt)
	})
	if limit > 0 && len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil
}

func (s *memoryStore) ListActiveCardIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, card := range s.cards {
		if card.Status == StatusActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func cloneCard(card Card) Card {
	card.Tags = append([]string(nil), card.Tags...)
	if card.LastUsed != nil {
		ts := *card.LastUsed
		card.LastUsed = &ts
	}
	return card
}
