package cards

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that sets a card balance directly when using
// the in-memory store.
func SeedBalance(s Store, cardID string, balance decimal.Decimal) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		card, exists := mem.cards[cardID]
		if !exists {
			return
		}
		card.Balance = balance
		mem.cards[cardID] = card
	}
}
