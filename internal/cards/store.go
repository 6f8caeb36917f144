package cards

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates no local card exists for the requested identifier.
	ErrNotFound = errors.New("card not found")

	// ErrDuplicateCard indicates a card with the same identifier or number
	// already exists locally.
	ErrDuplicateCard = errors.New("card already exists")
)

// CardUpdate carries the mutable local card fields. Nil fields are left untouched.
type CardUpdate struct {
	Status *string
	Tags   []string
}

// Store is the local book of record for cards and their transactions.
// Implementations must serialize ApplyFunding and OverwriteFromUpstream per
// card so concurrent mutations never read a stale balance.
type Store interface {
	CreateCard(ctx context.Context, card Card) error
	GetCard(ctx context.Context, cardID string) (Card, error)
	UpdateCard(ctx context.Context, cardID string, update CardUpdate) (Card, error)

	// ApplyFunding atomically inserts the transaction, increments the card
	// balance by the transaction total, and stamps lastUsed. Either all
	// three writes apply or none do.
	ApplyFunding(ctx context.Context, cardID string, txn Transaction) (Card, error)

	// OverwriteFromUpstream replaces balance, status, and lastUsed with the
	// values reported by the issuing platform. Upstream wins entirely.
	OverwriteFromUpstream(ctx context.Context, cardID string, balance decimal.Decimal, status string, lastUsed *time.Time) (Card, error)

	RecentTransactions(ctx context.Context, cardID string, limit int) ([]Transaction, error)
	ListActiveCardIDs(ctx context.Context) ([]string, error)
}
