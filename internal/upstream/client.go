package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUpstream is the sentinel wrapped by every Error so callers can use
// errors.Is without inspecting the concrete type.
var ErrUpstream = errors.New("card issuer upstream error")

// Error describes a failed call against the card issuing platform. StatusCode
// is zero for transport-level failures. Indeterminate marks outcomes that may
// have been applied remotely (timeouts), which must not be treated as a clean
// rejection.
type Error struct {
	Op            string
	StatusCode    int
	Message       string
	Indeterminate bool
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	if e.Indeterminate {
		return fmt.Sprintf("upstream %s: outcome unknown: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("upstream %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return ErrUpstream }

// IsIndeterminate reports whether err represents an upstream call whose
// remote outcome is unknown, such as a timeout after submission.
func IsIndeterminate(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Indeterminate
}

// CreateCardInput carries the issuance request forwarded to the platform.
type CreateCardInput struct {
	HolderName    string
	Currency      string
	SpendingLimit decimal.Decimal
	Metadata      map[string]string
}

// CreatedCard is the platform's response to a successful issuance.
type CreatedCard struct {
	CardID     string
	CardNumber string
	ExpiryDate string
	CVV        string
}

// CardState is the authoritative remote view of a card, consumed by reconciliation.
type CardState struct {
	Balance  decimal.Decimal
	Status   string
	LastUsed *time.Time
}

// UpdateCardInput carries mutable remote card fields.
type UpdateCardInput struct {
	Status string
}

// Health reports upstream reachability. TestConnection never returns an
// error; failures land in Detail with Healthy=false.
type Health struct {
	Healthy bool
	Detail  string
}

// Client is the boundary to the third-party card issuing platform. No
// operation retries on failure; retry policy, if any, belongs to callers.
type Client interface {
	CreateCard(ctx context.Context, input CreateCardInput) (CreatedCard, error)
	GetCard(ctx context.Context, cardID string) (CardState, error)
	UpdateCard(ctx context.Context, cardID string, input UpdateCardInput) error
	CancelCard(ctx context.Context, cardID, reason string) error
	FundCard(ctx context.Context, cardID string, amount decimal.Decimal, currency string) (string, error)
	TestConnection(ctx context.Context) Health
}
