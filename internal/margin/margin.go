package margin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uweb3bank/cardadmin/internal/config"
)

// Margin policy keys. Only these keys are accepted by SetMargins.
const (
	KeyDefault     = "default_profit_margin"
	KeyMin         = "min_profit_margin"
	KeyMax         = "max_profit_margin"
	KeyFunding     = "funding_profit_margin"
	KeyTransaction = "transaction_profit_margin"
)

// ErrValidation rejects a margin batch containing an unknown key or an
// out-of-range value. Nothing is written when it is returned.
var ErrValidation = errors.New("margin validation failed")

var hundred = decimal.NewFromInt(100)

// Setting is one persisted margin policy record.
type Setting struct {
	Key         string
	Value       decimal.Decimal
	Category    string
	Description string
	IsActive    bool
	UpdatedBy   string
	UpdatedAt   time.Time
}

// Repository persists margin policy settings.
type Repository interface {
	Get(ctx context.Context, key string) (Setting, bool, error)
	GetAll(ctx context.Context) ([]Setting, error)
	UpsertAll(ctx context.Context, settings []Setting) error
}

// Store supplies margin percentages to the pricing path and accepts
// administrative bulk updates.
type Store struct {
	repo     Repository
	defaults config.MarginDefaults
	logger   *slog.Logger
}

// NewStore builds a margin policy store over the given repository.
func NewStore(repo Repository, defaults config.MarginDefaults, logger *slog.Logger) *Store {
	return &Store{repo: repo, defaults: defaults, logger: logger}
}

// Get returns the active stored percentage for a key, degrading silently to
// the environment fallback when the key is unset or the read fails.
func (s *Store) Get(ctx context.Context, key string) decimal.Decimal {
	setting, found, err := s.repo.Get(ctx, key)
	if err != nil {
		s.logger.Warn("margin read failed, using fallback", "key", key, "error", err)
		return s.fallback(key)
	}
	if !found || !setting.IsActive {
		return s.fallback(key)
	}
	return setting.Value
}

// Effective lists the current value for every margin key, stored or fallback.
func (s *Store) Effective(ctx context.Context) map[string]decimal.Decimal {
	values := map[string]decimal.Decimal{
		KeyDefault:     s.defaults.Default,
		KeyMin:         s.defaults.Min,
		KeyMax:         s.defaults.Max,
		KeyFunding:     s.defaults.Funding,
		KeyTransaction: s.defaults.Transaction,
	}

	stored, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Warn("margin list failed, using fallbacks", "error", err)
		return values
	}
	for _, setting := range stored {
		if !setting.IsActive {
			continue
		}
		if _, known := values[setting.Key]; known {
			values[setting.Key] = setting.Value
		}
	}
	return values
}

// SetMargins validates and upserts a batch of margin values. The batch is
// all-or-nothing: one invalid entry rejects every entry.
func (s *Store) SetMargins(ctx context.Context, values map[string]decimal.Decimal, actor string) ([]Setting, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrValidation)
	}

	now := time.Now().UTC()
	settings := make([]Setting, 0, len(values))
	for key, value := range values {
		if !knownKey(key) {
			return nil, fmt.Errorf("%w: unknown key %q", ErrValidation, key)
		}
		if value.IsNegative() || value.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: %s must be between 0 and 100", ErrValidation, key)
		}
		settings = append(settings, Setting{
			Key:         key,
			Value:       value,
			Category:    "profit_margin",
			Description: descriptions[key],
			IsActive:    true,
			UpdatedBy:   actor,
			UpdatedAt:   now,
		})
	}

	if err := s.repo.UpsertAll(ctx, settings); err != nil {
		return nil, err
	}

	s.logger.Info("margin policy updated", "actor", actor, "keys", len(settings))
	return settings, nil
}

func (s *Store) fallback(key string) decimal.Decimal {
	switch key {
	case KeyMin:
		return s.defaults.Min
	case KeyMax:
		return s.defaults.Max
	case KeyFunding:
		return s.defaults.Funding
	case KeyTransaction:
		return s.defaults.Transaction
	default:
		return s.defaults.Default
	}
}

func knownKey(key string) bool {
	switch key {
	case KeyDefault, KeyMin, KeyMax, KeyFunding, KeyTransaction:
		return true
	default:
		return false
	}
}

var descriptions = map[string]string{
	KeyDefault:     "Default profit margin percentage for all transactions",
	KeyMin:         "Minimum allowed profit margin percentage",
	KeyMax:         "Maximum allowed profit margin percentage",
	KeyFunding:     "Profit margin percentage for card funding",
	KeyTransaction: "Profit margin percentage for regular transactions",
}
