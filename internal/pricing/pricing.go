package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidArgument indicates a quote precondition violation: a negative
// base amount or a margin outside [0,100].
var ErrInvalidArgument = errors.New("invalid pricing argument")

var hundred = decimal.NewFromInt(100)

// Quote is the result of applying a profit margin to a base amount.
type Quote struct {
	BaseAmount   decimal.Decimal
	ProfitMargin decimal.Decimal
	ProfitAmount decimal.Decimal
	TotalAmount  decimal.Decimal
}

// Price derives the profit and total amounts for a funding request. The
// profit is base*margin/100 rounded half-up to two decimal places; the total
// is always base+profit. A zero base amount is valid and prices to zero.
func Price(baseAmount, marginPercent decimal.Decimal) (Quote, error) {
	if baseAmount.IsNegative() {
		return Quote{}, ErrInvalidArgument
	}
	if marginPercent.IsNegative() || marginPercent.GreaterThan(hundred) {
		return Quote{}, ErrInvalidArgument
	}

	profit := baseAmount.Mul(marginPercent).Div(hundred).Round(2)
	return Quote{
		BaseAmount:   baseAmount,
		ProfitMargin: marginPercent,
		ProfitAmount: profit,
		TotalAmount:  baseAmount.Add(profit),
	}, nil
}
