// Package pricing computes sale-time prices. Every place that shows or
// records a price goes through EffectiveUnitPrice so displayed and charged
// totals agree.
package pricing

import "github.com/shopspring/decimal"

// CurrencyPlaces is the number of decimal places money is kept at
const CurrencyPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
)

// EffectiveUnitPrice applies a percentage discount to price.
// The discount is clamped to [0, 100]; the result is rounded to cents and never negative.
func EffectiveUnitPrice(price, discount decimal.Decimal) decimal.Decimal {
	if price.IsNegative() {
		return decimal.Zero
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(hundred) {
		discount = hundred
	}

	factor := hundred.Sub(discount).Div(hundred)
	effective := price.Mul(factor).Round(CurrencyPlaces)
	if effective.IsNegative() {
		return decimal.Zero
	}
	return effective
}

// LineTotal multiplies a unit price by a quantity
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(CurrencyPlaces)
}

// Sum adds amounts, returning zero for an empty list
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
