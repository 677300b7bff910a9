// Package sizing converts a dollar budget into a fractional order quantity.
package sizing

import "github.com/shopspring/decimal"

// Shares returns dollars/price rounded to four decimal places, the
// brokerage's fractional-share precision. A non-positive price or a negative
// result yields zero; sizing never errors.
func Shares(price, dollars float64) decimal.Decimal {
	if price <= 0 {
		return decimal.Zero
	}
	qty := decimal.NewFromFloat(dollars).Div(decimal.NewFromFloat(price)).Round(4)
	if qty.IsNegative() {
		return decimal.Zero
	}
	return qty
}
