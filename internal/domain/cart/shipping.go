package cart

import "github.com/shopspring/decimal"

// ShippingFee returns the flat fee, waived when the subtotal reaches the
// free-shipping threshold. The boundary is inclusive: a subtotal exactly
// equal to the threshold ships free. An empty cart (zero subtotal) carries
// no fee.
func ShippingFee(total, threshold, flat decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	if total.GreaterThanOrEqual(threshold) {
		return decimal.Zero
	}
	return flat
}
