package checkout

import (
	"github.com/shopspring/decimal"
)

// LineItem is one cart line as submitted by the client
type LineItem struct {
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId,omitempty"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
}

// LineTotal returns price times quantity
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(li.Quantity))
}

// Totals is the computed charge for a cart
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Shipping      decimal.Decimal `json:"shipping"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int64           `json:"itemCount"`
}

// Calculator computes order totals at a fixed tax rate
type Calculator struct {
	taxRate decimal.Decimal
}

// NewCalculator returns a calculator charging taxRate on the discounted subtotal
func NewCalculator(taxRate decimal.Decimal) *Calculator {
	return &Calculator{taxRate: taxRate}
}

// TaxRate returns the configured rate
func (c *Calculator) TaxRate() decimal.Decimal {
	return c.taxRate
}

// Compute totals the cart. Only the tax is rounded, to cents, half away
// from zero. Both the taxable amount and the total are clamped at zero.
func (c *Calculator) Compute(items []LineItem, shipping, discountValue decimal.Decimal) Totals {
	subtotal := decimal.Zero
	var count int64
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
		count += item.Quantity
	}

	taxable := decimal.Max(decimal.Zero, subtotal.Sub(discountValue))
	tax := taxable.Mul(c.taxRate).Round(2)

	total := subtotal.Add(shipping).Add(tax).Sub(discountValue)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:      subtotal,
		Shipping:      shipping,
		DiscountValue: discountValue,
		TaxableAmount: taxable,
		Tax:           tax,
		Total:         total,
		ItemCount:     count,
	}
}
