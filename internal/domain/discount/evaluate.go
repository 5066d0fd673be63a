package discount

import (
	"fmt"
	"time"

	"github.com/emberwick/storefront/internal/types"
	"github.com/shopspring/decimal"
)

const (
	MessageCodeRequired   = "Discount code is required"
	MessageInvalidCode    = "Invalid discount code"
	MessageMaxUsesReached = "This discount code has reached its maximum uses"
	MessageNotYetActive   = "This discount code is not yet active"
	MessageExpired        = "This discount code has expired"
	MessageFreeShipping   = "Free shipping on your order!"
)

var hundred = decimal.NewFromInt(100)

// Evaluation is the outcome of checking a code against a subtotal. An invalid
// evaluation is a business result, not an error.
type Evaluation struct {
	Valid         bool
	Reason        string
	Message       string
	Code          string
	Type          types.DiscountType
	Value         decimal.Decimal
	DiscountValue decimal.Decimal
}

// Invalid builds an evaluation that rejects the code with reason
func Invalid(reason string) Evaluation {
	return Evaluation{Valid: false, Reason: reason}
}

// IsFreeShipping reports whether a valid evaluation waives shipping
func (e Evaluation) IsFreeShipping() bool {
	return e.Valid && e.Type == types.DiscountTypeFreeShipping
}

// Evaluate checks d against subtotal at instant now. Checks run in a fixed
// order so a code that fails several of them always reports the first.
// Window bounds are inclusive.
func (d *Discount) Evaluate(subtotal decimal.Decimal, now time.Time) Evaluation {
	if d == nil || !d.Active {
		return Invalid(MessageInvalidCode)
	}
	if d.IsExhausted() {
		return Invalid(MessageMaxUsesReached)
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return Invalid(MessageNotYetActive)
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return Invalid(MessageExpired)
	}
	if d.MinPurchase.Valid && subtotal.LessThan(d.MinPurchase.Decimal) {
		return Invalid(fmt.Sprintf("Minimum purchase of %s required",
			types.FormatAmount(d.MinPurchase.Decimal, types.DefaultCurrency)))
	}

	eval := Evaluation{
		Valid: true,
		Code:  d.Code,
		Type:  d.Type,
		Value: d.Value,
	}

	switch d.Type {
	case types.DiscountTypePercentage:
		pct := clamp(d.Value, decimal.Zero, hundred)
		eval.DiscountValue = subtotal.Mul(pct).Div(hundred)
		eval.Message = fmt.Sprintf("%s%% off your order!", pct.String())
	case types.DiscountTypeFixed:
		eval.DiscountValue = decimal.Min(d.Value, subtotal)
		if eval.DiscountValue.IsNegative() {
			eval.DiscountValue = decimal.Zero
		}
		eval.Message = fmt.Sprintf("%s off your order!", types.FormatAmount(d.Value, types.DefaultCurrency))
	case types.DiscountTypeFreeShipping:
		// shipping is zeroed by the checkout, the value is informational
		eval.DiscountValue = d.Value
		eval.Message = MessageFreeShipping
	default:
		return Invalid(MessageInvalidCode)
	}

	return eval
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
