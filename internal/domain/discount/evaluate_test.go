package discount

import (
	"testing"
	"time"

	"github.com/emberwick/storefront/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		discount     *Discount
		subtotal     decimal.Decimal
		wantValid    bool
		wantReason   string
		wantMessage  string
		wantDiscount decimal.Decimal
	}{
		{
			name:         "percentage",
			discount:     &Discount{Code: "SAVE10", Type: types.DiscountTypePercentage, Value: decimal.NewFromInt(10), Active: true},
			subtotal:     decimal.NewFromInt(50),
			wantValid:    true,
			wantMessage:  "10% off your order!",
			wantDiscount: decimal.NewFromInt(5),
		},
		{
			name:         "fixed clamped to subtotal",
			discount:     &Discount{Code: "FLAT5", Type: types.DiscountTypeFixed, Value: decimal.NewFromInt(5), Active: true},
			subtotal:     decimal.NewFromInt(3),
			wantValid:    true,
			wantMessage:  "$5.00 off your order!",
			wantDiscount: decimal.NewFromInt(3),
		},
		{
			name:         "fixed below subtotal",
			discount:     &Discount{Code: "FLAT5", Type: types.DiscountTypeFixed, Value: decimal.NewFromInt(5), Active: true},
			subtotal:     decimal.NewFromInt(20),
			wantValid:    true,
			wantMessage:  "$5.00 off your order!",
			wantDiscount: decimal.NewFromInt(5),
		},
		{
			name:         "free shipping passes value through",
			discount:     &Discount{Code: "SHIPFREE", Type: types.DiscountTypeFreeShipping, Value: decimal.NewFromFloat(7.5), Active: true},
			subtotal:     decimal.NewFromInt(20),
			wantValid:    true,
			wantMessage:  MessageFreeShipping,
			wantDiscount: decimal.NewFromFloat(7.5),
		},
		{
			name:         "percentage above 100 is clamped",
			discount:     &Discount{Code: "ALL", Type: types.DiscountTypePercentage, Value: decimal.NewFromInt(150), Active: true},
			subtotal:     decimal.NewFromInt(40),
			wantValid:    true,
			wantMessage:  "100% off your order!",
			wantDiscount: decimal.NewFromInt(40),
		},
		{
			name:       "inactive",
			discount:   &Discount{Code: "OLD", Type: types.DiscountTypeFixed, Value: decimal.NewFromInt(5), Active: false},
			subtotal:   decimal.NewFromInt(20),
			wantReason: MessageInvalidCode,
		},
		{
			name:       "missing",
			discount:   nil,
			subtotal:   decimal.NewFromInt(20),
			wantReason: MessageInvalidCode,
		},
		{
			name: "max uses reached wins over other failures",
			discount: &Discount{
				Code: "CAPPED", Type: types.DiscountTypePercentage, Value: decimal.NewFromInt(10), Active: true,
				MaxUses: lo.ToPtr(100), Uses: 100,
				EndsAt:      lo.ToPtr(now.Add(-time.Hour)),
				MinPurchase: decimal.NewNullDecimal(decimal.NewFromInt(1000)),
			},
			subtotal:   decimal.NewFromInt(20),
			wantReason: MessageMaxUsesReached,
		},
		{
			name:       "not yet active",
			discount:   &Discount{Code: "SOON", Type: types.DiscountTypeFixed, Value: decimal.NewFromInt(5), Active: true, StartsAt: lo.ToPtr(now.Add(time.Second))},
			subtotal:   decimal.NewFromInt(20),
			wantReason: MessageNotYetActive,
		},
		{
			name:       "expired",
			discount:   &Discount{Code: "GONE", Type: types.DiscountTypeFixed, Value: decimal.NewFromInt(5), Active: true, EndsAt: lo.ToPtr(now.Add(-time.Second))},
			subtotal:   decimal.NewFromInt(20),
			wantReason: MessageExpired,
		},
		{
			name: "below minimum purchase",
			discount: &Discount{
				Code: "BIG", Type: types.DiscountTypeFixed, Value: decimal.NewFromInt(5), Active: true,
				MinPurchase: decimal.NewNullDecimal(decimal.NewFromInt(25)),
			},
			subtotal:   decimal.NewFromFloat(24.99),
			wantReason: "Minimum purchase of $25.00 required",
		},
		{
			name: "exactly minimum purchase",
			discount: &Discount{
				Code: "BIG", Type: types.DiscountTypeFixed, Value: decimal.NewFromInt(5), Active: true,
				MinPurchase: decimal.NewNullDecimal(decimal.NewFromInt(25)),
			},
			subtotal:     decimal.NewFromInt(25),
			wantValid:    true,
			wantMessage:  "$5.00 off your order!",
			wantDiscount: decimal.NewFromInt(5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.discount.Evaluate(tt.subtotal, now)
			assert.Equal(t, tt.wantValid, got.Valid)
			if !tt.wantValid {
				assert.Equal(t, tt.wantReason, got.Reason)
				return
			}
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.True(t, tt.wantDiscount.Equal(got.DiscountValue), "discount %s != %s", got.DiscountValue, tt.wantDiscount)
		})
	}
}

func TestEvaluate_StartsAtBoundary(t *testing.T) {
	startsAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	d := &Discount{Code: "LAUNCH", Type: types.DiscountTypePercentage, Value: decimal.NewFromInt(20), Active: true, StartsAt: &startsAt}

	before := d.Evaluate(decimal.NewFromInt(10), startsAt.Add(-time.Nanosecond))
	assert.False(t, before.Valid)
	assert.Equal(t, MessageNotYetActive, before.Reason)

	at := d.Evaluate(decimal.NewFromInt(10), startsAt)
	assert.True(t, at.Valid)

	after := d.Evaluate(decimal.NewFromInt(10), startsAt.Add(time.Minute))
	assert.True(t, after.Valid)
}

func TestEvaluate_EndsAtBoundaryIsInclusive(t *testing.T) {
	endsAt := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	d := &Discount{Code: "MARCH", Type: types.DiscountTypeFixed, Value: decimal.NewFromInt(2), Active: true, EndsAt: &endsAt}

	assert.True(t, d.Evaluate(decimal.NewFromInt(10), endsAt).Valid)
	assert.False(t, d.Evaluate(decimal.NewFromInt(10), endsAt.Add(time.Nanosecond)).Valid)
}

func TestEvaluate_PercentageBounds(t *testing.T) {
	now := time.Now()
	subtotals := []string{"0", "0.01", "3.33", "50", "199.99", "10000"}
	percents := []int64{0, 1, 15, 33, 50, 99, 100}

	for _, s := range subtotals {
		subtotal := decimal.RequireFromString(s)
		for _, p := range percents {
			d := &Discount{Code: "P", Type: types.DiscountTypePercentage, Value: decimal.NewFromInt(p), Active: true}
			got := d.Evaluate(subtotal, now)
			assert.True(t, got.Valid)
			assert.True(t, got.DiscountValue.Equal(subtotal.Mul(decimal.NewFromInt(p)).Div(decimal.NewFromInt(100))))
			assert.False(t, got.DiscountValue.IsNegative())
			assert.True(t, got.DiscountValue.LessThanOrEqual(subtotal))
		}
	}
}

func TestEvaluate_FixedNeverExceedsSubtotal(t *testing.T) {
	now := time.Now()
	for _, v := range []string{"0", "1", "4.99", "5", "25", "1000"} {
		for _, s := range []string{"0", "1", "5", "12.50"} {
			value, subtotal := decimal.RequireFromString(v), decimal.RequireFromString(s)
			d := &Discount{Code: "F", Type: types.DiscountTypeFixed, Value: value, Active: true}
			got := d.Evaluate(subtotal, now)
			assert.True(t, got.DiscountValue.Equal(decimal.Min(value, subtotal)))
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
	assert.Equal(t, "", NormalizeCode("   "))
}
