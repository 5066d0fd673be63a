package types

import (
	"fmt"

	"github.com/samber/lo"
)

// DiscountType is how a discount code reduces an order
type DiscountType string

const (
	DiscountTypePercentage   DiscountType = "percentage"
	DiscountTypeFixed        DiscountType = "fixed"
	DiscountTypeFreeShipping DiscountType = "free_shipping"
)

func (t DiscountType) String() string {
	return string(t)
}

func (t DiscountType) Validate() error {
	allowed := []DiscountType{
		DiscountTypePercentage,
		DiscountTypeFixed,
		DiscountTypeFreeShipping,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid discount type: %s", t)
	}
	return nil
}
