package discount

import (
	"strings"
	"time"

	"github.com/emberwick/storefront/internal/types"
	"github.com/shopspring/decimal"
)

// Discount is a promotional code as stored in the discount_codes table
type Discount struct {
	ID          string              `json:"id" db:"id"`
	Code        string              `json:"code" db:"code"`
	Type        types.DiscountType  `json:"type" db:"type"`
	Value       decimal.Decimal     `json:"value" db:"value"`
	Active      bool                `json:"active" db:"active"`
	MaxUses     *int                `json:"max_uses,omitempty" db:"max_uses"`
	Uses        int                 `json:"uses" db:"uses"`
	MinPurchase decimal.NullDecimal `json:"min_purchase,omitempty" db:"min_purchase"`
	StartsAt    *time.Time          `json:"starts_at,omitempty" db:"starts_at"`
	EndsAt      *time.Time          `json:"ends_at,omitempty" db:"ends_at"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

// NormalizeCode trims and upper-cases a code. Codes are stored upper-case so
// lookups are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsExhausted reports whether the code has hit its usage cap
func (d *Discount) IsExhausted() bool {
	return d.MaxUses != nil && d.Uses >= *d.MaxUses
}
