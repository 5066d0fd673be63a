package order

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emberwick/storefront/internal/domain/checkout"
	"github.com/emberwick/storefront/internal/types"
	"github.com/shopspring/decimal"
)

// Order is a checkout that reached the payment processor
type Order struct {
	ID              string              `json:"id" db:"id"`
	OrderNumber     string              `json:"order_number" db:"order_number"`
	PaymentIntentID string              `json:"payment_intent_id" db:"payment_intent_id"`
	PaymentStatus   types.PaymentStatus `json:"payment_status" db:"payment_status"`
	Status          types.OrderStatus   `json:"status" db:"status"`
	CustomerEmail   string              `json:"customer_email" db:"customer_email"`
	CustomerName    string              `json:"customer_name" db:"customer_name"`
	ShippingAddress Address             `json:"shipping_address" db:"shipping_address"`
	Items           Items               `json:"items" db:"items"`
	Subtotal        decimal.Decimal     `json:"subtotal" db:"subtotal"`
	Shipping        decimal.Decimal     `json:"shipping" db:"shipping"`
	Discount        decimal.Decimal     `json:"discount" db:"discount"`
	DiscountCode    *string             `json:"discount_code,omitempty" db:"discount_code"`
	Tax             decimal.Decimal     `json:"tax" db:"tax"`
	Total           decimal.Decimal     `json:"total" db:"total"`
	Currency        string              `json:"currency" db:"currency"`
	PaidAt          *time.Time          `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
}

// Address is a shipping address stored as JSON
type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

func (a Address) Value() (driver.Value, error) {
	return jsonValue(a)
}

func (a *Address) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// Items is the cart snapshot stored as JSON alongside the order
type Items []checkout.LineItem

func (i Items) Value() (driver.Value, error) {
	if i == nil {
		return "[]", nil
	}
	return jsonValue(i)
}

func (i *Items) Scan(src interface{}) error {
	return scanJSON(src, i)
}

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dest)
	}
}
