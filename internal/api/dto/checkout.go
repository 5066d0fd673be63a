package dto

import (
	"strings"

	"github.com/emberwick/storefront/internal/domain/checkout"
	"github.com/emberwick/storefront/internal/domain/discount"
	"github.com/emberwick/storefront/internal/domain/order"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/types"
	"github.com/emberwick/storefront/internal/validator"
	"github.com/shopspring/decimal"
)

type ValidateDiscountRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal" validate:"gte=0"`
}

func (r *ValidateDiscountRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return ierr.NewError("discount code is empty").
			WithHint(discount.MessageCodeRequired).
			Mark(ierr.ErrValidation)
	}
	return validator.ValidateRequest(r)
}

// ValidateDiscountResponse is returned for valid and invalid codes alike.
// Only Valid and Error are set when the code cannot be applied.
type ValidateDiscountResponse struct {
	Valid         bool               `json:"valid"`
	Code          string             `json:"code,omitempty"`
	DiscountType  types.DiscountType `json:"discountType,omitempty"`
	Value         *decimal.Decimal   `json:"value,omitempty"`
	DiscountValue *decimal.Decimal   `json:"discountValue,omitempty"`
	Message       string             `json:"message,omitempty"`
	Error         string             `json:"error,omitempty"`
}

func NewValidateDiscountResponse(e discount.Evaluation) *ValidateDiscountResponse {
	if !e.Valid {
		return &ValidateDiscountResponse{Valid: false, Error: e.Reason}
	}
	value := e.Value
	discountValue := e.DiscountValue
	return &ValidateDiscountResponse{
		Valid:         true,
		Code:          e.Code,
		DiscountType:  e.Type,
		Value:         &value,
		DiscountValue: &discountValue,
		Message:       e.Message,
	}
}

// ShippingAddress is the address as the storefront sends it
type ShippingAddress struct {
	Name       string `json:"name,omitempty" validate:"omitempty,max=255"`
	Line1      string `json:"line1,omitempty" validate:"omitempty,max=255"`
	Line2      string `json:"line2,omitempty" validate:"omitempty,max=255"`
	City       string `json:"city,omitempty" validate:"omitempty,max=100"`
	State      string `json:"state,omitempty" validate:"omitempty,max=100"`
	PostalCode string `json:"postalCode,omitempty" validate:"omitempty,max=20"`
	Country    string `json:"country,omitempty" validate:"omitempty,len=2"`
	Phone      string `json:"phone,omitempty" validate:"omitempty,max=40"`
}

func (a ShippingAddress) ToAddress() order.Address {
	return order.Address{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    strings.ToUpper(a.Country),
		Phone:      a.Phone,
	}
}

type CreatePaymentIntentRequest struct {
	Items           []checkout.LineItem `json:"items"`
	ShippingAddress ShippingAddress     `json:"shippingAddress"`
	ShippingCost    decimal.Decimal     `json:"shippingCost" validate:"gte=0"`
	DiscountCode    string              `json:"discountCode,omitempty"`
	DiscountAmount  decimal.Decimal     `json:"discountAmount,omitempty" validate:"gte=0"`
	CustomerEmail   string              `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CustomerName    string              `json:"customerName,omitempty" validate:"omitempty,max=255"`
}

func (r *CreatePaymentIntentRequest) Validate() error {
	if len(r.Items) == 0 {
		return ierr.NewError("no items in cart").
			WithHint("No items in cart").
			Mark(ierr.ErrValidation)
	}

	for i, item := range r.Items {
		if item.Quantity < 1 {
			return ierr.NewError("invalid item quantity").
				WithHint("Item quantity must be at least 1").
				WithReportableDetails(map[string]any{
					"item":       i,
					"product_id": item.ProductID,
				}).
				Mark(ierr.ErrValidation)
		}
		if item.Price.IsNegative() {
			return ierr.NewError("invalid item price").
				WithHint("Item price cannot be negative").
				WithReportableDetails(map[string]any{
					"item":       i,
					"product_id": item.ProductID,
				}).
				Mark(ierr.ErrValidation)
		}
	}

	return validator.ValidateRequest(r)
}

// HasDiscountCode reports whether the client named a code
func (r *CreatePaymentIntentRequest) HasDiscountCode() bool {
	return strings.TrimSpace(r.DiscountCode) != ""
}

type CreatePaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	// Amount is in cents
	Amount  int64  `json:"amount"`
	OrderID string `json:"orderId,omitempty"`
}

// WebhookAckResponse acknowledges a webhook delivery
type WebhookAckResponse struct {
	Received bool `json:"received"`
}
