package types

import (
	"fmt"

	"github.com/samber/lo"
)

// PaymentStatus is the payment side of an order's lifecycle
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	allowed := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusPaid,
		PaymentStatusFailed,
		PaymentStatusRefunded,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid payment status: %s", s)
	}
	return nil
}

// OrderStatus is the fulfilment side of an order's lifecycle
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

func (s OrderStatus) String() string {
	return string(s)
}

// OrderFilter narrows admin order listings
type OrderFilter struct {
	PaymentStatus *PaymentStatus `form:"payment_status" json:"payment_status,omitempty"`
	Limit         int            `form:"limit,default=50" json:"limit"`
	Offset        int            `form:"offset,default=0" json:"offset"`
}

const (
	FILTER_DEFAULT_LIMIT = 50
	FILTER_MAX_LIMIT     = 500
)

// Normalize applies defaults and caps to the filter
func (f *OrderFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = FILTER_DEFAULT_LIMIT
	}
	if f.Limit > FILTER_MAX_LIMIT {
		f.Limit = FILTER_MAX_LIMIT
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

func (f *OrderFilter) Validate() error {
	if f.PaymentStatus != nil {
		return f.PaymentStatus.Validate()
	}
	return nil
}
