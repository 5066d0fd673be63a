package dto

import (
	"github.com/emberwick/storefront/internal/domain/order"
	"github.com/emberwick/storefront/internal/types"
)

type OrderResponse struct {
	*order.Order
}

type ListOrdersResponse = types.ListResponse[*OrderResponse]

func NewOrderResponse(o *order.Order) *OrderResponse {
	return &OrderResponse{Order: o}
}
