package service

import (
	"context"

	"github.com/emberwick/storefront/internal/api/dto"
	"github.com/emberwick/storefront/internal/domain/order"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/types"
	"github.com/samber/lo"
)

type OrderService interface {
	GetOrder(ctx context.Context, id string) (*dto.OrderResponse, error)
	ListOrders(ctx context.Context, filter *types.OrderFilter) (*dto.ListOrdersResponse, error)
}

type orderService struct {
	ServiceParams
}

func NewOrderService(params ServiceParams) OrderService {
	return &orderService{ServiceParams: params}
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*dto.OrderResponse, error) {
	if id == "" {
		return nil, ierr.NewError("order_id is required").
			WithHint("Order ID is required").
			Mark(ierr.ErrValidation)
	}

	o, err := s.OrderRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewOrderResponse(o), nil
}

func (s *orderService) ListOrders(ctx context.Context, filter *types.OrderFilter) (*dto.ListOrdersResponse, error) {
	if filter == nil {
		filter = &types.OrderFilter{}
	}
	filter.Normalize()

	if err := filter.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid order filter").
			Mark(ierr.ErrValidation)
	}

	orders, err := s.OrderRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.OrderRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(orders, func(o *order.Order, _ int) *dto.OrderResponse {
		return dto.NewOrderResponse(o)
	})
	resp := types.NewListResponse(items, total, filter.Limit, filter.Offset)
	return &resp, nil
}
