package v1

import (
	"net/http"

	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/service"
	"github.com/emberwick/storefront/internal/types"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService service.OrderService
	logger       *logger.Logger
}

func NewOrderHandler(orderService service.OrderService, logger *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("order ID is required").
			WithHint("Order ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	var filter types.OrderFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.orderService.ListOrders(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
