package v1

import (
	"net/http"

	"github.com/emberwick/storefront/internal/api/dto"
	"github.com/emberwick/storefront/internal/domain/discount"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/service"
	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	discountService service.DiscountService
	logger          *logger.Logger
}

func NewCheckoutHandler(
	checkoutService service.CheckoutService,
	discountService service.DiscountService,
	logger *logger.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		discountService: discountService,
		logger:          logger,
	}
}

// ValidateDiscount answers with the evaluation for valid and invalid codes
// alike. A request without a code is a 400 carrying the same body shape.
func (h *CheckoutHandler) ValidateDiscount(c *gin.Context) {
	var req dto.ValidateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidateDiscountResponse{
			Valid: false,
			Error: "Invalid request",
		})
		return
	}

	resp, err := h.discountService.ValidateDiscount(c.Request.Context(), &req)
	if err != nil {
		if ierr.IsValidation(err) {
			c.JSON(http.StatusBadRequest, dto.ValidateDiscountResponse{
				Valid: false,
				Error: ierr.HintFromErr(err, discount.MessageCodeRequired),
			})
			return
		}
		h.logger.Errorw("failed to validate discount code", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreatePaymentIntent refuses the request before reading the body when the
// processor is not configured
func (h *CheckoutHandler) CreatePaymentIntent(c *gin.Context) {
	if err := h.checkoutService.CheckAvailable(); err != nil {
		c.Error(err)
		return
	}

	var req dto.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Please check the request payload").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.checkoutService.CreatePaymentIntent(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
