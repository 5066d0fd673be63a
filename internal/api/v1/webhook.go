package v1

import (
	"io"
	"net/http"

	"github.com/emberwick/storefront/internal/api/dto"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/service"
	"github.com/emberwick/storefront/internal/types"
	"github.com/gin-gonic/gin"
)

// maxWebhookBodyBytes matches the largest event Stripe delivers
const maxWebhookBodyBytes = 65536

type WebhookHandler struct {
	webhookService service.WebhookService
	logger         *logger.Logger
}

func NewWebhookHandler(webhookService service.WebhookService, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// HandlePaymentWebhook verifies and applies a Stripe event. The body must be
// read raw, any re-encoding breaks the signature.
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Errorw("failed to read webhook body", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader(types.HeaderStripeSignature)

	if err := h.webhookService.HandlePaymentWebhook(c.Request.Context(), body, signature); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.WebhookAckResponse{Received: true})
}
