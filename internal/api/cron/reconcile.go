package cron

import (
	"net/http"
	"time"

	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/service"
	"github.com/gin-gonic/gin"
)

type ReconcileCronHandler struct {
	logger           *logger.Logger
	reconcileService service.ReconcileService
}

func NewReconcileCronHandler(logger *logger.Logger, reconcileService service.ReconcileService) *ReconcileCronHandler {
	return &ReconcileCronHandler{
		logger:           logger,
		reconcileService: reconcileService,
	}
}

// SweepStalePending runs one sweep of pending orders on demand, for
// deployments that schedule the sweep externally instead of running the
// in-process worker
func (h *ReconcileCronHandler) SweepStalePending(c *gin.Context) {
	h.logger.Infow("starting stale order sweep", "started_at", time.Now().UTC().Format(time.RFC3339))

	result, err := h.reconcileService.SweepStalePending(c.Request.Context())
	if err != nil {
		h.logger.Errorw("stale order sweep failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
