package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	ierr "github.com/emberwick/storefront/internal/errors"
	"github.com/emberwick/storefront/internal/logger"
	"github.com/emberwick/storefront/internal/sentry"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error a handler attached to the context.
// Server side failures are logged in full and reported to Sentry; clients
// only ever see the hint.
func ErrorHandler(log *logger.Logger, sentrySvc *sentry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)

		if status >= http.StatusInternalServerError {
			log.Errorw("request failed",
				"error", err,
				"method", c.Request.Method,
				"path", c.FullPath(),
				"status", status,
			)
			sentrySvc.CaptureException(c.Request.Context(), err)
		}

		if c.Writer.Written() {
			return
		}

		c.JSON(status, ierr.ErrorResponse{
			Success: false,
			Error: ierr.ErrorDetail{
				Display: ierr.HintFromErr(err, "An unexpected error occurred"),
				Details: getSafeDetails(err),
			},
		})
	}
}

func getSafeDetails(err error) map[string]any {
	details := make(map[string]any)

	allSafeDetails := errors.GetAllSafeDetails(err)
	for _, sdp := range allSafeDetails {
		if len(sdp.SafeDetails) == 0 {
			continue
		}

		for _, payload := range sdp.SafeDetails {
			if len(payload) > 9 && strings.HasPrefix(payload, "__json__:") {
				jsonStr := payload[9:]
				var jsonDetails map[string]any
				if err := json.Unmarshal([]byte(jsonStr), &jsonDetails); err == nil {
					for k, v := range jsonDetails {
						details[k] = v
					}
				}
			}
		}
	}

	return details
}
