package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/policlinic/backoffice/internal/api/dto"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/sentry"
)

// ErrorHandler renders the last error attached to the context. Only hints
// and reportable details reach the client. Server side failures are logged
// and reported.
func ErrorHandler(log *logger.Logger, sentry *sentry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		if status >= http.StatusInternalServerError {
			log.WithContext(c.Request.Context()).Errorw("request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"error", err,
			)
			sentry.CaptureExceptionWithContext(c.Request.Context(), err)
		}

		c.JSON(status, dto.ErrorResponse{
			Success: false,
			Error: dto.ErrorDetail{
				Code:    ierr.CodeFromErr(err),
				Message: ierr.DisplayMessage(err),
				Details: ierr.ReportableDetails(err),
			},
		})
	}
}
