package middleware

import (
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/types"
)

// SentryMiddleware traces each request and recovers panics into sentry events
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryScopeMiddleware tags the request hub with the request and acting user
// ids. It must run after RequestIDMiddleware and UserMiddleware.
func SentryScopeMiddleware(c *gin.Context) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		ctx := c.Request.Context()
		hub.Scope().SetTag("request_id", types.GetRequestID(ctx))
		if userID := types.GetUserID(ctx); userID != "" {
			hub.Scope().SetUser(sentry.User{ID: userID})
		}
	}
	c.Next()
}
