package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/policlinic/backoffice/internal/types"
)

func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx := types.SetRequestID(c.Request.Context(), requestID)
	c.Request = c.Request.WithContext(ctx)

	c.Header(types.HeaderRequestID, requestID)
	c.Next()
}

// UserMiddleware puts the acting staff member from the X-User-ID header on
// the request context. Handlers fall back to it when a request body does not
// name the user explicitly.
func UserMiddleware(c *gin.Context) {
	if userID := strings.TrimSpace(c.GetHeader(types.HeaderUserID)); userID != "" {
		c.Request = c.Request.WithContext(types.SetUserID(c.Request.Context(), userID))
	}
	c.Next()
}
