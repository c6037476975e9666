package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/policlinic/backoffice/internal/types"
)

// CORSMiddleware lets the back office web client call the API from another origin
func CORSMiddleware(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, "+types.HeaderRequestID+", "+types.HeaderUserID)
	h.Set("Access-Control-Expose-Headers", types.HeaderRequestID)
	h.Set("Access-Control-Max-Age", "86400")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
