package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/ledger_backend/utils"
)

// BusinessMiddleware resolves the tenant from the X-Business-Id header and
// stamps it into the request context so the tenant guard scopes every query.
// Requests without a valid tenant id never reach the handlers.
func BusinessMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := c.Request.Header.Get("X-Business-Id")
		if businessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-Business-Id header"})
			c.Abort()
			return
		}
		if _, err := uuid.Parse(businessId); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid X-Business-Id header"})
			c.Abort()
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CorrelationMiddleware propagates the caller's X-Correlation-Id, minting one
// when absent, and echoes it back on the response.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.Request.Header.Get("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}

		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Correlation-Id", correlationId)
		c.Next()
	}
}
