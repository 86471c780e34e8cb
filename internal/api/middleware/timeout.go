package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/model"
	"github.com/gin-gonic/gin"
)

// RequestTimeout bounds the request context to d. Handlers are not
// interrupted; a handler that returns after the deadline without writing
// anything gets a 504. Zero or negative d disables the deadline.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) || c.Writer.Written() {
			return
		}
		logger.WithComponent("http").Warnf("%s %s exceeded %v", c.Request.Method, c.Request.URL.Path, d)
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, model.ErrorResponse{Error: "request timeout"})
	}
}
