package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
)

const DefaultRequestTimeout = 25 * time.Second

// TimeoutMiddleware puts a deadline on the request context. Repository and
// provider calls observe it; a handler that gives up on the deadline without
// writing gets a 504.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.RespondError(c, http.StatusGatewayTimeout, "REQUEST_TIMEOUT",
				"Request processing timeout", "انتهت مهلة معالجة الطلب")
		}
	}
}
