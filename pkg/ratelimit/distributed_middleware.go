package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/infrastructure/config"
	"github.com/trous-aml/trous_service/pkg/i18n"
	"github.com/trous-aml/trous_service/pkg/metrics"
)

// UserIDKey is the gin context key the authentication middleware stores the
// caller's user id under.
const UserIDKey = "user_id"

type DistributedRateLimiter struct {
	limiter *TieredLimiter
	config  config.RateLimitConfig
	logger  *zap.Logger
}

func NewDistributedRateLimiter(limiter *TieredLimiter, cfg config.RateLimitConfig, logger *zap.Logger) *DistributedRateLimiter {
	return &DistributedRateLimiter{limiter: limiter, config: cfg, logger: logger}
}

// LimitsFromConfig maps the configuration to limiter budgets.
func LimitsFromConfig(cfg config.RateLimitConfig) Limits {
	return Limits{Window: cfg.Window(), IPLimit: cfg.IPLimit, UserLimit: cfg.UserLimit}
}

// Middleware limits each request by client IP and authenticated user. When
// the counter store fails the request passes if FailOpen is set and is
// rejected with 503 otherwise.
func (rl *DistributedRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.config.Enabled || rl.limiter == nil {
			c.Next()
			return
		}

		ip := c.ClientIP()
		userID := c.GetString(UserIDKey)
		route := c.FullPath()

		result, err := rl.limiter.Check(c.Request.Context(), ip, userID)
		if err != nil {
			rl.logger.Error("Rate limit check failed",
				zap.Error(err),
				zap.String("ip", ip),
				zap.String("route", route))
			if rl.config.FailOpen {
				c.Next()
				return
			}
			locale := i18n.Match(c.GetHeader("Accept-Language"))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"code":    "SERVICE_UNAVAILABLE",
				"error":   i18n.Pick(locale, "Service temporarily unavailable", "الخدمة غير متاحة مؤقتاً"),
				"message": i18n.Pick(locale, "Rate limiting is temporarily unavailable", "تحديد المعدل غير متاح مؤقتاً"),
			})
			return
		}

		if rl.config.ResponseHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		}

		if !result.Allowed {
			metrics.RateLimitHitsTotal.WithLabelValues(result.LimitedBy, route).Inc()
			rl.logger.Warn("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("user_id", userID),
				zap.String("route", route),
				zap.String("limited_by", result.LimitedBy),
				zap.Duration("retry_after", result.RetryAfter))

			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
			locale := i18n.Match(c.GetHeader("Accept-Language"))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "RATE_LIMITED",
				"error":   i18n.Pick(locale, "Too many requests", "عدد كبير جداً من الطلبات"),
				"message": i18n.Pick(locale, "Too many requests, please try again later", "عدد كبير جداً من الطلبات، يرجى المحاولة لاحقاً"),
			})
			return
		}

		c.Next()
	}
}
