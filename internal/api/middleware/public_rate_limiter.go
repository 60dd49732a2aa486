package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/pkg/metrics"
)

// idleLimiterTTL is how long an IP's bucket is kept after its last request.
const idleLimiterTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PublicRateLimiter limits the unauthenticated KYC form per client IP.
type PublicRateLimiter struct {
	visitors  map[string]*visitor
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewPublicRateLimiter allows requestsPerMinute per IP with the given burst.
func NewPublicRateLimiter(requestsPerMinute, burst int) *PublicRateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	if burst <= 0 {
		burst = requestsPerMinute
	}
	return &PublicRateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
		now:      time.Now,
	}
}

func (pl *PublicRateLimiter) allow(key string) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	now := pl.now()
	if now.Sub(pl.lastSweep) > idleLimiterTTL {
		for k, v := range pl.visitors {
			if now.Sub(v.lastSeen) > idleLimiterTTL {
				delete(pl.visitors, k)
			}
		}
		pl.lastSweep = now
	}

	v, ok := pl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(pl.rate, pl.burst)}
		pl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Limit returns middleware that rate limits by IP
func (pl *PublicRateLimiter) Limit() gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(1 / float64(pl.rate))))
	return func(c *gin.Context) {
		if !pl.allow(c.ClientIP()) {
			metrics.RateLimitHitsTotal.WithLabelValues("public_ip", c.FullPath()).Inc()
			c.Header("Retry-After", retryAfter)
			common.RespondError(c, http.StatusTooManyRequests, "RATE_LIMITED",
				"Too many requests. Please try again later.", "عدد كبير جداً من الطلبات، يرجى المحاولة لاحقاً")
			return
		}
		c.Next()
	}
}
