package limit

import (
	"net/http"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// IPRateLimiter manages rate limiters for individual client addresses. Idle limiters expire after five minutes.
type IPRateLimiter struct {
	ips *cache.Cache
	r   rate.Limit
	b   int
}

// NewIPRateLimiter creates a new IPRateLimiter with the specified rate and burst.
// r: Number of tokens per second.
// b: Maximum burst size; values below one are raised to one.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: cache.New(5*time.Minute, 10*time.Minute),
		r:   r,
		b:   max(b, 1),
	}
}

// Rate is a helper to convert float64 to rate.Limit.
func Rate(r float64) rate.Limit {
	return rate.Limit(r)
}

// GetLimiter returns the limiter for ip, creating it on first use. Concurrent first requests from one address share
// a single limiter.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	if v, found := i.ips.Get(ip); found {
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(i.r, i.b)
	if err := i.ips.Add(ip, limiter, cache.DefaultExpiration); err != nil {
		if v, found := i.ips.Get(ip); found {
			return v.(*rate.Limiter)
		}
	}

	return limiter
}

// Middleware returns a gin middleware that rate limits by the client address. /ping and /metrics are exempt.
func (i *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if exempt(ctx) {
			ctx.Next()

			return
		}

		ip := ctx.ClientIP()

		if !i.GetLimiter(ip).Allow() {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				definitions.LogKeyMsg:      "Rate limit exceeded",
				definitions.LogKeyClientIP: ip,
				"scope":                    "rate",
			})

			return
		}

		ctx.Next()
	}
}

func exempt(ctx *gin.Context) bool {
	switch ctx.FullPath() {
	case "/ping", "/metrics":
		return true
	default:
		return false
	}
}
