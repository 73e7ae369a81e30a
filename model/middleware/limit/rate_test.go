package limit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

// setupRateLimitedRouter creates a gin router with the given rate limiter applied
// and a simple /test endpoint returning "ok".
func setupRateLimitedRouter(rateLimit rate.Limit, burst int) *gin.Engine {
	r := gin.New()
	limiter := NewIPRateLimiter(rateLimit, burst)

	r.Use(limiter.Middleware())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	return r
}

// serveAndRecord sends a GET request from the given remote address and returns the recorder.
func serveAndRecord(r *gin.Engine, path, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr

	r.ServeHTTP(w, req)

	return w
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Allow requests within limit", func(t *testing.T) {
		r := setupRateLimitedRouter(rate.Limit(10), 1)

		w := serveAndRecord(r, "/test", "192.168.1.1:1234")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("Block requests exceeding limit", func(t *testing.T) {
		r := setupRateLimitedRouter(rate.Limit(1), 1)

		w1 := serveAndRecord(r, "/test", "192.168.1.2:1234")
		assert.Equal(t, http.StatusOK, w1.Code)

		w2 := serveAndRecord(r, "/test", "192.168.1.2:1234")
		assert.Equal(t, http.StatusTooManyRequests, w2.Code)
		assert.Contains(t, w2.Body.String(), "Rate limit exceeded")
	})

	t.Run("Separate limits for different IPs", func(t *testing.T) {
		r := setupRateLimitedRouter(rate.Limit(1), 1)

		w1 := serveAndRecord(r, "/test", "192.168.1.3:1234")
		assert.Equal(t, http.StatusOK, w1.Code)

		w2 := serveAndRecord(r, "/test", "192.168.1.4:1234")
		assert.Equal(t, http.StatusOK, w2.Code)
	})

	t.Run("Health check is exempt", func(t *testing.T) {
		r := setupRateLimitedRouter(rate.Limit(1), 1)

		for range 5 {
			w := serveAndRecord(r, "/ping", "192.168.1.5:1234")
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}

func TestIPRateLimiter_SharedLimiterPerIP(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 0)

	var (
		wg  sync.WaitGroup
		got sync.Map
	)

	for i := range 16 {
		wg.Go(func() {
			got.Store(i, limiter.GetLimiter("198.51.100.1"))
		})
	}

	wg.Wait()

	first, _ := got.Load(0)

	got.Range(func(_, v any) bool {
		assert.Same(t, first, v)

		return true
	})
}
