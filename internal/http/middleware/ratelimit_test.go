package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestIPLimiterEvictsIdleClients(t *testing.T) {
	limiter := newIPLimiter(600)
	current := time.Now()
	limiter.now = func() time.Time { return current }

	require.True(t, limiter.allow("10.0.0.1"))
	require.Len(t, limiter.clients, 1)

	// A new client past the idle window sweeps the stale entry out.
	current = current.Add(idleEvictionWindow + time.Second)
	require.True(t, limiter.allow("10.0.0.2"))

	require.Len(t, limiter.clients, 1)
	_, stale := limiter.clients["10.0.0.1"]
	require.False(t, stale)
}

func TestIPLimiterKeepsActiveClients(t *testing.T) {
	limiter := newIPLimiter(600)
	current := time.Now()
	limiter.now = func() time.Time { return current }

	require.True(t, limiter.allow("10.0.0.1"))

	// Activity inside the window refreshes lastSeen, so the entry survives
	// the next sweep.
	current = current.Add(4 * time.Minute)
	require.True(t, limiter.allow("10.0.0.1"))

	current = current.Add(4 * time.Minute)
	require.True(t, limiter.allow("10.0.0.2"))
	require.Len(t, limiter.clients, 2)
}

func TestRateLimitThrottlesBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RateLimit(60))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	var statuses []int
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		engine.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	// rpm 60 gives a burst of 6; the tail of a tight loop gets throttled.
	require.Equal(t, http.StatusOK, statuses[0])
	require.Contains(t, statuses, http.StatusTooManyRequests)
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RateLimit(0))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		engine.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
