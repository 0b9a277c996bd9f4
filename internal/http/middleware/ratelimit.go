package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const idleEvictionWindow = 5 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

func newIPLimiter(rpm int) *ipLimiter {
	burst := rpm / 10
	if burst < 5 {
		burst = 5
	}
	return &ipLimiter{
		limit:   rate.Limit(float64(rpm) / 60.0),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.clients[ip]; ok {
		entry.lastSeen = now
		return entry.limiter.Allow()
	}

	entry := &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.clients[ip] = entry
	l.evictIdleLocked(now)
	return entry.limiter.Allow()
}

// evictIdleLocked drops clients idle past the eviction window so the map
// does not grow with every IP ever seen.
func (l *ipLimiter) evictIdleLocked(now time.Time) {
	for ip, entry := range l.clients {
		if now.Sub(entry.lastSeen) > idleEvictionWindow {
			delete(l.clients, ip)
		}
	}
}

// RateLimit applies a per-client-IP token bucket sized from requests per
// minute. Limiter state is in-process; each instance enforces its own share.
func RateLimit(rpm int) gin.HandlerFunc {
	if rpm <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newIPLimiter(rpm)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate_limited",
				"error_description": "Too many requests, slow down.",
			})
			return
		}
		c.Next()
	}
}
