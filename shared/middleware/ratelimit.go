package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/colony-rent-manager/shared/utils"
	"golang.org/x/time/rate"
)

type keyLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per caller
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*keyLimiter
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	stop    chan struct{}
}

// NewRateLimiter creates a limiter allowing perSec requests with the given burst.
// Buckets idle for longer than ttl are dropped by Run.
func NewRateLimiter(perSec float64, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*keyLimiter),
		limit:   rate.Limit(perSec),
		burst:   burst,
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if kl, ok := rl.buckets[key]; ok {
		kl.lastSeen = time.Now()
		return kl.lim
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	rl.buckets[key] = &keyLimiter{lim: lim, lastSeen: time.Now()}
	return lim
}

// Run evicts idle buckets until Stop is called
func (rl *RateLimiter) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evict(time.Now())
		}
	}
}

func (rl *RateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, v := range rl.buckets {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.buckets, k)
		}
	}
}

// Stop ends Run
func (rl *RateLimiter) Stop() {
	select {
	case <-rl.stop:
	default:
		close(rl.stop)
	}
}

// Middleware limits each authenticated user, or client IP before auth, per route
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetString("user_id")
		if caller == "" {
			caller = c.ClientIP()
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		if !rl.get(caller + "|" + route).Allow() {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
