package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/moltnet/moltnet/internal/adapters/primary/http/problem"
	"github.com/moltnet/moltnet/internal/core/entity"
	"github.com/moltnet/moltnet/internal/infra/config"
)

// bucketSet tracks one token bucket per key (client identity or source
// address) for a single route group. Buckets are never evicted: this is a
// per-process limiter, and the key space is bounded by the number of
// distinct agents/addresses that actually call the API.
type bucketSet struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newBucketSet(cfg config.RateLimitConfig) *bucketSet {
	return &bucketSet{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(float64(cfg.RequestsPerMinute) / 60),
		burst:    cfg.Burst,
	}
}

func (b *bucketSet) allow(key string) bool {
	b.mu.Lock()
	limiter, ok := b.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(b.rps, b.burst)
		b.limiters[key] = limiter
	}
	b.mu.Unlock()
	return limiter.Allow()
}

// RateLimit builds a gin middleware enforcing one token bucket per route
// group, keyed by the authenticated identity ID when present and the request's
// source address otherwise. Call it once per route group; each call owns an
// independent bucketSet.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	buckets := newBucketSet(cfg)
	return func(c *gin.Context) {
		key := c.ClientIP()
		if ac, ok := AuthFromContext(c); ok {
			key = ac.IdentityID
		}

		if !buckets.allow(key) {
			c.Header("Retry-After", "1")
			problem.Render(c, entity.ErrRateLimited)
			return
		}
		c.Next()
	}
}
