package api

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// KeyedRateLimiter manages one token bucket per key.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type keyedLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

// maxIdleKeys is the map size above which idle buckets are swept.
const maxIdleKeys = 4096

// NewKeyedRateLimiter allows rps requests per second per key with the given
// burst. rps <= 0 disables limiting.
func NewKeyedRateLimiter(rps float64, burst int) *KeyedRateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &KeyedRateLimiter{
		limiters: make(map[string]*keyedLimiter),
		limit:    limit,
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether a request for key may proceed now.
func (k *KeyedRateLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	l, ok := k.limiters[key]
	if !ok {
		if len(k.limiters) >= maxIdleKeys {
			k.sweep(now)
		}
		l = &keyedLimiter{Limiter: rate.NewLimiter(k.limit, k.burst)}
		k.limiters[key] = l
	}
	l.lastSeen = now
	return l.AllowN(now, 1)
}

func (k *KeyedRateLimiter) sweep(now time.Time) {
	for key, l := range k.limiters {
		if now.Sub(l.lastSeen) > k.idle {
			delete(k.limiters, key)
		}
	}
}

// RateLimitByUser rejects requests with 429 once the caller's bucket is
// empty. Callers are keyed by identity, falling back to the remote address.
func RateLimitByUser(limiter *KeyedRateLimiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := string(UserFrom(r.Context()))
			if key == "" {
				key = r.RemoteAddr
			}
			if !limiter.Allow(key) {
				logger.Warn("rate limit exceeded", zap.String("key", key), zap.String("path", r.URL.Path))
				writeError(w, http.StatusTooManyRequests, "Too many requests, try again later", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
