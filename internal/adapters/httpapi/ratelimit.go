package httpapi

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/warikan-app/warikan-api/internal/platform/logger"
)

// RateLimitOptions configures per-caller token buckets. RPS <= 0 disables limiting.
type RateLimitOptions struct {
	RPS   float64
	Burst int
	// Idle limiters are dropped after this long. Defaults to 10m.
	IdleTTL time.Duration
}

type rateLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
}

func newRateLimiter(opts RateLimitOptions) *rateLimiter {
	ttl := opts.IdleTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = int(math.Ceil(opts.RPS))
	}
	return &rateLimiter{
		limiters: cache.New(ttl, ttl/2),
		limit:    rate.Limit(opts.RPS),
		burst:    burst,
	}
}

func (l *rateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	// Re-set to push back expiry while the caller is active.
	l.limiters.SetDefault(key, lim)
	return lim.(*rate.Limiter)
}

// NewRateLimitMiddleware limits requests per authenticated subject, or per
// client address for unauthenticated callers. It must run after auth.
func NewRateLimitMiddleware(opts RateLimitOptions) func(http.Handler) http.Handler {
	if opts.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := newRateLimiter(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)
			res := rl.get(key).Reserve()
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				logger.From(r.Context()).Debug("rate limited", logger.Duration(delay))
				writeError(w, r, http.StatusTooManyRequests, codeRateLimited, "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if c, ok := AuthStateFromContext(r.Context()).Claims(); ok {
		return "sub:" + string(c.Subject)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
