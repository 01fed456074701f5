package http

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// loginRateLimiter throttles login attempts per client IP. Entries idle for
// longer than the cleanup window are evicted by a background loop.
type loginRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*ipLimiter
	stopCh   chan struct{}
}

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

const limiterIdleTTL = 10 * time.Minute

// newLoginRateLimiter creates a limiter allowing perMinute requests with the
// given burst, and starts its cleanup loop.
func newLoginRateLimiter(perMinute, burst int) *loginRateLimiter {
	rl := &loginRateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		limiters: make(map[string]*ipLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop terminates the cleanup loop.
func (rl *loginRateLimiter) Stop() {
	close(rl.stopCh)
}

// Middleware rejects over-limit requests with 429.
func (rl *loginRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(clientIP(r)) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *loginRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter.Allow()
}

func (rl *loginRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterIdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-limiterIdleTTL)
			rl.mu.Lock()
			for ip, entry := range rl.limiters {
				if entry.lastAccess.Before(cutoff) {
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
