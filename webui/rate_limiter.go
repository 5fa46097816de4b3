package webui

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client IP.
//
// Each IP gets its own rate.Limiter with the configured sustained rate and
// burst. Idle entries are removed by Cleanup so the map stays bounded by
// the number of recently active clients.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter allowing requestsPerSecond sustained
// with bursts of up to burst requests per IP. A non-positive rate disables
// limiting.
//
// Example:
//
//	limiter := NewRateLimiter(5, 10) // 5 req/s per IP, burst of 10
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     limit,
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether a request from ip may proceed now. When it may not,
// the returned duration is the time until the next token.
func (r *RateLimiter) Allow(ip string) (bool, time.Duration) {
	if r.rate == rate.Inf {
		return true, 0
	}

	r.mu.Lock()
	now := r.now()
	entry, ok := r.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(r.rate, r.burst)}
		r.limiters[ip] = entry
	}
	entry.lastSeen = now
	r.mu.Unlock()

	res := entry.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		allowed, retryAfter := r.Allow(getClientIP(req))
		if !allowed {
			secs := int(math.Ceil(retryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, MsgTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// Cleanup removes limiters idle for longer than the TTL and returns how
// many were removed.
func (r *RateLimiter) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	removed := 0
	for ip, entry := range r.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(r.limiters, ip)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker runs Cleanup every interval until ctx is cancelled.
func (r *RateLimiter) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Cleanup()
			}
		}
	}()
}

// Count returns the current number of tracked IP addresses.
func (r *RateLimiter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
