package http

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// otpLimiter throttles OTP send endpoints per client IP so a scripted caller
// cannot flood the provider's email channel. Stale entries are pruned
// opportunistically during lookups; no background goroutine runs.
type otpLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	maxIdle  time.Duration
	lastSeen time.Time
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// newOtpLimiter allows `perMinute` sends per minute with a small burst.
func newOtpLimiter(perMinute int) *otpLimiter {
	return &otpLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		maxIdle:  10 * time.Minute,
		lastSeen: time.Now(),
	}
}

func (l *otpLimiter) allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSeen) > l.maxIdle {
		l.prune(now)
	}
	l.lastSeen = now

	entry, ok := l.limiters[clientIP]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[clientIP] = entry
	}
	entry.lastAccess = now
	return entry.limiter.Allow()
}

func (l *otpLimiter) prune(now time.Time) {
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastAccess) > l.maxIdle {
			delete(l.limiters, ip)
		}
	}
}

// middleware rejects over-limit requests with 429.
func (l *otpLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(r.RemoteAddr) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "too many verification requests, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
