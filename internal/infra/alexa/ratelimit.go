package alexa

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter allows up to rate requests per client within each fixed window.
// Clients are keyed by peer address unless proxy headers are trusted.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	rate      int
	period    time.Duration
	lastSweep time.Time
	now       func() time.Time

	trustProxyHeaders bool
}

type window struct {
	remaining int
	start     time.Time
}

func NewRateLimiter(rate int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		rate:    rate,
		period:  period,
		now:     time.Now,
	}
}

// Allow consumes one request for client and reports whether it is within the limit.
func (rl *RateLimiter) Allow(client string) bool {
	if rl.rate <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[client]
	if !ok || now.Sub(w.start) > rl.period {
		if now.Sub(rl.lastSweep) > rl.period {
			rl.sweep(now)
			rl.lastSweep = now
		}
		rl.windows[client] = &window{remaining: rl.rate - 1, start: now}
		return true
	}

	if w.remaining > 0 {
		w.remaining--
		return true
	}
	return false
}

// TrustProxyHeaders keys clients on X-Forwarded-For / X-Real-IP. Enable only
// behind a proxy that overwrites them.
func (rl *RateLimiter) TrustProxyHeaders(trust bool) *RateLimiter {
	rl.trustProxyHeaders = trust
	return rl
}

// sweep drops expired windows, at most once per period.
func (rl *RateLimiter) sweep(now time.Time) {
	for client, w := range rl.windows {
		if now.Sub(w.start) > rl.period {
			delete(rl.windows, client)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r, rl.trustProxyHeaders)) {
			rejectedTotal.WithLabelValues("rate_limited").Inc()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// clientIP returns the peer address. With trustProxy it prefers the first
// X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			return strings.TrimSpace(first)
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return realIP
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
