package transport

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/runbox-dev/runbox/pkg/api"
	"github.com/runbox-dev/runbox/pkg/observability"
)

// rateLimiter is a sliding-window rate limiter that tracks request
// counts per client address in memory. Fails open: when the client
// address cannot be determined the request is allowed.
type rateLimiter struct {
	rpm      int
	mu       sync.Mutex
	counters map[string]*counter
}

type counter struct {
	count    int
	windowAt time.Time
}

// newRateLimiter creates a limiter allowing rpm requests per client per
// minute. rpm <= 0 disables limiting.
func newRateLimiter(rpm int) *rateLimiter {
	return &rateLimiter{
		rpm:      rpm,
		counters: make(map[string]*counter),
	}
}

// allow checks if the request is within the rate limit.
func (l *rateLimiter) allow(client string) bool {
	if l.rpm <= 0 || client == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c, ok := l.counters[client]
	if !ok || now.Sub(c.windowAt) >= time.Minute {
		// New window.
		l.counters[client] = &counter{count: 1, windowAt: now}
		return true
	}

	c.count++
	return c.count <= l.rpm
}

// middleware rejects over-limit requests with 429.
func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			client = r.RemoteAddr
		}
		if !l.allow(client) {
			observability.RateLimitRejectedTotal.Inc()
			writeError(w, api.NewTooManyRequestsError("rate limit exceeded, try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
