// ABOUTME: HTTP middleware - permissive CORS and per-client-IP rate limiting
// ABOUTME: Rate limiting uses token buckets keyed by remote address

package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// withCORS applies a permissive CORS policy and short-circuits preflight
// requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const (
	// limiterTTL is how long an idle client keeps its token bucket.
	limiterTTL = 10 * time.Minute
	// limiterSweepEvery bounds how often the idle-entry sweep runs.
	limiterSweepEvery = time.Minute
)

// ipLimiter enforces a per-minute request budget per client IP using token
// buckets. A zero or negative budget disables limiting. Buckets idle longer
// than limiterTTL are swept out so the client map stays bounded by the set of
// recently active IPs.
type ipLimiter struct {
	mu        sync.Mutex
	clients   map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	disabled  bool
	lastSweep time.Time
	now       func() time.Time
}

// limiterEntry pairs a token bucket with its last use.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		return &ipLimiter{disabled: true}
	}
	return &ipLimiter{
		clients: make(map[string]*limiterEntry),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		now:     time.Now,
	}
}

// wrap returns a handler that rejects requests over the budget with 429.
func (l *ipLimiter) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if l.disabled {
			next(w, r)
			return
		}
		if !l.allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}
		next(w, r)
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	l.sweepLocked(now)
	entry, ok := l.clients[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	return entry.limiter.Allow()
}

// sweepLocked drops entries idle longer than limiterTTL, at most once per
// limiterSweepEvery. Caller must hold l.mu.
func (l *ipLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < limiterSweepEvery {
		return
	}
	l.lastSweep = now

	for ip, entry := range l.clients {
		if now.Sub(entry.lastSeen) > limiterTTL {
			delete(l.clients, ip)
		}
	}
}

// clientIP extracts the client address, falling back to the raw RemoteAddr
// when it has no port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
