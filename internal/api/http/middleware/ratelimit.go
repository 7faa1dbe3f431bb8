package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dtroode/kychat-server/internal/api/http/response"
	"github.com/dtroode/kychat-server/internal/apierrors"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/metrics"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimiter applies a token bucket per client IP and evicts idle entries.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	scope  string
	logger *logger.Logger

	mu    sync.Mutex
	byKey map[string]*limiterEntry
	hits  uint64
	now   func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns nil, a pass-through limiter, when rps or burst is
// not positive.
func NewRateLimiter(scope string, rps float64, burst int, logger *logger.Logger) *RateLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &RateLimiter{
		limit:  rate.Limit(rps),
		burst:  burst,
		scope:  scope,
		logger: logger,
		byKey:  make(map[string]*limiterEntry),
		now:    time.Now,
	}
}

func (l *RateLimiter) Handle(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.allow(ip) {
			metrics.RateLimitHits.WithLabelValues(l.scope).Inc()
			l.logger.Warn("Rate limiter: request rejected",
				"scope", l.scope,
				"ip", ip,
				"path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			response.Error(w, apierrors.NewErrTooManyRequests())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(key string) bool {
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.byKey[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-limiterIdleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}

	return allowed
}

// clientIP expects chi's RealIP middleware to have normalised RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
