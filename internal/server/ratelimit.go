package server

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/vivars7/pathproxy/internal/audit"
	pperrors "github.com/vivars7/pathproxy/internal/errors"
)

// globalRateLimiter enforces a gateway-wide request rate limit using a token bucket.
type globalRateLimiter struct {
	limiter *rate.Limiter
	metrics *audit.Metrics
}

// newGlobalRateLimiter creates a global rate limiter.
// rpm is requests per minute; internally converted to per-second.
func newGlobalRateLimiter(rpm int, metrics *audit.Metrics) *globalRateLimiter {
	perSecond := float64(rpm) / 60.0
	burst := rpm / 60
	if burst < 1 {
		burst = 1
	}
	return &globalRateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		metrics: metrics,
	}
}

// Process returns an http.Handler that enforces the global rate limit.
func (g *globalRateLimiter) Process(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.limiter.Allow() {
			if g.metrics != nil {
				g.metrics.RecordRateLimitHit("global")
			}
			w.Header().Set("Retry-After", strconv.Itoa(g.retryAfterSeconds()))
			pperrors.WriteHTTPError(w, pperrors.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// retryAfterSeconds is the wait for one token, rounded up to whole seconds.
func (g *globalRateLimiter) retryAfterSeconds() int {
	limit := float64(g.limiter.Limit())
	if limit <= 0 {
		return 60
	}
	secs := int(1/limit + 0.999)
	if secs < 1 {
		secs = 1
	}
	return secs
}
