// Package ratelimit enforces per-client request limits in front of the
// forwarder.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	pperrors "github.com/vivars7/pathproxy/internal/errors"
)

// clientEntry holds a client's token bucket and when it was last used.
type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // UnixNano
}

// ClientLimiter gives every client address its own token bucket.
type ClientLimiter struct {
	clients  sync.Map // client IP -> *clientEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	resolver *ClientResolver
	onReject func()
	done     <-chan struct{}
	cancel   context.CancelFunc
}

// Options configures a ClientLimiter.
type Options struct {
	PerMinute int           // requests per minute per client
	Burst     int           // bucket size; values below 1 are raised to 1
	Idle      time.Duration // buckets unused this long are dropped; 0 means 5m
	Resolver  *ClientResolver
	OnReject  func() // called for every rejected request
}

// NewClientLimiter creates a limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewClientLimiter(opts Options) *ClientLimiter {
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.Idle <= 0 {
		opts.Idle = 5 * time.Minute
	}
	if opts.Resolver == nil {
		opts.Resolver = &ClientResolver{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := &ClientLimiter{
		limit:    rate.Limit(float64(opts.PerMinute) / 60.0),
		burst:    opts.Burst,
		idle:     opts.Idle,
		resolver: opts.Resolver,
		onReject: opts.OnReject,
		done:     ctx.Done(),
		cancel:   cancel,
	}
	go cl.cleanup(ctx)
	return cl
}

// Process returns an http.Handler that rejects clients over their limit
// with 429 and a Retry-After header.
func (cl *ClientLimiter) Process(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cl.Allow(cl.resolver.ClientIP(r)) {
			if cl.onReject != nil {
				cl.onReject()
			}
			w.Header().Set("Retry-After", strconv.Itoa(cl.retryAfterSeconds()))
			pperrors.WriteHTTPError(w, pperrors.ErrClientLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Allow reports whether client may make a request now, consuming a token.
func (cl *ClientLimiter) Allow(client string) bool {
	return cl.getLimiter(client).Allow()
}

// Clients returns the number of tracked client buckets.
func (cl *ClientLimiter) Clients() int {
	n := 0
	cl.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Stop stops the cleanup goroutine.
func (cl *ClientLimiter) Stop() {
	cl.cancel()
}

// Done is closed once Stop has been called.
func (cl *ClientLimiter) Done() <-chan struct{} {
	return cl.done
}

func (cl *ClientLimiter) getLimiter(client string) *rate.Limiter {
	now := time.Now().UnixNano()

	if v, ok := cl.clients.Load(client); ok {
		entry := v.(*clientEntry)
		entry.lastSeen.Store(now)
		return entry.limiter
	}

	entry := &clientEntry{limiter: rate.NewLimiter(cl.limit, cl.burst)}
	entry.lastSeen.Store(now)

	actual, loaded := cl.clients.LoadOrStore(client, entry)
	if loaded {
		existing := actual.(*clientEntry)
		existing.lastSeen.Store(now)
		return existing.limiter
	}
	return entry.limiter
}

func (cl *ClientLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(cl.idle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cl.evictIdle(time.Now())
		}
	}
}

// evictIdle drops buckets not used since now minus the idle period.
func (cl *ClientLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-cl.idle).UnixNano()
	cl.clients.Range(func(key, value any) bool {
		if value.(*clientEntry).lastSeen.Load() < cutoff {
			cl.clients.Delete(key)
		}
		return true
	})
}

// retryAfterSeconds is the wait for one token, rounded up to whole seconds.
func (cl *ClientLimiter) retryAfterSeconds() int {
	if cl.limit <= 0 {
		return 60
	}
	secs := int(1/float64(cl.limit) + 0.999)
	if secs < 1 {
		secs = 1
	}
	return secs
}
