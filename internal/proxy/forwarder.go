package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vivars7/pathproxy/internal/router"
)

// Options controls forwarding behavior.
type Options struct {
	// Debug logs every forwarded request and its sanitized response headers.
	Debug bool
	// ChangeOrigin drops the inbound Host so the target sees its own host name.
	ChangeOrigin bool
	// Timeout bounds the upstream call including body streaming.
	// Zero means no deadline beyond the inbound request's context.
	Timeout time.Duration
}

// DefaultOptions returns Options with ChangeOrigin enabled.
func DefaultOptions() Options {
	return Options{ChangeOrigin: true}
}

// Config holds everything a Forwarder is built from.
type Config struct {
	Routes    *router.Table
	Options   Options
	Transport http.RoundTripper // nil uses NewHTTPTransport()
	Logger    *slog.Logger      // nil uses slog.Default()
	Observer  Observer          // nil discards events
}

// Forwarder sends requests whose path matches a route to that route's
// origin and streams the origin's response back. Requests that match no
// route, or whose origin cannot be reached, continue to the next handler
// untouched. A Forwarder is immutable and safe for concurrent use.
type Forwarder struct {
	routes   *router.Table
	opts     Options
	client   *http.Client
	logger   *slog.Logger
	observer Observer
}

// NewForwarder creates a Forwarder from cfg.
func NewForwarder(cfg Config) *Forwarder {
	transport := cfg.Transport
	if transport == nil {
		transport = NewHTTPTransport()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var observer Observer = nopObserver{}
	if cfg.Observer != nil {
		observer = cfg.Observer
	}

	return &Forwarder{
		routes: cfg.Routes,
		opts:   cfg.Options,
		client: &http.Client{
			Transport: transport,
			// 3xx responses are passed back as-is.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:   logger,
		observer: observer,
	}
}

// Routes returns the route table the Forwarder matches against.
func (f *Forwarder) Routes() *router.Table {
	return f.routes
}

// Middleware wraps next so that matching requests are forwarded.
func (f *Forwarder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.Handle(w, r, next)
	})
}

// Handle forwards r if its path matches a route and writes the origin's
// response to w. Otherwise, or if the origin is unavailable, it calls
// next with the original request. Handle never writes an error response
// of its own.
func (f *Forwarder) Handle(w http.ResponseWriter, r *http.Request, next http.Handler) {
	// Patterns see the same escaped path that TargetURL appends.
	route, ok := f.routes.Match(r.URL.EscapedPath())
	if !ok {
		f.observer.PassedThrough(ReasonNoMatch)
		next.ServeHTTP(w, r)
		return
	}

	start := time.Now()
	body := newGuardedBody(r)
	resp, err := f.forward(r, route, body)
	if err != nil {
		sent := body.detach()
		f.logger.Error("proxy upstream unavailable, passing through",
			"pattern", route.Pattern,
			"body_bytes_sent", sent,
			"error", err,
		)
		f.observer.UpstreamFailed(route, err)
		f.observer.PassedThrough(ReasonUpstreamUnavailable)
		next.ServeHTTP(w, r)
		return
	}
	defer resp.Body.Close()
	upstreamLatency := time.Since(start)

	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	n, copyErr := copyBody(w, resp.Body)
	if copyErr != nil {
		// Headers are already on the wire; the response cannot be replaced.
		f.logger.Warn("proxy response body interrupted",
			"pattern", route.Pattern,
			"bytes", n,
			"error", copyErr,
		)
	}

	f.observer.Forwarded(ForwardEvent{
		Route:           route,
		Method:          r.Method,
		Path:            r.URL.Path,
		Status:          resp.StatusCode,
		Bytes:           n,
		UpstreamLatency: upstreamLatency,
		Duration:        time.Since(start),
		CopyErr:         copyErr,
	})
}

// Forward issues r against route's target and returns the origin's response
// with sanitized headers. The caller must close the response body. Any
// failure is returned as *UpstreamUnavailableError.
func (f *Forwarder) Forward(r *http.Request, route router.Route) (*http.Response, error) {
	return f.forward(r, route, newGuardedBody(r))
}

func (f *Forwarder) forward(r *http.Request, route router.Route, body *guardedBody) (*http.Response, error) {
	target := TargetURL(route.Target, r)

	ctx := r.Context()
	cancel := context.CancelFunc(func() {})
	if f.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
	}

	outReq, err := http.NewRequestWithContext(ctx, r.Method, target, body.reader())
	if err != nil {
		cancel()
		return nil, &UpstreamUnavailableError{Target: target, Err: err}
	}
	outReq.ContentLength = r.ContentLength
	outReq.Header = outboundRequestHeaders(r.Header, f.opts.ChangeOrigin)
	if !f.opts.ChangeOrigin {
		outReq.Host = r.Host
	}

	if f.opts.Debug {
		f.logger.Info("proxy request",
			"method", r.Method,
			"target", target,
			"headers", outReq.Header,
		)
	}

	resp, err := f.client.Do(outReq)
	if err != nil {
		cancel()
		return nil, &UpstreamUnavailableError{Target: target, Err: err}
	}

	resp.Header = SanitizeResponseHeader(resp.Header)
	resp.ContentLength = -1
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	if f.opts.Debug {
		f.logger.Info("proxy response",
			"status", resp.StatusCode,
			"headers", resp.Header,
		)
	}

	return resp, nil
}

// TargetURL concatenates the target prefix, the request path and, when the
// inbound URL carried one, the raw query with its leading "?".
func TargetURL(prefix string, r *http.Request) string {
	target := prefix + r.URL.EscapedPath()
	if r.URL.RawQuery != "" || r.URL.ForceQuery {
		target += "?" + r.URL.RawQuery
	}
	return target
}

// guardedBody shields the inbound body from the transport, which closes
// request bodies even on failure and may keep reading them from its write
// goroutine after Do returns. Once detached, the transport's reads fail and
// the next handler owns whatever the body still holds. Bytes already sent
// upstream are not replayed.
type guardedBody struct {
	src      io.Reader
	read     atomic.Int64
	detached atomic.Bool
}

func newGuardedBody(r *http.Request) *guardedBody {
	if r.Body == nil || r.Body == http.NoBody {
		return &guardedBody{}
	}
	return &guardedBody{src: r.Body}
}

// reader returns the outbound request body, or nil when there is none.
func (g *guardedBody) reader() io.Reader {
	if g.src == nil {
		return nil
	}
	return io.NopCloser(g)
}

func (g *guardedBody) Read(p []byte) (int, error) {
	if g.detached.Load() {
		return 0, errBodyDetached
	}
	n, err := g.src.Read(p)
	g.read.Add(int64(n))
	return n, err
}

// detach stops further reads by the transport and reports how many bytes
// it had already consumed.
func (g *guardedBody) detach() int64 {
	g.detached.Store(true)
	return g.read.Load()
}

var errBodyDetached = errors.New("request body handed back to the next handler")

// copyBody streams src to w, flushing after every chunk so long-lived and
// incremental responses reach the caller as they arrive.
func copyBody(w http.ResponseWriter, src io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)

	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := w.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// cancelOnClose releases the per-request timeout once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
