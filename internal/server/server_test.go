package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	proxyproto "github.com/pires/go-proxyproto"

	"github.com/vivars7/pathproxy/internal/config"
	pperrors "github.com/vivars7/pathproxy/internal/errors"
	"github.com/vivars7/pathproxy/internal/health"
)

// testConfig creates a minimal valid config routing /api/ to a test backend.
func testConfig(backendURL string) *config.Config {
	cfg := &config.Config{
		Routes: config.Routes{{Pattern: "^/api/", Target: backendURL}},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer creates a Server with a silent logger.
func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	srv, err := New(cfg, "test-version", opts...)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

// startTestServer creates a Server with the given config, builds its handler,
// and returns an httptest.Server for integration testing.
func startTestServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()
	srv := newTestServer(t, cfg)
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// echoBackend answers with the request URI it received.
func echoBackend(t *testing.T, name string) *httptest.Server {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Backend", name)
		fmt.Fprint(w, r.RequestURI)
	}))
	t.Cleanup(backend.Close)
	return backend
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, string(body)
}

func decodeGatewayError(t *testing.T, body string) pperrors.GatewayError {
	t.Helper()
	var resp pperrors.HTTPErrorResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decoding error body %q: %v", body, err)
	}
	return resp.Error
}

func TestServer_Healthz(t *testing.T) {
	_, ts := startTestServer(t, testConfig("http://localhost:9999"))

	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var live health.LivenessResponse
	if err := json.Unmarshal([]byte(body), &live); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if live.Status != "ok" || live.Version != "test-version" {
		t.Errorf("unexpected liveness %+v", live)
	}
}

func TestServer_Readyz(t *testing.T) {
	_, ts := startTestServer(t, testConfig("http://localhost:9999"))

	resp, body := get(t, ts.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var ready health.ReadinessResponse
	if err := json.Unmarshal([]byte(body), &ready); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if ready.Status != "ready" || ready.Routes != 1 {
		t.Errorf("unexpected readiness %+v", ready)
	}
}

func TestServer_ForwardsMatchingRoute(t *testing.T) {
	backend := echoBackend(t, "api")
	_, ts := startTestServer(t, testConfig(backend.URL))

	resp, body := get(t, ts.URL+"/api/users?page=2&sort=name")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body != "/api/users?page=2&sort=name" {
		t.Errorf("backend saw %q", body)
	}
	if resp.Header.Get("X-Backend") != "api" {
		t.Error("response did not come from the backend")
	}
}

func TestServer_UncleanPathForwardedVerbatim(t *testing.T) {
	backend := echoBackend(t, "api")
	_, ts := startTestServer(t, testConfig(backend.URL))

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Get(ts.URL + "/api//double//slash")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if string(body) != "/api//double//slash" {
		t.Errorf("backend saw %q", body)
	}
}

func TestServer_NoMatchFallsBackToNotFound(t *testing.T) {
	backend := echoBackend(t, "api")
	_, ts := startTestServer(t, testConfig(backend.URL))

	resp, body := get(t, ts.URL+"/index.html")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Backend") != "" {
		t.Error("unmatched request must not reach the backend")
	}
	if e := decodeGatewayError(t, body); e.Code != 404 {
		t.Errorf("error code = %d, want 404", e.Code)
	}
}

func TestServer_UpstreamDownFallsBack(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	deadURL := backend.URL
	backend.Close()

	_, ts := startTestServer(t, testConfig(deadURL))

	resp, body := get(t, ts.URL+"/api/x")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected fallback 404, got %d", resp.StatusCode)
	}
	if e := decodeGatewayError(t, body); e.Message != pperrors.ErrNotFound.Message {
		t.Errorf("unexpected error body %+v", e)
	}
}

func TestServer_FallbackStaticDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello from disk"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig("http://localhost:9999")
	cfg.Fallback.StaticDir = dir
	_, ts := startTestServer(t, cfg)

	t.Run("existing file", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/hello.txt")
		if resp.StatusCode != http.StatusOK || body != "hello from disk" {
			t.Errorf("got %d %q", resp.StatusCode, body)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/nope.txt")
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
		decodeGatewayError(t, body)
	})

	t.Run("traversal stays inside", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/x", nil)
		req.URL.Path = "/../../etc/passwd"
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			t.Error("path traversal must not serve files outside the directory")
		}
	})

	t.Run("post not allowed", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/hello.txt", "text/plain", strings.NewReader("x"))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
		if resp.Header.Get("Allow") != "GET, HEAD" {
			t.Errorf("Allow = %q", resp.Header.Get("Allow"))
		}
	})
}

func TestServer_Metrics(t *testing.T) {
	backend := echoBackend(t, "api")
	_, ts := startTestServer(t, testConfig(backend.URL))

	get(t, ts.URL+"/api/a")
	get(t, ts.URL+"/other")

	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{
		`pathproxy_forwarded_requests_total{route="^/api/",status="200"} 1`,
		`pathproxy_passthrough_requests_total{reason="no_match"} 1`,
		`pathproxy_routes 1`,
		`pathproxy_build_info{go_version=`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	off := false
	cfg := testConfig("http://localhost:9999")
	cfg.Metrics.Enabled = &off
	_, ts := startTestServer(t, cfg)

	resp, _ := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("disabled metrics should fall through to 404, got %d", resp.StatusCode)
	}
}

func TestServer_GlobalRateLimit(t *testing.T) {
	backend := echoBackend(t, "api")
	cfg := testConfig(backend.URL)
	cfg.Listen.GlobalRateLimit = 60 // one per second, burst 1
	_, ts := startTestServer(t, cfg)

	resp, _ := get(t, ts.URL+"/api/first")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", resp.StatusCode)
	}

	resp, body := get(t, ts.URL+"/api/second")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", resp.Header.Get("Retry-After"))
	}
	if e := decodeGatewayError(t, body); e.Code != 429 {
		t.Errorf("error code = %d, want 429", e.Code)
	}

	// Health is not rate limited
	resp, _ = get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz should bypass rate limit, got %d", resp.StatusCode)
	}

	_, metrics := get(t, ts.URL+"/metrics")
	if !strings.Contains(metrics, `pathproxy_rate_limit_hits_total{scope="global"} 1`) {
		t.Error("rate limit hit not recorded")
	}
}

func TestServer_ClientRateLimit(t *testing.T) {
	backend := echoBackend(t, "api")
	cfg := testConfig(backend.URL)
	cfg.Listen.ClientRateLimit = 60
	cfg.Listen.TrustedProxies = []string{"127.0.0.1", "::1"}
	config.ApplyDefaults(cfg)
	srv, ts := startTestServer(t, cfg)
	t.Cleanup(srv.clientLimiter.Stop)

	getAs := func(client string) int {
		t.Helper()
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/x", nil)
		req.Header.Set("X-Forwarded-For", client)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := getAs("203.0.113.1"); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := getAs("203.0.113.1"); code != http.StatusTooManyRequests {
		t.Fatalf("second request from same client: expected 429, got %d", code)
	}
	if code := getAs("203.0.113.2"); code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", code)
	}

	_, metrics := get(t, ts.URL+"/metrics")
	if !strings.Contains(metrics, `pathproxy_rate_limit_hits_total{scope="client"} 1`) {
		t.Error("client rate limit hit not recorded")
	}
}

func TestServer_OnConfigReload_SwapsRoutes(t *testing.T) {
	oldBackend := echoBackend(t, "old")
	newBackend := echoBackend(t, "new")

	srv, ts := startTestServer(t, testConfig(oldBackend.URL))

	resp, _ := get(t, ts.URL+"/api/x")
	if resp.Header.Get("X-Backend") != "old" {
		t.Fatalf("before reload, backend = %q", resp.Header.Get("X-Backend"))
	}
	before := srv.Forwarder()

	newCfg := testConfig(newBackend.URL)
	newCfg.Routes = append(newCfg.Routes, config.RouteConfig{Pattern: "^/v2/", Target: newBackend.URL})
	if err := srv.OnConfigReload(newCfg); err != nil {
		t.Fatalf("OnConfigReload: %v", err)
	}

	if srv.Forwarder() == before {
		t.Error("forwarder should have been replaced")
	}
	resp, _ = get(t, ts.URL+"/api/x")
	if resp.Header.Get("X-Backend") != "new" {
		t.Errorf("after reload, backend = %q", resp.Header.Get("X-Backend"))
	}
	resp, _ = get(t, ts.URL+"/v2/y")
	if resp.Header.Get("X-Backend") != "new" {
		t.Errorf("new route not active, backend = %q", resp.Header.Get("X-Backend"))
	}
	if srv.routeCount() != 2 {
		t.Errorf("routeCount = %d, want 2", srv.routeCount())
	}
}

func TestServer_OnConfigReload_InvalidKeepsOld(t *testing.T) {
	backend := echoBackend(t, "old")
	srv, _ := startTestServer(t, testConfig(backend.URL))
	before := srv.Forwarder()

	bad := testConfig(backend.URL)
	bad.Routes[0].Pattern = "(["
	if err := srv.OnConfigReload(bad); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if srv.Forwarder() != before {
		t.Error("forwarder must not change on failed reload")
	}
}

func TestServer_ReloadFromFile(t *testing.T) {
	oldBackend := echoBackend(t, "old")
	newBackend := echoBackend(t, "new")

	cfgPath := filepath.Join(t.TempDir(), "pathproxy.yaml")
	write := func(target string) {
		t.Helper()
		content := fmt.Sprintf("routes:\n  \"^/api/\": %s\nreload:\n  enabled: true\n", target)
		if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(oldBackend.URL)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	srv := newTestServer(t, cfg, WithConfigPath(cfgPath))
	if srv.reloader == nil {
		t.Fatal("reloader should be configured when reload.enabled and a path are set")
	}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	write(newBackend.URL)
	if err := srv.reloader.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	resp, _ := get(t, ts.URL+"/api/x")
	if resp.Header.Get("X-Backend") != "new" {
		t.Errorf("after reload, backend = %q", resp.Header.Get("X-Backend"))
	}

	_, metrics := get(t, ts.URL+"/metrics")
	if !strings.Contains(metrics, `pathproxy_config_reloads_total{result="success"} 1`) {
		t.Errorf("reload not recorded in metrics:\n%s", metrics)
	}
}

func TestServer_LimitedListener(t *testing.T) {
	// Create a listener with limit of 2 connections
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	limited := newLimitedListener(ln, 2)

	// Track active connections
	var mu sync.Mutex
	activeConns := 0
	maxActive := 0
	connReady := make(chan struct{}, 3)
	holdConns := make(chan struct{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		activeConns++
		if activeConns > maxActive {
			maxActive = activeConns
		}
		mu.Unlock()

		connReady <- struct{}{}

		// Hold the connection open until signaled
		<-holdConns

		mu.Lock()
		activeConns--
		mu.Unlock()

		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Handler: handler}
	go srv.Serve(limited)
	defer srv.Close()

	addr := ln.Addr().String()

	// Start 3 requests concurrently (only 2 should be active at once)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{
				Timeout:   5 * time.Second,
				Transport: &http.Transport{DisableKeepAlives: true},
			}
			resp, err := client.Get("http://" + addr + "/")
			if err != nil {
				return
			}
			resp.Body.Close()
		}()
	}

	// Wait for 2 connections to be active
	<-connReady
	<-connReady

	// Give a moment for the 3rd connection to attempt
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	current := activeConns
	mu.Unlock()

	if current != 2 {
		t.Errorf("expected 2 active connections, got %d", current)
	}

	close(holdConns)
	wg.Wait()

	mu.Lock()
	observed := maxActive
	mu.Unlock()

	if observed > 2 {
		t.Errorf("max concurrent connections should be <= 2, got %d", observed)
	}
}

func TestServer_LimitedConn_CloseOnce(t *testing.T) {
	sem := make(chan struct{}, 10)
	sem <- struct{}{} // Simulate an acquired slot

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer ln.Close()

	done := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		done <- c
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	serverConn := <-done
	defer serverConn.Close()

	lc := &limitedConn{Conn: clientConn, sem: sem}

	// Close twice should not panic
	lc.Close()
	lc.Close()

	if len(sem) != 0 {
		t.Errorf("expected semaphore to be empty after close, got %d", len(sem))
	}
}

func TestWrapListener_ProxyProtocol(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	wrapped := wrapListener(ln, config.ListenConfig{ProxyProtocol: true, MaxConnections: 10})

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.RemoteAddr)
	})}
	go srv.Serve(wrapped)
	defer srv.Close()

	src := &net.TCPAddr{IP: net.ParseIP("203.0.113.7"), Port: 31337}
	dst := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8080}

	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DisableKeepAlives: true,
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				conn, err := (&net.Dialer{}).DialContext(ctx, network, addr)
				if err != nil {
					return nil, err
				}
				header := proxyproto.HeaderProxyFromAddrs(1, src, dst)
				if _, err := header.WriteTo(conn); err != nil {
					conn.Close()
					return nil, err
				}
				return conn, nil
			},
		},
	}

	resp, err := client.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if string(body) != "203.0.113.7:31337" {
		t.Errorf("RemoteAddr = %q, want the PROXY header source", body)
	}
}

func TestWrapListener_NoProxyProtocol(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer ln.Close()

	wrapped := wrapListener(ln, config.ListenConfig{MaxConnections: 1})
	if _, ok := wrapped.(*limitedListener); !ok {
		t.Errorf("expected *limitedListener, got %T", wrapped)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	backend := echoBackend(t, "api")
	cfg := testConfig(backend.URL)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	srv := newTestServer(t, cfg, WithListener(ln))

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	// Wait for the server to answer
	url := "http://" + ln.Addr().String()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url + "/api/ping")
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if string(body) != "/api/ping" {
				t.Errorf("backend saw %q", body)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down within 5 seconds")
	}

	if srv.healthHandler.Ready() {
		t.Error("readiness should fail after shutdown")
	}
}

func TestServer_Start_ListenError(t *testing.T) {
	cfg := testConfig("http://localhost:9999")
	cfg.Listen.Host = "256.256.256.256"
	cfg.Listen.Port = 9999

	srv := newTestServer(t, cfg)
	if err := srv.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid listen address")
	}
}

func TestServer_Start_GRPCListenError_StopsClientLimiter(t *testing.T) {
	blocker, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to bind blocker port: %v", err)
	}
	defer blocker.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	cfg := testConfig("http://localhost:9999")
	cfg.Listen.Host = "127.0.0.1"
	cfg.Listen.GRPCPort = blocker.Addr().(*net.TCPAddr).Port
	cfg.Listen.ClientRateLimit = 60
	config.ApplyDefaults(cfg)

	srv := newTestServer(t, cfg, WithListener(ln))
	if err := srv.Start(context.Background()); err == nil {
		t.Fatal("expected error when the gRPC port is taken")
	}

	select {
	case <-srv.clientLimiter.Done():
	default:
		t.Error("client limiter cleanup should stop when Start fails")
	}
}

func TestServer_Shutdown_NilHTTPServer(t *testing.T) {
	srv := newTestServer(t, testConfig("http://localhost:9999"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown with nil httpServer should not error, got: %v", err)
	}
}

func TestServer_GRPCHealthConfigured(t *testing.T) {
	cfg := testConfig("http://localhost:9999")
	cfg.Listen.GRPCPort = 18081

	srv := newTestServer(t, cfg)
	if srv.grpcServer == nil {
		t.Fatal("gRPC health server should be created when grpc_port is set")
	}
	srv.grpcServer.GracefulStop()
}

func TestBuildLogger_Levels(t *testing.T) {
	tests := []struct {
		level  string
		format string
		output string
		debug  bool
		info   bool
	}{
		{"debug", "text", "stderr", true, true},
		{"info", "json", "stdout", false, true},
		{"warn", "json", "stdout", false, false},
		{"error", "text", "stdout", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			cfg := testConfig("http://localhost:9999")
			cfg.Logging.Level = tt.level
			cfg.Logging.Format = tt.format
			cfg.Logging.Output = tt.output

			logger := buildLogger(cfg)
			ctx := context.Background()
			if got := logger.Enabled(ctx, slog.LevelDebug); got != tt.debug {
				t.Errorf("debug enabled = %v, want %v", got, tt.debug)
			}
			if got := logger.Enabled(ctx, slog.LevelInfo); got != tt.info {
				t.Errorf("info enabled = %v, want %v", got, tt.info)
			}
		})
	}
}
