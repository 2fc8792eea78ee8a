package grpc

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// syncBuffer is a bytes.Buffer safe for the server's logging goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startHealthServer starts a HealthServer on a loopback port and returns a client.
func startHealthServer(t *testing.T) (*HealthServer, healthpb.HealthClient, *syncBuffer) {
	t.Helper()

	logs := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	srv := NewHealthServer(logger)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient(
		lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		srv.GracefulStop()
	})

	return srv, healthpb.NewHealthClient(conn), logs
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthServer_StartsNotServing(t *testing.T) {
	_, client, _ := startHealthServer(t)

	for _, svc := range []string{"", ServiceName} {
		if got := check(t, client, svc); got != healthpb.HealthCheckResponse_NOT_SERVING {
			t.Errorf("service %q status = %v, want NOT_SERVING", svc, got)
		}
	}
}

func TestHealthServer_SetServing(t *testing.T) {
	srv, client, _ := startHealthServer(t)

	srv.SetServing(true)
	for _, svc := range []string{"", ServiceName} {
		if got := check(t, client, svc); got != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("service %q status = %v, want SERVING", svc, got)
		}
	}

	srv.SetServing(false)
	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after SetServing(false) = %v, want NOT_SERVING", got)
	}
}

func TestHealthServer_UnknownService(t *testing.T) {
	_, client, _ := startHealthServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "nope"}); err == nil {
		t.Error("expected NotFound for unknown service")
	}
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	_, client, logs := startHealthServer(t)

	check(t, client, "")

	out := logs.String()
	if !strings.Contains(out, "grpc call") || !strings.Contains(out, "/grpc.health.v1.Health/Check") {
		t.Errorf("expected call log, got:\n%s", out)
	}
	if !strings.Contains(out, "code=OK") {
		t.Errorf("expected OK code in log, got:\n%s", out)
	}
}
