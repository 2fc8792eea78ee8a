// Package grpc serves the standard gRPC health checking protocol
// (grpc.health.v1) for the gateway, mirroring HTTP readiness.
package grpc

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service name reported alongside the overall ("") status.
const ServiceName = "pathproxy"

// HealthServer wraps a grpc.Server exposing only the health service.
type HealthServer struct {
	health *health.Server
	server *grpc.Server
	logger *slog.Logger
}

// NewHealthServer creates a HealthServer. Both the overall and the named
// service start as NOT_SERVING until SetServing(true) is called.
func NewHealthServer(logger *slog.Logger) *HealthServer {
	gs := grpc.NewServer(
		grpc.UnaryInterceptor(LoggingUnaryInterceptor(logger)),
		grpc.StreamInterceptor(LoggingStreamInterceptor(logger)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &HealthServer{health: hs, server: gs, logger: logger}
	s.SetServing(false)
	return s
}

// SetServing updates the reported status for "" and ServiceName.
func (s *HealthServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve starts the gRPC server on the given listener.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("gRPC health server listening", "addr", lis.Addr().String())
	return s.server.Serve(lis)
}

// GracefulStop reports NOT_SERVING to watchers, then stops the server
// after pending RPCs finish.
func (s *HealthServer) GracefulStop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

// Server returns the underlying grpc.Server for direct access if needed.
func (s *HealthServer) Server() *grpc.Server {
	return s.server
}
