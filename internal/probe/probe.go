// Package probe exposes per-feature readiness over the standard gRPC health
// protocol. Each feature area is a named health service, so an orchestrator
// can tell "chat is down" apart from "the process is down".
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Health service names, one per feature area.
const (
	ServiceChat      = "glossy.Chat"
	ServiceGames     = "glossy.Games"
	ServiceSearch    = "glossy.Search"
	ServiceKnowledge = "glossy.Knowledge"
)

// Services lists every feature service.
var Services = []string{ServiceChat, ServiceGames, ServiceSearch, ServiceKnowledge}

// Server serves gRPC health checks.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	logger     *slog.Logger
}

// Listen binds addr and returns a server with every feature NOT_SERVING.
func Listen(addr string, logger *slog.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return New(lis, logger), nil
}

// New wraps an existing listener.
func New(lis net.Listener, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	for _, svc := range Services {
		healthServer.SetServingStatus(svc, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		listener:   lis,
		logger:     logger,
	}
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// SetFeature reports whether a feature area is serving.
func (s *Server) SetFeature(service string, serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
	s.logger.Info("feature health updated", "service", service, "status", status.String())
}

// Serve runs until ctx is cancelled or the server fails.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("health probe listening", "addr", s.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve health probe: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve health probe: %w", err)
	}
}

// Check asks the probe at addr for the status of service ("" for the process).
func Check(ctx context.Context, addr, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, fmt.Errorf("dial health probe: %w", err)
	}
	defer conn.Close()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, fmt.Errorf("check %q: %w", service, err)
	}
	return resp.GetStatus(), nil
}
