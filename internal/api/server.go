package api

import (
	"context"
	"fmt"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/ariesstack/aries-engine/internal/config"
)

// Server is the engine's gRPC ops surface: health checking for orchestrators
// plus reflection for debugging tools. The remediation loop itself runs out
// of band; this server only reports liveness.
type Server struct {
	cfg        config.ServerConfig
	grpcServer *grpc.Server
	healthSrv  *health.Server
	listener   net.Listener
}

// NewServer constructs a gRPC server bound to the configured address.
func NewServer(cfg config.ServerConfig, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}
	serverOpts = append(serverOpts, opts...)
	grpcServer := grpc.NewServer(serverOpts...)

	grpc_prometheus.Register(grpcServer)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	// Reflection makes the server reachable with grpcurl during development.
	reflection.Register(grpcServer)

	return &Server{
		cfg:        cfg,
		grpcServer: grpcServer,
		healthSrv:  healthSrv,
		listener:   lis,
	}, nil
}

// Start serves incoming gRPC requests until Shutdown is invoked.
func (s *Server) Start() error {
	if s.grpcServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	return s.grpcServer.Serve(s.listener)
}

// SetServing flips the health status reported to orchestrators. The main
// process marks serving once the remediation loop is running.
func (s *Server) SetServing(serving bool) {
	if s.healthSrv == nil {
		return
	}
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.healthSrv.SetServingStatus("", status)
}

// Shutdown attempts a graceful shutdown, falling back to Stop after timeout.
func (s *Server) Shutdown(ctx context.Context) {
	if s.grpcServer == nil {
		return
	}
	if s.healthSrv != nil {
		s.healthSrv.Shutdown()
	}

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.Stop()
	case <-stopped:
	}
}

// Address exposes the bound listener address (useful for tests).
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
