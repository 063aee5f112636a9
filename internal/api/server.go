package api

import (
	"context"
	"fmt"
	"net"
	"time"

	"lendhub/internal/config"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPCServer runs the gRPC side of the API. Only the standard health service
// is registered; load balancers and orchestration probe it.
type GRPCServer struct {
	cfg      *config.APIConfig
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	log      zerolog.Logger
}

func NewGRPCServer(cfg *config.APIConfig, logger *zerolog.Logger) (*GRPCServer, error) {
	addr := fmt.Sprintf(":%d", cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	if cfg.GRPC.Reflection {
		reflection.Register(grpcServer)
	}

	var serverLogger zerolog.Logger
	if logger != nil {
		serverLogger = logger.With().Str("component", "grpc").Logger()
	}

	return &GRPCServer{
		cfg:      cfg,
		server:   grpcServer,
		health:   healthServer,
		listener: lis,
		log:      serverLogger,
	}, nil
}

func (s *GRPCServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *GRPCServer) Serve() error {
	s.log.Info().Str("addr", s.Addr()).Msg("gRPC API listening")
	return s.server.Serve(s.listener)
}

func (s *GRPCServer) Shutdown(ctx context.Context) {
	if s.server == nil {
		return
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-ctx.Done():
		s.log.Warn().Msg("gRPC graceful shutdown timed out; forcing stop")
		s.server.Stop()
	case <-time.After(10 * time.Second):
		s.log.Warn().Msg("gRPC graceful shutdown timed out; forcing stop")
		s.server.Stop()
	}
}
