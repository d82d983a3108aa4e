package server

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/dtroode/fintrack-server/internal/api/grpc/middleware"
	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

// GRPCServer wraps a gRPC server with address and lifecycle methods.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	addr   string
}

// NewGRPCServer creates a GRPCServer exposing grpc.health.v1.Health and
// server reflection on addr. Every service starts NOT_SERVING.
func NewGRPCServer(addr string, logger *logger.Logger) *GRPCServer {
	logging := middleware.NewLogging(logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(recovery.WithRecoveryHandler(func(p any) error {
				logger.Error("gRPC handler panicked", "panic", fmt.Sprint(p))
				return status.Error(codes.Internal, "internal error")
			})),
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	return &GRPCServer{server: s, health: hs, addr: addr}
}

var _ model.Server = (*GRPCServer)(nil)

// Health returns the status registry of the health service.
func (s *GRPCServer) Health() *health.Server {
	return s.health
}

// Start starts serving on the configured address using the provided security layer.
func (s *GRPCServer) Start(securityLayer model.SecurityLayer) error {
	listener, err := securityLayer.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.server.Serve(listener)
}

// Stop marks every service NOT_SERVING and gracefully stops the server.
func (s *GRPCServer) Stop(_ context.Context) error {
	s.health.Shutdown()
	s.server.GracefulStop()
	return nil
}

// Address returns the configured listen address.
func (s *GRPCServer) Address() string {
	return s.addr
}
