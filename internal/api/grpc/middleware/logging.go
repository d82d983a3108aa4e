package middleware

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/fintrack-server/internal/logger"
)

// Health probes arrive every few seconds and are logged at debug level.
const healthServicePrefix = "/grpc.health.v1.Health/"

// Logging is a unary interceptor that logs gRPC requests and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	code := status.Code(err)
	if err != nil {
		if _, ok := status.FromError(err); !ok {
			code = codes.Internal
		}
		l.logger.Error("gRPC request failed",
			"method", info.FullMethod,
			"duration_ms", time.Since(start).Milliseconds(),
			"status", code.String(),
			"error", err.Error())
		return resp, err
	}

	log := l.logger.InfoContext
	if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
		log = l.logger.DebugContext
	}
	log(ctx, "gRPC request completed",
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", code.String())

	return resp, err
}
