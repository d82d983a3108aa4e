package health

import (
	"context"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/fintrack-server/internal/logger"
)

// Pinger reports backing store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSetter receives serving status transitions.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// Checker pings the store on an interval and publishes the result under
// the named gRPC service and the server-wide "" entry.
type Checker struct {
	pinger   Pinger
	setter   StatusSetter
	service  string
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger

	last healthpb.HealthCheckResponse_ServingStatus
}

func NewChecker(pinger Pinger, setter StatusSetter, service string, interval time.Duration, logger *logger.Logger) *Checker {
	timeout := interval / 2
	if timeout <= 0 || timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &Checker{
		pinger:   pinger,
		setter:   setter,
		service:  service,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		last:     healthpb.HealthCheckResponse_UNKNOWN,
	}
}

// Run checks immediately and then on every tick until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.Check(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Check pings once and publishes the resulting status.
func (c *Checker) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err := c.pinger.Ping(pingCtx)
	cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	if status != c.last {
		if err != nil {
			c.logger.Warn("Health checker: store unreachable", "service", c.service, "error", err.Error())
		} else {
			c.logger.Info("Health checker: store reachable", "service", c.service)
		}
		c.last = status
	}

	c.setter.SetServingStatus("", status)
	c.setter.SetServingStatus(c.service, status)
	return status
}
