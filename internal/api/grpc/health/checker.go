// Package health keeps gRPC health statuses in sync with backing services.
package health

import (
	"context"
	"sort"
	"time"

	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
)

const pingTimeout = 3 * time.Second

// ServicePrefix prefixes per-dependency health service names, e.g.
// "kychat.postgres".
const ServicePrefix = "kychat."

// Checker pings every registered dependency on an interval. Each dependency
// has its own service status; the overall ("") status is SERVING only while
// all of them answer.
type Checker struct {
	server   *health.Server
	checks   map[string]model.Pinger
	interval time.Duration
	logger   *logger.Logger
}

func NewChecker(server *health.Server, interval time.Duration, logger *logger.Logger) *Checker {
	return &Checker{
		server:   server,
		checks:   make(map[string]model.Pinger),
		interval: interval,
		logger:   logger,
	}
}

// Add registers a dependency. Must be called before Run.
func (c *Checker) Add(name string, p model.Pinger) {
	c.checks[name] = p
	c.server.SetServingStatus(ServicePrefix+name, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Run checks immediately and then on every tick until ctx is done, when all
// statuses are switched to NOT_SERVING.
func (c *Checker) Run(ctx context.Context) {
	c.Check(ctx)

	if c.interval <= 0 {
		<-ctx.Done()
		c.server.Shutdown()
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check pings all dependencies once and reports whether all are healthy.
func (c *Checker) Check(ctx context.Context) bool {
	healthy := true
	for _, name := range c.names() {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if err := c.ping(ctx, c.checks[name]); err != nil {
			healthy = false
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			c.logger.Warn("Health checker: dependency unavailable",
				"dependency", name,
				"error", err.Error())
		}
		c.server.SetServingStatus(ServicePrefix+name, status)
	}

	overall := grpc_health_v1.HealthCheckResponse_SERVING
	if !healthy {
		overall = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	c.server.SetServingStatus("", overall)
	return healthy
}

func (c *Checker) ping(ctx context.Context, p model.Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}

func (c *Checker) names() []string {
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Server returns the health server whose statuses the checker maintains.
func (c *Checker) Server() *health.Server {
	return c.server
}
