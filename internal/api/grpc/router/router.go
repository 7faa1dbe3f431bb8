package router

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/kychat-server/internal/api/grpc/middleware"
	"github.com/dtroode/kychat-server/internal/logger"
)

// Router builds the operations gRPC server: health checking and reflection.
type Router struct {
	health *health.Server
	logger *logger.Logger
}

// New creates new gRPC Router instance serving the statuses kept in health.
func New(health *health.Server, logger *logger.Logger) *Router {
	return &Router{
		health: health,
		logger: logger,
	}
}

// Register creates the gRPC server with logging and panic recovery
// interceptors and registers all services.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	recovery := middleware.NewRecovery(r.logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.Unary(),
		),
		grpc.ChainStreamInterceptor(
			logging.HandleGRPCStream,
			recovery.Stream(),
		),
	)
	grpc_health_v1.RegisterHealthServer(s, r.health)
	reflection.Register(s)

	return s
}
