package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/dtroode/kychat-server/internal/logger"
)

// Logging logs gRPC requests and results. Health probes are logged at debug
// level since orchestrators call them every few seconds.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
func (l *Logging) HandleGRPC(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	l.log(info.FullMethod, time.Since(start), err)
	return resp, err
}

// HandleGRPCStream logs streaming calls such as health Watch once they end.
func (l *Logging) HandleGRPCStream(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()

	err := handler(srv, ss)

	l.log(info.FullMethod, time.Since(start), err)
	return err
}

func (l *Logging) log(method string, duration time.Duration, err error) {
	code := codeOf(err)
	args := []any{
		"method", method,
		"duration_ms", duration.Milliseconds(),
		"status", code.String(),
	}

	if err != nil {
		l.logger.Error("gRPC request failed", append(args, "error", err.Error())...)
		return
	}
	if method == grpc_health_v1.Health_Check_FullMethodName {
		l.logger.Debug("gRPC request completed", args...)
		return
	}
	l.logger.Info("gRPC request completed", args...)
}

func codeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Internal
}
