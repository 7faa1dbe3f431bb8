package middleware

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/testutil"
)

func TestLogging_HandleGRPC(t *testing.T) {
	t.Parallel()

	lg := NewLogging(testutil.MakeNoopLogger())

	tests := []struct {
		name     string
		handler  grpc.UnaryHandler
		wantCode codes.Code
	}{
		{
			name: "success path",
			handler: func(ctx context.Context, req interface{}) (interface{}, error) {
				time.Sleep(10 * time.Millisecond)
				return "ok", nil
			},
			wantCode: codes.OK,
		},
		{
			name: "grpc error propagates",
			handler: func(ctx context.Context, req interface{}) (interface{}, error) {
				return nil, status.Error(codes.Unavailable, "not serving")
			},
			wantCode: codes.Unavailable,
		},
		{
			name: "non-grpc error passes through",
			handler: func(ctx context.Context, req interface{}) (interface{}, error) {
				return nil, errors.New("boom")
			},
			wantCode: codes.Unknown,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := &grpc.UnaryServerInfo{FullMethod: "/svc/Method"}
			resp, err := lg.HandleGRPC(context.Background(), struct{}{}, info, tt.handler)

			if tt.wantCode == codes.OK {
				assert.NoError(t, err)
				assert.Equal(t, "ok", resp)
				return
			}
			assert.Equal(t, tt.wantCode, status.Code(err))
		})
	}
}

func TestLogging_Levels(t *testing.T) {
	t.Parallel()

	ok := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	tests := []struct {
		name      string
		method    string
		handler   grpc.UnaryHandler
		wantInfo  bool
		wantError bool
	}{
		{name: "health check stays quiet", method: grpc_health_v1.Health_Check_FullMethodName, handler: ok},
		{name: "other methods at info", method: "/svc/Method", handler: ok, wantInfo: true},
		{
			name:   "failures at error",
			method: grpc_health_v1.Health_Check_FullMethodName,
			handler: func(ctx context.Context, req interface{}) (interface{}, error) {
				return nil, status.Error(codes.NotFound, "unknown service")
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			lg := NewLogging(logger.NewWithWriter(&buf, 0, "text"))

			_, _ = lg.HandleGRPC(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, tt.handler)

			out := buf.String()
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("level=INFO")), out)
			assert.Equal(t, tt.wantError, bytes.Contains(buf.Bytes(), []byte("level=ERROR")), out)
		})
	}
}

type fakeStream struct {
	grpc.ServerStream
}

func (fakeStream) Context() context.Context { return context.Background() }

func TestLogging_HandleGRPCStream(t *testing.T) {
	t.Parallel()

	lg := NewLogging(testutil.MakeNoopLogger())
	info := &grpc.StreamServerInfo{FullMethod: grpc_health_v1.Health_Watch_FullMethodName}

	err := lg.HandleGRPCStream(nil, fakeStream{}, info, func(srv interface{}, ss grpc.ServerStream) error {
		return status.Error(codes.Canceled, "client gone")
	})
	assert.Equal(t, codes.Canceled, status.Code(err))
}
