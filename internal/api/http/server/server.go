package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dtroode/kychat-server/internal/model"
)

const readHeaderTimeout = 10 * time.Second

// HTTPServer wraps an http.Server with address and lifecycle methods.
type HTTPServer struct {
	server *http.Server
	addr   string
}

var _ model.Server = (*HTTPServer)(nil)

// NewHTTPServer creates an HTTPServer for handler. onShutdown hooks run when
// Stop begins; hijacked websocket connections are not tracked by
// http.Server and must be closed by them.
func NewHTTPServer(handler http.Handler, addr string, onShutdown ...func()) *HTTPServer {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		// No read or write timeout: both would cut long-lived websockets.
		ReadHeaderTimeout: readHeaderTimeout,
	}
	for _, f := range onShutdown {
		srv.RegisterOnShutdown(f)
	}
	return &HTTPServer{server: srv, addr: addr}
}

// Start serves on a listener from securityLayer until Stop is called.
func (s *HTTPServer) Start(securityLayer model.SecurityLayer) error {
	listener, err := securityLayer.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop waits for in-flight requests until ctx expires.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) Address() string {
	return s.addr
}
