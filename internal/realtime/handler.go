package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
	"github.com/dtroode/kychat-server/internal/service"
)

// ErrUnauthenticated is returned for a missing, invalid or expired credential.
var ErrUnauthenticated = errors.New("unauthenticated")

// IdentityResolver maps a bearer credential to a user identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (string, error)
}

var _ IdentityResolver = (*service.TokenService)(nil)

// HandlerOptions configures the websocket endpoint.
type HandlerOptions struct {
	Conn ConnOptions
	// AllowedOrigins restricts the Origin header; empty allows any.
	AllowedOrigins []string
	// EventRate is the per-session inbound event rate; zero disables limiting.
	EventRate  float64
	EventBurst int
}

// Handler upgrades authenticated requests and runs a Session per connection.
type Handler struct {
	resolver IdentityResolver
	registry *Registry
	router   Deliverer
	queue    model.MessageQueue
	opts     HandlerOptions
	upgrader websocket.Upgrader
	logger   *logger.Logger

	base     context.Context
	shutdown context.CancelFunc
}

func NewHandler(
	resolver IdentityResolver,
	registry *Registry,
	router Deliverer,
	queue model.MessageQueue,
	opts HandlerOptions,
	logger *logger.Logger,
) *Handler {
	base, cancel := context.WithCancel(context.Background())
	h := &Handler{
		resolver: resolver,
		registry: registry,
		router:   router,
		queue:    queue,
		opts:     opts,
		logger:   logger,
		base:     base,
		shutdown: cancel,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// Shutdown closes every running session.
func (h *Handler) Shutdown() {
	h.shutdown()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authenticate(r)
	if err != nil {
		h.logger.Info("Realtime handler: connection rejected", "remote", r.RemoteAddr, "error", err)
		writeUnauthorized(w)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Realtime handler: upgrade failed", "identity", identity, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	session := NewSession(identity, NewWSConn(ws, h.opts.Conn), h.registry, h.router, h.queue, h.newLimiter(), h.logger)
	if err := session.Run(ctx); err != nil {
		h.logger.Debug("Realtime handler: session ended with error", "identity", identity, "error", err)
	}
}

func (h *Handler) authenticate(r *http.Request) (string, error) {
	credential := r.URL.Query().Get("token")
	if credential == "" {
		return "", fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	identity, err := h.resolver.Resolve(r.Context(), credential)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if identity == "" {
		return "", fmt.Errorf("%w: empty identity", ErrUnauthenticated)
	}
	return identity, nil
}

func (h *Handler) newLimiter() *rate.Limiter {
	if h.opts.EventRate <= 0 {
		return nil
	}
	burst := h.opts.EventBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.opts.EventRate), burst)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.opts.AllowedOrigins, origin)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": "could not validate credentials"})
}
