package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/metrics"
	"github.com/dtroode/kychat-server/internal/model"
)

// ErrReplayPending is returned by a live write that gave up waiting for the
// recipient's queue replay to finish.
var ErrReplayPending = errors.New("recipient is still replaying queued messages")

// replayWait bounds how long a live write waits for a reconnecting
// recipient's replay.
const replayWait = 2 * time.Second

// State is a session lifecycle phase.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateRegistered
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateRegistered:
		return "registered"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Deliverer routes one message to its recipient.
type Deliverer interface {
	Route(ctx context.Context, msg model.Message) (Outcome, error)
}

// Session runs the control loop of one authenticated connection.
type Session struct {
	identity  string
	transport Transport
	registry  *Registry
	router    Deliverer
	queue     model.MessageQueue
	limiter   *rate.Limiter
	logger    *logger.Logger
	state     atomic.Int32
}

// NewSession creates a session for an already authenticated identity. A nil
// limiter disables inbound rate limiting.
func NewSession(
	identity string,
	transport Transport,
	registry *Registry,
	router Deliverer,
	queue model.MessageQueue,
	limiter *rate.Limiter,
	logger *logger.Logger,
) *Session {
	s := &Session{
		identity:  identity,
		transport: transport,
		registry:  registry,
		router:    router,
		queue:     queue,
		limiter:   limiter,
		logger:    logger.With("identity", identity, "conn", transport.ID()),
	}
	s.state.Store(int32(StateAuthenticating))
	return s
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// Run registers the connection, replays queued messages and then relays
// inbound events until the connection fails or ctx is done. The
// registration is released on every return path.
func (s *Session) Run(ctx context.Context) error {
	gate := newReplayGate(s.transport)
	reg := s.registry.Register(s.identity, gate)
	s.setState(StateRegistered)
	s.logger.Info("Realtime session: registered")

	stop := context.AfterFunc(ctx, func() { _ = s.transport.Close() })

	defer func() {
		s.setState(StateClosing)
		stop()
		gate.open()
		removed := s.registry.Deregister(reg)
		_ = s.transport.Close()
		s.setState(StateClosed)
		s.logger.Info("Realtime session: closed", "deregistered", removed)
	}()

	err := s.replay(ctx)
	gate.open()
	if err != nil {
		return err
	}

	s.setState(StateActive)
	return s.receive(ctx)
}

// replay drains the offline queue and writes every message before any live
// traffic or inbound event is processed.
func (s *Session) replay(ctx context.Context) error {
	queued, err := s.queue.Drain(ctx, s.identity)
	if err != nil {
		s.logger.Error("Realtime session: failed to drain queue", "error", err)
		return err
	}

	for i, msg := range queued {
		if err := s.transport.Send(ctx, msg.Payload); err != nil {
			s.logger.Error("Realtime session: replay interrupted, drained messages lost",
				"lost", len(queued)-i, "error", err)
			return err
		}
		metrics.QueueDrainedTotal.Inc()
	}

	if len(queued) > 0 {
		s.logger.Info("Realtime session: replayed queued messages", "count", len(queued))
	}
	return nil
}

func (s *Session) receive(ctx context.Context) error {
	for {
		data, err := s.transport.Receive()
		if err != nil {
			if ctx.Err() != nil || isNormalClose(err) {
				return nil
			}
			s.logger.Info("Realtime session: read failed", "error", err)
			return err
		}

		if s.limiter != nil && !s.limiter.Allow() {
			metrics.RateLimitHits.WithLabelValues("realtime").Inc()
			s.logger.Warn("Realtime session: event dropped, rate limit exceeded")
			continue
		}

		msg, err := DecodeEvent(s.identity, data)
		if err != nil {
			metrics.MalformedEventsTotal.Inc()
			s.logger.Warn("Realtime session: malformed event dropped", "error", err)
			continue
		}

		// Route logs its own failures; none of them end the session.
		_, _ = s.router.Route(ctx, msg)
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
		errors.Is(err, ErrConnClosed)
}

// replayGate is the Conn registered for a session. Live writes wait until
// the session finished replaying the queue, so replayed messages always
// precede new traffic on the wire. A write that waits longer than wait fails
// with ErrReplayPending.
type replayGate struct {
	Transport
	ready chan struct{}
	once  sync.Once
	wait  time.Duration
}

func newReplayGate(t Transport) *replayGate {
	return &replayGate{Transport: t, ready: make(chan struct{}), wait: replayWait}
}

func (g *replayGate) open() {
	g.once.Do(func() { close(g.ready) })
}

func (g *replayGate) Send(ctx context.Context, payload []byte) error {
	select {
	case <-g.ready:
		return g.Transport.Send(ctx, payload)
	default:
	}

	timer := time.NewTimer(g.wait)
	defer timer.Stop()

	select {
	case <-g.ready:
	case <-timer.C:
		return ErrReplayPending
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.Transport.Send(ctx, payload)
}
