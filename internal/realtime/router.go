package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/metrics"
	"github.com/dtroode/kychat-server/internal/model"
	"github.com/dtroode/kychat-server/internal/service"
)

// ErrDeliveryWrite is returned when a registered connection rejected the
// write. The message is not retried.
var ErrDeliveryWrite = errors.New("live delivery write failed")

var _ service.Notifier = (*Router)(nil)

// Outcome is the result of routing one message.
type Outcome int

const (
	// OutcomeDropped means the message reached neither the live
	// connection nor the queue.
	OutcomeDropped Outcome = iota
	OutcomeDelivered
	OutcomeQueued
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return metrics.OutcomeDelivered
	case OutcomeQueued:
		return metrics.OutcomeQueued
	default:
		return metrics.OutcomeDropped
	}
}

// ConnLookup reports the live connection of an identity.
type ConnLookup interface {
	Lookup(identity string) (Conn, bool)
}

// Router delivers a message to the recipient's live connection or, when
// none is registered, appends it to the offline queue.
type Router struct {
	registry            ConnLookup
	queue               model.MessageQueue
	queueOnWriteFailure bool
	logger              *logger.Logger
}

type RouterOption func(*Router)

// WithQueueOnWriteFailure queues messages whose live write failed instead of
// dropping them.
func WithQueueOnWriteFailure(enabled bool) RouterOption {
	return func(r *Router) {
		r.queueOnWriteFailure = enabled
	}
}

func NewRouter(registry ConnLookup, queue model.MessageQueue, logger *logger.Logger, opts ...RouterOption) *Router {
	r := &Router{
		registry: registry,
		queue:    queue,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route performs one lookup and at most one live write. The payload is
// stored unchanged when queued.
func (r *Router) Route(ctx context.Context, msg model.Message) (Outcome, error) {
	if msg.RecipientID == "" {
		metrics.DeliveryTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
		return OutcomeDropped, fmt.Errorf("%w: empty recipient", ErrMalformedEvent)
	}

	if conn, ok := r.registry.Lookup(msg.RecipientID); ok {
		err := conn.Send(ctx, msg.Payload)
		if err == nil {
			metrics.DeliveryTotal.WithLabelValues(metrics.OutcomeDelivered).Inc()
			r.logger.Debug("Delivery router: message delivered",
				"kind", msg.Kind, "sender_id", msg.SenderID, "recipient_id", msg.RecipientID, "conn", conn.ID())
			return OutcomeDelivered, nil
		}

		r.logger.Warn("Delivery router: live write failed",
			"kind", msg.Kind, "sender_id", msg.SenderID, "recipient_id", msg.RecipientID,
			"conn", conn.ID(), "error", err)

		if !r.queueOnWriteFailure {
			metrics.DeliveryTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
			return OutcomeDropped, fmt.Errorf("%w: %w", ErrDeliveryWrite, err)
		}
	}

	if err := r.queue.Enqueue(ctx, msg); err != nil {
		metrics.DeliveryTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		r.logger.Error("Delivery router: message lost, queue unavailable",
			"kind", msg.Kind, "sender_id", msg.SenderID, "recipient_id", msg.RecipientID, "error", err)
		return OutcomeDropped, fmt.Errorf("failed to queue message: %w", err)
	}

	metrics.DeliveryTotal.WithLabelValues(metrics.OutcomeQueued).Inc()
	r.logger.Debug("Delivery router: message queued",
		"kind", msg.Kind, "sender_id", msg.SenderID, "recipient_id", msg.RecipientID)
	return OutcomeQueued, nil
}

// Notify routes a server-initiated message. Only storage failures are
// reported; a dropped live write is already logged by Route.
func (r *Router) Notify(ctx context.Context, msg model.Message) error {
	_, err := r.Route(ctx, msg)
	if errors.Is(err, ErrDeliveryWrite) {
		return nil
	}
	return err
}
