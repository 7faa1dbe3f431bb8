package model

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MessageKind discriminates the two inbound event shapes.
type MessageKind string

const (
	// KindContent is a chat message addressed to a channel.
	KindContent MessageKind = "content"
	// KindControl is a control event carrying an event field.
	KindControl MessageKind = "control"
)

// Message is a routable unit addressed to exactly one recipient.
//
// Payload is the complete outbound frame with sender_id already set to
// SenderID. The router writes it as is to a live connection or stores it
// unchanged in the offline queue.
type Message struct {
	Kind        MessageKind
	SenderID    string
	RecipientID string
	ChannelID   string
	Payload     json.RawMessage
}

// NewNotice builds a server-initiated message. The sender, recipient and
// channel fields are set from the arguments and override the same keys in
// fields.
func NewNotice(kind MessageKind, senderID, recipientID, channelID string, fields map[string]any) (Message, error) {
	if recipientID == "" {
		return Message{}, ErrNoRecipient
	}

	body := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		body[k] = v
	}
	body["sender_id"] = senderID
	body["recipient_id"] = recipientID
	body["channel_id"] = channelID

	payload, err := json.Marshal(body)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode notice: %w", err)
	}

	return Message{
		Kind:        kind,
		SenderID:    senderID,
		RecipientID: recipientID,
		ChannelID:   channelID,
		Payload:     payload,
	}, nil
}

// QueuedMessage is a message persisted for an offline recipient.
type QueuedMessage struct {
	ID          int64
	RecipientID string
	SenderID    string
	ChannelID   string
	Kind        MessageKind
	Payload     json.RawMessage
	EnqueuedAt  time.Time
}

// Message converts the queued row back to a routable message.
func (q QueuedMessage) Message() Message {
	return Message{
		Kind:        q.Kind,
		SenderID:    q.SenderID,
		RecipientID: q.RecipientID,
		ChannelID:   q.ChannelID,
		Payload:     q.Payload,
	}
}

// MessageQueue stores messages for recipients without a live connection.
type MessageQueue interface {
	// Enqueue appends msg to the recipient's queue, preserving insertion order.
	Enqueue(ctx context.Context, msg Message) error
	// Drain removes and returns every queued message for the recipient in
	// insertion order. A message is returned by at most one Drain.
	Drain(ctx context.Context, recipientID string) ([]QueuedMessage, error)
	// Pending returns the number of queued messages for the recipient.
	Pending(ctx context.Context, recipientID string) (int, error)
}
