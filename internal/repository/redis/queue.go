package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
)

var _ model.MessageQueue = (*Queue)(nil)

const sequenceKey = "queue:seq"

// Queue keeps one list per recipient. Entries are JSON envelopes appended
// with RPUSH, so list order is insertion order.
type Queue struct {
	client *redis.Client
	logger *logger.Logger
	now    func() time.Time
}

// NewQueue connects to redisURL and verifies the connection.
func NewQueue(ctx context.Context, redisURL string, logger *logger.Logger) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewQueueWithClient(client, logger), nil
}

// NewQueueWithClient wraps an existing client.
func NewQueueWithClient(client *redis.Client, logger *logger.Logger) *Queue {
	return &Queue{client: client, logger: logger, now: time.Now}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func queueKey(recipientID string) string {
	return fmt.Sprintf("queue:%s", recipientID)
}

type envelope struct {
	ID          int64             `json:"id"`
	SenderID    string            `json:"sender_id"`
	ChannelID   string            `json:"channel_id"`
	Kind        model.MessageKind `json:"kind"`
	Payload     json.RawMessage   `json:"payload"`
	EnqueuedAt  time.Time         `json:"enqueued_at"`
	RecipientID string            `json:"recipient_id"`
}

func (q *Queue) Enqueue(ctx context.Context, msg model.Message) error {
	id, err := q.client.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate message id: %w", err)
	}

	data, err := json.Marshal(envelope{
		ID:          id,
		SenderID:    msg.SenderID,
		ChannelID:   msg.ChannelID,
		Kind:        msg.Kind,
		Payload:     msg.Payload,
		EnqueuedAt:  q.now().UTC(),
		RecipientID: msg.RecipientID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode queued message: %w", err)
	}

	if err := q.client.RPush(ctx, queueKey(msg.RecipientID), data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}
	return nil
}

// Drain reads and deletes the list inside MULTI/EXEC, so no RPUSH can land
// between the read and the delete.
func (q *Queue) Drain(ctx context.Context, recipientID string) ([]model.QueuedMessage, error) {
	key := queueKey(recipientID)

	var lrange *redis.StringSliceCmd
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain queue: %w", err)
	}

	return q.decode(recipientID, lrange.Val()), nil
}

// decode converts drained entries. The list is already deleted, so an entry
// that does not decode is logged and skipped instead of failing the drain.
func (q *Queue) decode(recipientID string, entries []string) []model.QueuedMessage {
	messages := make([]model.QueuedMessage, 0, len(entries))
	for i, entry := range entries {
		var env envelope
		if err := json.Unmarshal([]byte(entry), &env); err != nil {
			q.logger.Error("Redis queue: skipping undecodable entry",
				"recipient_id", recipientID, "position", i, "error", err)
			continue
		}
		messages = append(messages, model.QueuedMessage{
			ID:          env.ID,
			RecipientID: recipientID,
			SenderID:    env.SenderID,
			ChannelID:   env.ChannelID,
			Kind:        env.Kind,
			Payload:     env.Payload,
			EnqueuedAt:  env.EnqueuedAt,
		})
	}
	return messages
}

func (q *Queue) Pending(ctx context.Context, recipientID string) (int, error) {
	n, err := q.client.LLen(ctx, queueKey(recipientID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count queued messages: %w", err)
	}
	return int(n), nil
}
