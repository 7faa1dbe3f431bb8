package postgres

import (
	"context"
	"fmt"

	"github.com/dtroode/kychat-server/internal/model"
)

var _ model.MessageQueue = (*QueuedMessageRepository)(nil)

// QueuedMessageRepository is the durable offline queue. Order within a
// recipient follows the bigserial id.
type QueuedMessageRepository struct {
	db *Connection
}

func NewQueuedMessageRepository(db *Connection) *QueuedMessageRepository {
	return &QueuedMessageRepository{
		db: db,
	}
}

func (r *QueuedMessageRepository) Enqueue(ctx context.Context, msg model.Message) error {
	const query = `
		INSERT INTO queued_messages (recipient_id, sender_id, channel_id, kind, payload)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.Exec(ctx, query,
		msg.RecipientID, msg.SenderID, msg.ChannelID, string(msg.Kind), []byte(msg.Payload),
	); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}
	return nil
}

// Drain deletes and returns the recipient's rows in one statement, so a row
// is handed to at most one caller and rows inserted meanwhile stay queued.
func (r *QueuedMessageRepository) Drain(ctx context.Context, recipientID string) ([]model.QueuedMessage, error) {
	const query = `
		WITH drained AS (
			DELETE FROM queued_messages
			WHERE recipient_id = $1
			RETURNING id, recipient_id, sender_id, channel_id, kind, payload, enqueued_at
		)
		SELECT id, recipient_id, sender_id, channel_id, kind, payload, enqueued_at
		FROM drained
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to drain queue: %w", err)
	}
	defer rows.Close()

	var messages []model.QueuedMessage
	for rows.Next() {
		var (
			msg     model.QueuedMessage
			kind    string
			payload []byte
		)
		if err := rows.Scan(
			&msg.ID, &msg.RecipientID, &msg.SenderID, &msg.ChannelID, &kind, &payload, &msg.EnqueuedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queued message: %w", err)
		}
		msg.Kind = model.MessageKind(kind)
		msg.Payload = payload
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to drain queue: %w", err)
	}

	return messages, nil
}

func (r *QueuedMessageRepository) Pending(ctx context.Context, recipientID string) (int, error) {
	const query = `SELECT COUNT(*) FROM queued_messages WHERE recipient_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count queued messages: %w", err)
	}
	return count, nil
}
