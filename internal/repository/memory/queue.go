// Package memory provides a process-local offline queue for tests and
// single-node development. Queued messages do not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dtroode/kychat-server/internal/model"
)

var _ model.MessageQueue = (*Queue)(nil)

type Queue struct {
	mu     sync.Mutex
	seq    int64
	queues map[string][]model.QueuedMessage
	now    func() time.Time
}

func NewQueue() *Queue {
	return &Queue{
		queues: make(map[string][]model.QueuedMessage),
		now:    time.Now,
	}
}

func (q *Queue) Enqueue(ctx context.Context, msg model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	q.queues[msg.RecipientID] = append(q.queues[msg.RecipientID], model.QueuedMessage{
		ID:          q.seq,
		RecipientID: msg.RecipientID,
		SenderID:    msg.SenderID,
		ChannelID:   msg.ChannelID,
		Kind:        msg.Kind,
		Payload:     append([]byte(nil), msg.Payload...),
		EnqueuedAt:  q.now(),
	})
	return nil
}

func (q *Queue) Drain(ctx context.Context, recipientID string) ([]model.QueuedMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	messages := q.queues[recipientID]
	delete(q.queues, recipientID)
	return messages, nil
}

func (q *Queue) Pending(ctx context.Context, recipientID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.queues[recipientID]), nil
}
