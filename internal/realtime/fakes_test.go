package realtime

import (
	"context"
	"sync"

	"github.com/dtroode/kychat-server/internal/model"
)

type fakeTransport struct {
	id      string
	inbound chan []byte
	sendErr error

	mu   sync.Mutex
	sent [][]byte

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport(id string) *fakeTransport {
	return &fakeTransport{
		id:      id,
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) ID() string { return f.id }

func (f *fakeTransport) Send(ctx context.Context, payload []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	select {
	case <-f.closed:
		return ErrConnClosed
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, append([]byte(nil), payload...))
	return nil
}

func (f *fakeTransport) Receive() ([]byte, error) {
	select {
	case data, ok := <-f.inbound:
		if !ok {
			return nil, ErrConnClosed
		}
		return data, nil
	case <-f.closed:
		return nil, ErrConnClosed
	}
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

type recordingRouter struct {
	mu      sync.Mutex
	routed  []model.Message
	onRoute func(model.Message)
}

func (r *recordingRouter) Route(_ context.Context, msg model.Message) (Outcome, error) {
	if r.onRoute != nil {
		r.onRoute(msg)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routed = append(r.routed, msg)
	return OutcomeDelivered, nil
}

func (r *recordingRouter) Routed() []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Message(nil), r.routed...)
}

type failingQueue struct {
	err error
}

func (q failingQueue) Enqueue(context.Context, model.Message) error { return q.err }

func (q failingQueue) Drain(context.Context, string) ([]model.QueuedMessage, error) {
	return nil, q.err
}

func (q failingQueue) Pending(context.Context, string) (int, error) { return 0, q.err }
