package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/kychat-server/internal/model"
)

// Notifier mocks the sink of server-initiated realtime messages.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(ctx context.Context, msg model.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
