package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/kychat-server/internal/model"
)

type Pinger struct {
	mock.Mock
}

var _ model.Pinger = (*Pinger)(nil)

func (m *Pinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
