package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/kychat-server/internal/model"
)

type JoinRequestStore struct {
	mock.Mock
}

var _ model.JoinRequestStore = (*JoinRequestStore)(nil)

func (m *JoinRequestStore) Create(ctx context.Context, request model.JoinRequest) (model.JoinRequest, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(model.JoinRequest), args.Error(1)
}

func (m *JoinRequestStore) GetByID(ctx context.Context, id uuid.UUID) (model.JoinRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.JoinRequest), args.Error(1)
}

func (m *JoinRequestStore) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]model.JoinRequest, error) {
	args := m.Called(ctx, channelID)
	requests, _ := args.Get(0).([]model.JoinRequest)
	return requests, args.Error(1)
}

func (m *JoinRequestStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *JoinRequestStore) DeleteByChannel(ctx context.Context, channelID uuid.UUID) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}
