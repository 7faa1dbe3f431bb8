package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/kychat-server/internal/model"
)

type ChannelStore struct {
	mock.Mock
}

var _ model.ChannelStore = (*ChannelStore)(nil)

func (m *ChannelStore) Create(ctx context.Context, channel model.Channel) (model.Channel, error) {
	args := m.Called(ctx, channel)
	return args.Get(0).(model.Channel), args.Error(1)
}

func (m *ChannelStore) GetByID(ctx context.Context, id uuid.UUID) (model.Channel, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Channel), args.Error(1)
}

func (m *ChannelStore) GetByKey(ctx context.Context, key string) (model.Channel, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(model.Channel), args.Error(1)
}

func (m *ChannelStore) KeyExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *ChannelStore) GetByMembers(ctx context.Context, userID, partnerID uuid.UUID) (model.Channel, error) {
	args := m.Called(ctx, userID, partnerID)
	return args.Get(0).(model.Channel), args.Error(1)
}

func (m *ChannelStore) ListPaired(ctx context.Context, userID uuid.UUID) ([]model.Channel, error) {
	args := m.Called(ctx, userID)
	channels, _ := args.Get(0).([]model.Channel)
	return channels, args.Error(1)
}

func (m *ChannelStore) ListOpenByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Channel, error) {
	args := m.Called(ctx, ownerID)
	channels, _ := args.Get(0).([]model.Channel)
	return channels, args.Error(1)
}

func (m *ChannelStore) Pair(ctx context.Context, id, partnerID uuid.UUID) error {
	args := m.Called(ctx, id, partnerID)
	return args.Error(0)
}

func (m *ChannelStore) SetE2EE(ctx context.Context, id uuid.UUID, enabled bool) error {
	args := m.Called(ctx, id, enabled)
	return args.Error(0)
}

func (m *ChannelStore) UpdateNote(ctx context.Context, id uuid.UUID, note string) error {
	args := m.Called(ctx, id, note)
	return args.Error(0)
}

func (m *ChannelStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ChannelStore) DeleteByMembers(ctx context.Context, userID, partnerID uuid.UUID) error {
	args := m.Called(ctx, userID, partnerID)
	return args.Error(0)
}
