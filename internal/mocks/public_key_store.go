package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/kychat-server/internal/model"
)

type PublicKeyStore struct {
	mock.Mock
}

var _ model.PublicKeyStore = (*PublicKeyStore)(nil)

func (m *PublicKeyStore) Upsert(ctx context.Context, key model.PublicKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *PublicKeyStore) Get(ctx context.Context, channelID, userID uuid.UUID) (model.PublicKey, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Get(0).(model.PublicKey), args.Error(1)
}

func (m *PublicKeyStore) Delete(ctx context.Context, channelID, userID uuid.UUID) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *PublicKeyStore) DeleteByChannel(ctx context.Context, channelID uuid.UUID) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}
