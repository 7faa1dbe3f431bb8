package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/kychat-server/internal/model"
)

type FileStore struct {
	mock.Mock
}

var _ model.FileStore = (*FileStore)(nil)

func (m *FileStore) Create(ctx context.Context, file model.SharedFile) (model.SharedFile, error) {
	args := m.Called(ctx, file)
	return args.Get(0).(model.SharedFile), args.Error(1)
}

func (m *FileStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.SharedFile, error) {
	args := m.Called(ctx, now, limit)
	files, _ := args.Get(0).([]model.SharedFile)
	return files, args.Error(1)
}

func (m *FileStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
