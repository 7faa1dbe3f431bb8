package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FileStore persists metadata of transient shared files.
type FileStore interface {
	Create(ctx context.Context, file SharedFile) (SharedFile, error)
	// ListExpired returns at most limit files whose expiry is before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]SharedFile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SharedFile is an uploaded attachment that is removed once it expires.
type SharedFile struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	FileName  string
	FileType  string
	ObjectKey string
	URL       string
	Size      int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
