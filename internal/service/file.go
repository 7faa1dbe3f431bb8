package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/kychat-server/internal/apierrors"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
)

const sharedFileFolder = "file"

var allowedFileFamilies = []string{"image", "video", "audio", "application"}

// Files stores transient attachments that expire after a fixed lifetime.
type Files struct {
	files    model.FileStore
	storage  model.Storage
	ttl      time.Duration
	maxBytes int64
	logger   *logger.Logger
	now      func() time.Time
}

// NewFiles creates the file service. A zero maxBytes disables the size check.
func NewFiles(files model.FileStore, storage model.Storage, ttl time.Duration, maxBytes int64, logger *logger.Logger) *Files {
	return &Files{
		files:    files,
		storage:  storage,
		ttl:      ttl,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Files) Upload(ctx context.Context, ownerID uuid.UUID, upload Upload) (model.SharedFile, error) {
	family := upload.family()
	if !slices.Contains(allowedFileFamilies, family) {
		return model.SharedFile{}, apierrors.NewErrUnsupportedFileType()
	}
	if s.maxBytes > 0 && upload.Size > s.maxBytes {
		return model.SharedFile{}, apierrors.NewErrFileTooLarge()
	}

	key := objectKey(sharedFileFolder, upload.FileName)
	url, err := s.storage.Upload(ctx, key, upload.Reader, upload.Size, upload.ContentType)
	if err != nil {
		return model.SharedFile{}, fmt.Errorf("failed to upload file: %w", err)
	}

	now := s.now()
	file, err := s.files.Create(ctx, model.SharedFile{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		FileName:  strings.TrimSpace(upload.FileName),
		FileType:  family,
		ObjectKey: key,
		URL:       url,
		Size:      upload.Size,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("File service: failed to remove orphaned object",
				"key", key,
				"error", delErr.Error())
		}
		return model.SharedFile{}, fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info("File service: file uploaded",
		"file_id", file.ID,
		"owner_id", ownerID,
		"size", upload.Size)
	return file, nil
}
