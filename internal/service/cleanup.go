package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/metrics"
	"github.com/dtroode/kychat-server/internal/model"
)

// FileCleaner periodically removes expired shared files.
type FileCleaner struct {
	files    model.FileStore
	storage  model.Storage
	interval time.Duration
	batch    int
	logger   *logger.Logger
	now      func() time.Time
}

func NewFileCleaner(files model.FileStore, storage model.Storage, interval time.Duration, batch int, logger *logger.Logger) *FileCleaner {
	if batch <= 0 {
		batch = 100
	}
	return &FileCleaner{
		files:    files,
		storage:  storage,
		interval: interval,
		batch:    batch,
		logger:   logger,
		now:      time.Now,
	}
}

// Run cleans once immediately and then every interval until ctx is done.
func (c *FileCleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if _, err := c.Cleanup(ctx); err != nil {
			c.logger.Error("File cleaner: cleanup failed",
				"error", err.Error())
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cleanup deletes one batch of expired files, blob first, and returns how
// many were removed. A file whose blob could not be deleted keeps its row
// and is retried on the next run.
func (c *FileCleaner) Cleanup(ctx context.Context) (int, error) {
	expired, err := c.files.ListExpired(ctx, c.now(), c.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired files: %w", err)
	}

	removed := 0
	for _, file := range expired {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		if err := c.storage.Delete(ctx, file.ObjectKey); err != nil {
			c.logger.Warn("File cleaner: failed to delete object",
				"file_id", file.ID,
				"key", file.ObjectKey,
				"error", err.Error())
			continue
		}
		if err := c.files.Delete(ctx, file.ID); err != nil {
			c.logger.Warn("File cleaner: failed to delete file row",
				"file_id", file.ID,
				"error", err.Error())
			continue
		}

		removed++
		metrics.FilesExpiredTotal.Inc()
	}

	if removed > 0 {
		c.logger.Info("File cleaner: expired files removed",
			"count", removed)
	}
	return removed, nil
}
