package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/kychat-server/internal/model"
)

var _ model.FileStore = (*FileRepository)(nil)

type FileRepository struct {
	db *Connection
}

func NewFileRepository(db *Connection) *FileRepository {
	return &FileRepository{
		db: db,
	}
}

func (r *FileRepository) Create(ctx context.Context, file model.SharedFile) (model.SharedFile, error) {
	const query = `
		INSERT INTO files (id, owner_id, file_name, file_type, object_key, url, size, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, owner_id, file_name, file_type, object_key, url, size, expires_at, created_at`

	var saved model.SharedFile
	err := r.db.QueryRow(ctx, query,
		file.ID, file.OwnerID, file.FileName, file.FileType, file.ObjectKey, file.URL,
		file.Size, file.ExpiresAt, file.CreatedAt,
	).Scan(
		&saved.ID, &saved.OwnerID, &saved.FileName, &saved.FileType, &saved.ObjectKey, &saved.URL,
		&saved.Size, &saved.ExpiresAt, &saved.CreatedAt,
	)
	if err != nil {
		return model.SharedFile{}, fmt.Errorf("failed to create file: %w", err)
	}

	return saved, nil
}

func (r *FileRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.SharedFile, error) {
	const query = `
		SELECT id, owner_id, file_name, file_type, object_key, url, size, expires_at, created_at
		FROM files
		WHERE expires_at < $1
		ORDER BY expires_at
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired files: %w", err)
	}
	defer rows.Close()

	var files []model.SharedFile
	for rows.Next() {
		var file model.SharedFile
		if err := rows.Scan(
			&file.ID, &file.OwnerID, &file.FileName, &file.FileType, &file.ObjectKey, &file.URL,
			&file.Size, &file.ExpiresAt, &file.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list expired files: %w", err)
	}

	return files, nil
}

func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
