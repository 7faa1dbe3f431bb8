package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/kychat-server/internal/model"
)

var _ model.JoinRequestStore = (*JoinRequestRepository)(nil)

type JoinRequestRepository struct {
	db *Connection
}

func NewJoinRequestRepository(db *Connection) *JoinRequestRepository {
	return &JoinRequestRepository{
		db: db,
	}
}

// Create inserts the request or returns the one already stored for the same
// channel and user.
func (r *JoinRequestRepository) Create(ctx context.Context, request model.JoinRequest) (model.JoinRequest, error) {
	query := `
		WITH ins AS (
			INSERT INTO join_requests (id, channel_id, user_id, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (channel_id, user_id) DO NOTHING
			RETURNING id, channel_id, user_id, created_at
		)
		SELECT id, channel_id, user_id, created_at FROM ins
		UNION ALL
		SELECT id, channel_id, user_id, created_at FROM join_requests
		WHERE NOT EXISTS (SELECT 1 FROM ins) AND channel_id = $2 AND user_id = $3
		LIMIT 1`

	var saved model.JoinRequest
	err := r.db.QueryRow(ctx, query, request.ID, request.ChannelID, request.UserID, request.CreatedAt).Scan(
		&saved.ID, &saved.ChannelID, &saved.UserID, &saved.CreatedAt,
	)
	if err != nil {
		return model.JoinRequest{}, fmt.Errorf("failed to create join request: %w", err)
	}

	return saved, nil
}

func (r *JoinRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (model.JoinRequest, error) {
	const query = `SELECT id, channel_id, user_id, created_at FROM join_requests WHERE id = $1`

	var request model.JoinRequest
	err := r.db.QueryRow(ctx, query, id).Scan(&request.ID, &request.ChannelID, &request.UserID, &request.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.JoinRequest{}, model.ErrNotFound
		}
		return model.JoinRequest{}, fmt.Errorf("failed to get join request by id: %w", err)
	}

	return request, nil
}

func (r *JoinRequestRepository) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]model.JoinRequest, error) {
	const query = `SELECT id, channel_id, user_id, created_at FROM join_requests
				   WHERE channel_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	defer rows.Close()

	var requests []model.JoinRequest
	for rows.Next() {
		var request model.JoinRequest
		if err := rows.Scan(&request.ID, &request.ChannelID, &request.UserID, &request.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan join request: %w", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}

	return requests, nil
}

func (r *JoinRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM join_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete join request: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *JoinRequestRepository) DeleteByChannel(ctx context.Context, channelID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM join_requests WHERE channel_id = $1`, channelID); err != nil {
		return fmt.Errorf("failed to delete join requests of channel: %w", err)
	}
	return nil
}
