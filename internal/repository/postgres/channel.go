package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/kychat-server/internal/model"
)

var _ model.ChannelStore = (*ChannelRepository)(nil)

const channelColumns = `id, owner_id, partner_id, key, note, is_e2ee, created_at`

type ChannelRepository struct {
	db *Connection
}

func NewChannelRepository(db *Connection) *ChannelRepository {
	return &ChannelRepository{
		db: db,
	}
}

func scanChannel(row pgx.Row) (model.Channel, error) {
	var channel model.Channel
	err := row.Scan(
		&channel.ID, &channel.OwnerID, &channel.PartnerID, &channel.Key,
		&channel.Note, &channel.IsE2EE, &channel.CreatedAt,
	)
	return channel, err
}

func (r *ChannelRepository) Create(ctx context.Context, channel model.Channel) (model.Channel, error) {
	query := `INSERT INTO channels (id, owner_id, partner_id, key, note, is_e2ee, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING ` + channelColumns

	saved, err := scanChannel(r.db.QueryRow(ctx, query,
		channel.ID, channel.OwnerID, channel.PartnerID, channel.Key,
		channel.Note, channel.IsE2EE, channel.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.Channel{}, model.ErrAlreadyExists
		}
		return model.Channel{}, fmt.Errorf("failed to create channel: %w", err)
	}

	return saved, nil
}

func (r *ChannelRepository) getOne(ctx context.Context, what, where string, args ...any) (model.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE ` + where

	channel, err := scanChannel(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Channel{}, model.ErrNotFound
		}
		return model.Channel{}, fmt.Errorf("failed to get channel by %s: %w", what, err)
	}

	return channel, nil
}

func (r *ChannelRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Channel, error) {
	return r.getOne(ctx, "id", `id = $1`, id)
}

func (r *ChannelRepository) GetByKey(ctx context.Context, key string) (model.Channel, error) {
	return r.getOne(ctx, "key", `key = $1`, key)
}

func (r *ChannelRepository) GetByMembers(ctx context.Context, userID, partnerID uuid.UUID) (model.Channel, error) {
	return r.getOne(ctx, "members",
		`(owner_id = $1 AND partner_id = $2) OR (owner_id = $2 AND partner_id = $1)
		 ORDER BY created_at DESC LIMIT 1`,
		userID, partnerID)
}

func (r *ChannelRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM channels WHERE key = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check channel key: %w", err)
	}
	return exists, nil
}

func (r *ChannelRepository) list(ctx context.Context, what, where string, args ...any) ([]model.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE ` + where + ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s channels: %w", what, err)
	}
	defer rows.Close()

	var channels []model.Channel
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, channel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s channels: %w", what, err)
	}

	return channels, nil
}

func (r *ChannelRepository) ListPaired(ctx context.Context, userID uuid.UUID) ([]model.Channel, error) {
	return r.list(ctx, "paired", `partner_id IS NOT NULL AND (owner_id = $1 OR partner_id = $1)`, userID)
}

func (r *ChannelRepository) ListOpenByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Channel, error) {
	return r.list(ctx, "open", `owner_id = $1 AND key IS NOT NULL`, ownerID)
}

func (r *ChannelRepository) exec(ctx context.Context, what, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *ChannelRepository) Pair(ctx context.Context, id, partnerID uuid.UUID) error {
	return r.exec(ctx, "pair channel",
		`UPDATE channels SET partner_id = $2, key = NULL, note = '' WHERE id = $1 AND partner_id IS NULL`,
		id, partnerID)
}

func (r *ChannelRepository) SetE2EE(ctx context.Context, id uuid.UUID, enabled bool) error {
	return r.exec(ctx, "set channel e2ee", `UPDATE channels SET is_e2ee = $2 WHERE id = $1`, id, enabled)
}

func (r *ChannelRepository) UpdateNote(ctx context.Context, id uuid.UUID, note string) error {
	return r.exec(ctx, "update channel note", `UPDATE channels SET note = $2 WHERE id = $1`, id, note)
}

func (r *ChannelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "delete channel", `DELETE FROM channels WHERE id = $1`, id)
}

func (r *ChannelRepository) DeleteByMembers(ctx context.Context, userID, partnerID uuid.UUID) error {
	return r.exec(ctx, "delete channel by members",
		`DELETE FROM channels WHERE (owner_id = $1 AND partner_id = $2) OR (owner_id = $2 AND partner_id = $1)`,
		userID, partnerID)
}
