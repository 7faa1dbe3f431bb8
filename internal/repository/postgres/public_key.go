package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/kychat-server/internal/model"
)

var _ model.PublicKeyStore = (*PublicKeyRepository)(nil)

type PublicKeyRepository struct {
	db *Connection
}

func NewPublicKeyRepository(db *Connection) *PublicKeyRepository {
	return &PublicKeyRepository{
		db: db,
	}
}

// Upsert reports updated=true when a key for the same channel and user was
// replaced. xmax is zero only for freshly inserted tuples.
func (r *PublicKeyRepository) Upsert(ctx context.Context, key model.PublicKey) (bool, error) {
	const query = `
		INSERT INTO public_keys (channel_id, user_id, public_key, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_id, user_id) DO UPDATE SET public_key = EXCLUDED.public_key
		RETURNING (xmax <> 0)`

	var updated bool
	if err := r.db.QueryRow(ctx, query, key.ChannelID, key.UserID, key.PublicKey, key.CreatedAt).Scan(&updated); err != nil {
		return false, fmt.Errorf("failed to upsert public key: %w", err)
	}
	return updated, nil
}

func (r *PublicKeyRepository) Get(ctx context.Context, channelID, userID uuid.UUID) (model.PublicKey, error) {
	const query = `SELECT channel_id, user_id, public_key, created_at FROM public_keys
				   WHERE channel_id = $1 AND user_id = $2`

	var key model.PublicKey
	err := r.db.QueryRow(ctx, query, channelID, userID).Scan(&key.ChannelID, &key.UserID, &key.PublicKey, &key.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PublicKey{}, model.ErrNotFound
		}
		return model.PublicKey{}, fmt.Errorf("failed to get public key: %w", err)
	}
	return key, nil
}

func (r *PublicKeyRepository) Delete(ctx context.Context, channelID, userID uuid.UUID) error {
	const query = `DELETE FROM public_keys WHERE channel_id = $1 AND user_id = $2`
	if _, err := r.db.Exec(ctx, query, channelID, userID); err != nil {
		return fmt.Errorf("failed to delete public key: %w", err)
	}
	return nil
}

func (r *PublicKeyRepository) DeleteByChannel(ctx context.Context, channelID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM public_keys WHERE channel_id = $1`, channelID); err != nil {
		return fmt.Errorf("failed to delete public keys of channel: %w", err)
	}
	return nil
}
