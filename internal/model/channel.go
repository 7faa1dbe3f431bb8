package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChannelStore persists channels (pairings between two users).
type ChannelStore interface {
	Create(ctx context.Context, channel Channel) (Channel, error)
	GetByID(ctx context.Context, id uuid.UUID) (Channel, error)
	GetByKey(ctx context.Context, key string) (Channel, error)
	KeyExists(ctx context.Context, key string) (bool, error)
	// GetByMembers returns the paired channel between two users in either direction.
	GetByMembers(ctx context.Context, userID, partnerID uuid.UUID) (Channel, error)
	ListPaired(ctx context.Context, userID uuid.UUID) ([]Channel, error)
	ListOpenByOwner(ctx context.Context, ownerID uuid.UUID) ([]Channel, error)
	// Pair sets the partner and clears the key and note in one statement.
	Pair(ctx context.Context, id, partnerID uuid.UUID) error
	SetE2EE(ctx context.Context, id uuid.UUID, enabled bool) error
	UpdateNote(ctx context.Context, id uuid.UUID, note string) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByMembers(ctx context.Context, userID, partnerID uuid.UUID) error
}

// Channel is either open for joining via Key or paired with PartnerID, never both.
type Channel struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	PartnerID *uuid.UUID
	Key       *string
	Note      string
	IsE2EE    bool
	CreatedAt time.Time
}

// IsPaired reports whether a partner has joined the channel.
func (c Channel) IsPaired() bool {
	return c.PartnerID != nil
}

// HasMember reports whether userID is the owner or the partner.
func (c Channel) HasMember(userID uuid.UUID) bool {
	if c.OwnerID == userID {
		return true
	}
	return c.PartnerID != nil && *c.PartnerID == userID
}

// PartnerOf returns the other member of the channel, if any.
func (c Channel) PartnerOf(userID uuid.UUID) (uuid.UUID, bool) {
	switch {
	case c.OwnerID == userID && c.PartnerID != nil:
		return *c.PartnerID, true
	case c.PartnerID != nil && *c.PartnerID == userID:
		return c.OwnerID, true
	default:
		return uuid.Nil, false
	}
}

// JoinRequestStore persists pending requests to join an open channel.
type JoinRequestStore interface {
	// Create is idempotent per (channel, user) and returns the stored request.
	Create(ctx context.Context, request JoinRequest) (JoinRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (JoinRequest, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID) ([]JoinRequest, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByChannel(ctx context.Context, channelID uuid.UUID) error
}

// JoinRequest is a user's request to pair with an open channel.
type JoinRequest struct {
	ID        uuid.UUID
	ChannelID uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
}

// PublicKeyStore persists per-channel public keys for end-to-end key exchange.
type PublicKeyStore interface {
	// Upsert stores the key and reports whether an existing row was replaced.
	Upsert(ctx context.Context, key PublicKey) (updated bool, err error)
	Get(ctx context.Context, channelID, userID uuid.UUID) (PublicKey, error)
	Delete(ctx context.Context, channelID, userID uuid.UUID) error
	DeleteByChannel(ctx context.Context, channelID uuid.UUID) error
}

// PublicKey is opaque key material; the server never inspects it.
type PublicKey struct {
	ChannelID uuid.UUID
	UserID    uuid.UUID
	PublicKey string
	CreatedAt time.Time
}
