package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/kychat-server/internal/apierrors"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
)

const maxKeyAttempts = 5

// Notice event names pushed to channel members.
const (
	EventJoinRequest     = "join_request"
	EventChannelPaired   = "channel_paired"
	EventUpdatePublicKey = "update_public_key"
	TypeE2EEStatus       = "e2ee_status"
)

// Notifier delivers a server-initiated message to its recipient.
type Notifier interface {
	Notify(ctx context.Context, msg model.Message) error
}

// ChatSummary describes a paired channel from one member's point of view.
type ChatSummary struct {
	ChannelID uuid.UUID
	PartnerID uuid.UUID
	Partner   model.UserProfile
	IsE2EE    bool
}

// JoinResult names the channel and the other side of a join or approval.
type JoinResult struct {
	ChannelID uuid.UUID
	PartnerID uuid.UUID
}

// PendingRequest is a join request together with the requester's profile.
type PendingRequest struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Username        string
	ProfilePhotoURL string
}

// KeyData is an open channel with its pending join requests.
type KeyData struct {
	Channel  model.Channel
	Requests []PendingRequest
}

type Channel struct {
	channels   model.ChannelStore
	requests   model.JoinRequestStore
	publicKeys model.PublicKeyStore
	users      model.UserStore
	notifier   Notifier
	logger     *logger.Logger
	generate   func() (string, error)
	now        func() time.Time
}

func NewChannel(
	channels model.ChannelStore,
	requests model.JoinRequestStore,
	publicKeys model.PublicKeyStore,
	users model.UserStore,
	notifier Notifier,
	logger *logger.Logger,
) *Channel {
	return &Channel{
		channels:   channels,
		requests:   requests,
		publicKeys: publicKeys,
		users:      users,
		notifier:   notifier,
		logger:     logger,
		generate:   generateKey,
		now:        time.Now,
	}
}

// Create opens a new channel owned by userID with a fresh invite key.
func (s *Channel) Create(ctx context.Context, userID uuid.UUID, note string) (model.Channel, error) {
	if err := s.forbidGuest(ctx, userID); err != nil {
		return model.Channel{}, err
	}

	key, err := s.uniqueKey(ctx)
	if err != nil {
		return model.Channel{}, err
	}

	channel, err := s.channels.Create(ctx, model.Channel{
		ID:        uuid.New(),
		OwnerID:   userID,
		Key:       &key,
		Note:      note,
		CreatedAt: s.now(),
	})
	if err != nil {
		return model.Channel{}, fmt.Errorf("failed to create channel: %w", err)
	}

	s.logger.Info("Channel service: channel created",
		"channel_id", channel.ID,
		"owner_id", userID)
	return channel, nil
}

// Join records a request to pair with the channel behind key and tells the
// owner about it. Repeated joins return the same request.
func (s *Channel) Join(ctx context.Context, userID uuid.UUID, key string) (JoinResult, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return JoinResult{}, err
	}
	if user.IsGuest() {
		return JoinResult{}, apierrors.NewErrGuestForbidden()
	}

	channel, err := s.channels.GetByKey(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		return JoinResult{}, apierrors.NewErrInvalidKey()
	}
	if err != nil {
		return JoinResult{}, fmt.Errorf("failed to get channel by key: %w", err)
	}
	if channel.OwnerID == userID {
		return JoinResult{}, apierrors.NewErrOwnChannel()
	}

	request, err := s.requests.Create(ctx, model.JoinRequest{
		ID:        uuid.New(),
		ChannelID: channel.ID,
		UserID:    userID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return JoinResult{}, fmt.Errorf("failed to create join request: %w", err)
	}

	s.notify(ctx, model.KindControl, userID, channel.OwnerID, channel.ID, map[string]any{
		"event":             EventJoinRequest,
		"request_id":        request.ID.String(),
		"username":          user.Username,
		"profile_photo_url": user.ProfilePhotoURL,
	})

	return JoinResult{ChannelID: channel.ID, PartnerID: channel.OwnerID}, nil
}

// ListChats returns every paired channel of userID with the partner profile.
func (s *Channel) ListChats(ctx context.Context, userID uuid.UUID) ([]ChatSummary, error) {
	channels, err := s.channels.ListPaired(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	chats := make([]ChatSummary, 0, len(channels))
	for _, channel := range channels {
		partnerID, ok := channel.PartnerOf(userID)
		if !ok {
			continue
		}
		partner, err := s.users.GetByID(ctx, partnerID)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get partner: %w", err)
		}
		chats = append(chats, ChatSummary{
			ChannelID: channel.ID,
			PartnerID: partnerID,
			Partner:   partner.PartnerProfile(),
			IsE2EE:    channel.IsE2EE,
		})
	}
	return chats, nil
}

// GetChat returns the channel userID shares with partnerID.
func (s *Channel) GetChat(ctx context.Context, userID, partnerID uuid.UUID) (ChatSummary, error) {
	channel, err := s.byMembers(ctx, userID, partnerID)
	if err != nil {
		return ChatSummary{}, err
	}
	return s.summary(ctx, channel, userID)
}

// GetChatDetails returns a channel the caller is a member of.
func (s *Channel) GetChatDetails(ctx context.Context, userID, channelID uuid.UUID) (ChatSummary, error) {
	channel, err := s.memberChannel(ctx, userID, channelID)
	if err != nil {
		return ChatSummary{}, err
	}
	if !channel.IsPaired() {
		return ChatSummary{}, apierrors.NewErrChannelNotFound()
	}
	return s.summary(ctx, channel, userID)
}

// DeleteChat removes the paired channel between userID and partnerID.
func (s *Channel) DeleteChat(ctx context.Context, userID, partnerID uuid.UUID) error {
	if err := s.forbidGuest(ctx, userID); err != nil {
		return err
	}

	channel, err := s.byMembers(ctx, userID, partnerID)
	if err != nil {
		return err
	}

	if err := s.publicKeys.DeleteByChannel(ctx, channel.ID); err != nil {
		return fmt.Errorf("failed to delete public keys: %w", err)
	}
	err = s.channels.DeleteByMembers(ctx, userID, partnerID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	s.logger.Info("Channel service: chat deleted",
		"channel_id", channel.ID,
		"user_id", userID)
	return nil
}

// SetE2EE toggles end-to-end encryption and informs the partner.
func (s *Channel) SetE2EE(ctx context.Context, userID, channelID uuid.UUID, enabled bool) error {
	channel, err := s.memberChannel(ctx, userID, channelID)
	if err != nil {
		return err
	}

	if err := s.channels.SetE2EE(ctx, channel.ID, enabled); err != nil {
		return fmt.Errorf("failed to set e2ee: %w", err)
	}

	subType := "disable"
	if enabled {
		subType = "enable"
	}
	if partnerID, ok := channel.PartnerOf(userID); ok {
		s.notify(ctx, model.KindContent, userID, partnerID, channel.ID, map[string]any{
			"type":      TypeE2EEStatus,
			"sub_type":  subType,
			"message":   "",
			"timestamp": s.now().UTC().Format(time.RFC3339Nano),
		})
	}
	return nil
}

// GetE2EEStatus reports whether the chat with partnerID is end-to-end encrypted.
func (s *Channel) GetE2EEStatus(ctx context.Context, userID, partnerID uuid.UUID) (bool, error) {
	channel, err := s.byMembers(ctx, userID, partnerID)
	if err != nil {
		return false, err
	}
	return channel.IsE2EE, nil
}

// StorePublicKey saves the caller's key for a channel. Replacing an existing
// key asks the partner to fetch it again.
func (s *Channel) StorePublicKey(ctx context.Context, userID, channelID uuid.UUID, publicKey string) error {
	if publicKey == "" {
		return apierrors.NewErrBadRequest("public_key is required")
	}

	channel, err := s.memberChannel(ctx, userID, channelID)
	if err != nil {
		return err
	}

	updated, err := s.publicKeys.Upsert(ctx, model.PublicKey{
		ChannelID: channel.ID,
		UserID:    userID,
		PublicKey: publicKey,
		CreatedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to store public key: %w", err)
	}

	if updated {
		s.notifyKeyUpdate(ctx, channel, userID)
	}
	return nil
}

// GetPublicKey returns the key partnerID stored for a channel.
func (s *Channel) GetPublicKey(ctx context.Context, userID, channelID, partnerID uuid.UUID) (string, error) {
	channel, err := s.memberChannel(ctx, userID, channelID)
	if err != nil {
		return "", err
	}
	if !channel.HasMember(partnerID) {
		return "", apierrors.NewErrUserNotFound()
	}

	key, err := s.publicKeys.Get(ctx, channel.ID, partnerID)
	if errors.Is(err, model.ErrNotFound) {
		return "", apierrors.NewErrPublicKeyNotFound()
	}
	if err != nil {
		return "", fmt.Errorf("failed to get public key: %w", err)
	}
	return key.PublicKey, nil
}

// RefreshConnection asks the partner to fetch the caller's key again.
func (s *Channel) RefreshConnection(ctx context.Context, userID, channelID uuid.UUID) error {
	channel, err := s.memberChannel(ctx, userID, channelID)
	if err != nil {
		return err
	}
	s.notifyKeyUpdate(ctx, channel, userID)
	return nil
}

// KeysData lists the caller's open channels with their pending requests.
func (s *Channel) KeysData(ctx context.Context, userID uuid.UUID) ([]KeyData, error) {
	channels, err := s.channels.ListOpenByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open channels: %w", err)
	}

	result := make([]KeyData, 0, len(channels))
	for _, channel := range channels {
		requests, err := s.requests.ListByChannel(ctx, channel.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list join requests: %w", err)
		}

		pending := make([]PendingRequest, 0, len(requests))
		for _, request := range requests {
			requester, err := s.users.GetByID(ctx, request.UserID)
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to get requester: %w", err)
			}
			pending = append(pending, PendingRequest{
				ID:              request.ID,
				UserID:          request.UserID,
				Username:        requester.Username,
				ProfilePhotoURL: requester.ProfilePhotoURL,
			})
		}

		result = append(result, KeyData{Channel: channel, Requests: pending})
	}
	return result, nil
}

func (s *Channel) EditKeyNote(ctx context.Context, userID, channelID uuid.UUID, note string) error {
	channel, err := s.ownedChannel(ctx, userID, channelID)
	if err != nil {
		return err
	}
	if err := s.channels.UpdateNote(ctx, channel.ID, note); err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return nil
}

// DeleteKey removes an owned channel with its requests and public keys.
func (s *Channel) DeleteKey(ctx context.Context, userID, channelID uuid.UUID) error {
	channel, err := s.ownedChannel(ctx, userID, channelID)
	if err != nil {
		return err
	}

	if err := s.requests.DeleteByChannel(ctx, channel.ID); err != nil {
		return fmt.Errorf("failed to delete join requests: %w", err)
	}
	if err := s.publicKeys.DeleteByChannel(ctx, channel.ID); err != nil {
		return fmt.Errorf("failed to delete public keys: %w", err)
	}
	err = s.channels.Delete(ctx, channel.ID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	s.logger.Info("Channel service: key deleted",
		"channel_id", channel.ID)
	return nil
}

// RejectRequest drops a join request on a channel the caller owns.
func (s *Channel) RejectRequest(ctx context.Context, userID, requestID uuid.UUID) error {
	request, channel, err := s.ownedRequest(ctx, userID, requestID)
	if err != nil {
		return err
	}

	err = s.requests.Delete(ctx, request.ID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to delete join request: %w", err)
	}
	err = s.publicKeys.Delete(ctx, channel.ID, request.UserID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to delete public key: %w", err)
	}
	return nil
}

// ApproveRequest pairs the requester with the channel, closes the invite and
// tells the requester.
func (s *Channel) ApproveRequest(ctx context.Context, userID, requestID uuid.UUID) (JoinResult, error) {
	request, channel, err := s.ownedRequest(ctx, userID, requestID)
	if err != nil {
		return JoinResult{}, err
	}

	err = s.channels.Pair(ctx, channel.ID, request.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return JoinResult{}, apierrors.NewErrChannelNotFound()
	}
	if err != nil {
		return JoinResult{}, fmt.Errorf("failed to pair channel: %w", err)
	}

	if err := s.requests.DeleteByChannel(ctx, channel.ID); err != nil {
		return JoinResult{}, fmt.Errorf("failed to delete join requests: %w", err)
	}

	s.notify(ctx, model.KindControl, userID, request.UserID, channel.ID, map[string]any{
		"event": EventChannelPaired,
	})

	s.logger.Info("Channel service: request approved",
		"channel_id", channel.ID,
		"partner_id", request.UserID)
	return JoinResult{ChannelID: channel.ID, PartnerID: request.UserID}, nil
}

func (s *Channel) uniqueKey(ctx context.Context) (string, error) {
	for range maxKeyAttempts {
		key, err := s.generate()
		if err != nil {
			return "", err
		}
		exists, err := s.channels.KeyExists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("failed to check key: %w", err)
		}
		if !exists {
			return key, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique key after %d attempts", maxKeyAttempts)
}

func (s *Channel) getUser(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, apierrors.NewErrUserNotFound()
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *Channel) forbidGuest(ctx context.Context, userID uuid.UUID) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsGuest() {
		return apierrors.NewErrGuestForbidden()
	}
	return nil
}

func (s *Channel) getChannel(ctx context.Context, channelID uuid.UUID) (model.Channel, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Channel{}, apierrors.NewErrChannelNotFound()
	}
	if err != nil {
		return model.Channel{}, fmt.Errorf("failed to get channel: %w", err)
	}
	return channel, nil
}

func (s *Channel) memberChannel(ctx context.Context, userID, channelID uuid.UUID) (model.Channel, error) {
	channel, err := s.getChannel(ctx, channelID)
	if err != nil {
		return model.Channel{}, err
	}
	if !channel.HasMember(userID) {
		return model.Channel{}, apierrors.NewErrNotChannelMember()
	}
	return channel, nil
}

// ownedChannel hides channels of other owners behind not found.
func (s *Channel) ownedChannel(ctx context.Context, userID, channelID uuid.UUID) (model.Channel, error) {
	channel, err := s.getChannel(ctx, channelID)
	if err != nil {
		return model.Channel{}, err
	}
	if channel.OwnerID != userID {
		return model.Channel{}, apierrors.NewErrChannelNotFound()
	}
	return channel, nil
}

func (s *Channel) ownedRequest(ctx context.Context, userID, requestID uuid.UUID) (model.JoinRequest, model.Channel, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if errors.Is(err, model.ErrNotFound) {
		return model.JoinRequest{}, model.Channel{}, apierrors.NewErrJoinRequestNotFound()
	}
	if err != nil {
		return model.JoinRequest{}, model.Channel{}, fmt.Errorf("failed to get join request: %w", err)
	}

	channel, err := s.ownedChannel(ctx, userID, request.ChannelID)
	if err != nil {
		return model.JoinRequest{}, model.Channel{}, err
	}
	return request, channel, nil
}

func (s *Channel) byMembers(ctx context.Context, userID, partnerID uuid.UUID) (model.Channel, error) {
	channel, err := s.channels.GetByMembers(ctx, userID, partnerID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Channel{}, apierrors.NewErrChannelNotFound()
	}
	if err != nil {
		return model.Channel{}, fmt.Errorf("failed to get channel by members: %w", err)
	}
	return channel, nil
}

func (s *Channel) summary(ctx context.Context, channel model.Channel, userID uuid.UUID) (ChatSummary, error) {
	partnerID, ok := channel.PartnerOf(userID)
	if !ok {
		return ChatSummary{}, apierrors.NewErrChannelNotFound()
	}
	partner, err := s.getUser(ctx, partnerID)
	if err != nil {
		return ChatSummary{}, err
	}
	return ChatSummary{
		ChannelID: channel.ID,
		PartnerID: partnerID,
		Partner:   partner.PartnerProfile(),
		IsE2EE:    channel.IsE2EE,
	}, nil
}

func (s *Channel) notifyKeyUpdate(ctx context.Context, channel model.Channel, userID uuid.UUID) {
	partnerID, ok := channel.PartnerOf(userID)
	if !ok {
		return
	}
	s.notify(ctx, model.KindControl, userID, partnerID, channel.ID, map[string]any{
		"event": EventUpdatePublicKey,
	})
}

// notify pushes a notice to recipient. The triggering change is already
// committed, so a failed push is only logged.
func (s *Channel) notify(ctx context.Context, kind model.MessageKind, sender, recipient, channelID uuid.UUID, fields map[string]any) {
	msg, err := model.NewNotice(kind, sender.String(), recipient.String(), channelID.String(), fields)
	if err == nil {
		err = s.notifier.Notify(ctx, msg)
	}
	if err != nil {
		s.logger.Error("Channel service: failed to push notice",
			"channel_id", channelID,
			"recipient_id", recipient,
			"error", err.Error())
	}
}
