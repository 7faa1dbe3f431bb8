package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/kychat-server/internal/api/http/response"
	"github.com/dtroode/kychat-server/internal/apierrors"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
	"github.com/dtroode/kychat-server/internal/service"
)

// ChannelService defines pairing, e2ee and key exchange operations.
type ChannelService interface {
	Create(ctx context.Context, userID uuid.UUID, note string) (model.Channel, error)
	Join(ctx context.Context, userID uuid.UUID, key string) (service.JoinResult, error)
	ListChats(ctx context.Context, userID uuid.UUID) ([]service.ChatSummary, error)
	GetChat(ctx context.Context, userID, partnerID uuid.UUID) (service.ChatSummary, error)
	GetChatDetails(ctx context.Context, userID, channelID uuid.UUID) (service.ChatSummary, error)
	DeleteChat(ctx context.Context, userID, partnerID uuid.UUID) error
	SetE2EE(ctx context.Context, userID, channelID uuid.UUID, enabled bool) error
	GetE2EEStatus(ctx context.Context, userID, partnerID uuid.UUID) (bool, error)
	StorePublicKey(ctx context.Context, userID, channelID uuid.UUID, publicKey string) error
	GetPublicKey(ctx context.Context, userID, channelID, partnerID uuid.UUID) (string, error)
	RefreshConnection(ctx context.Context, userID, channelID uuid.UUID) error
	KeysData(ctx context.Context, userID uuid.UUID) ([]service.KeyData, error)
	EditKeyNote(ctx context.Context, userID, channelID uuid.UUID, note string) error
	DeleteKey(ctx context.Context, userID, channelID uuid.UUID) error
	RejectRequest(ctx context.Context, userID, requestID uuid.UUID) error
	ApproveRequest(ctx context.Context, userID, requestID uuid.UUID) (service.JoinResult, error)
}

type createChannelRequest struct {
	Note string `json:"note"`
}

type createChannelResponse struct {
	Key       string    `json:"key"`
	ChannelID uuid.UUID `json:"channel_id"`
}

type joinChannelRequest struct {
	Key string `json:"key"`
}

type joinResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ChannelID uuid.UUID `json:"channel_id"`
	PartnerID uuid.UUID `json:"partner_id"`
}

type chatResponse struct {
	PartnerID      uuid.UUID         `json:"partner_id"`
	ChannelID      uuid.UUID         `json:"channel_id"`
	PartnerDetails model.UserProfile `json:"partner_details"`
	IsE2EE         bool              `json:"isE2ee"`
}

type chatsResponse struct {
	Chats []chatResponse `json:"chats"`
}

type getChatResponse struct {
	SenderDetails model.UserProfile `json:"sender_details"`
	ChannelID     uuid.UUID         `json:"channel_id"`
	IsE2EE        bool              `json:"isE2ee"`
}

type chatDetailsResponse struct {
	Success bool         `json:"success"`
	Chat    chatResponse `json:"chat"`
}

type e2eeRequest struct {
	IsE2EE *bool `json:"isE2ee"`
}

type e2eeStatusResponse struct {
	IsE2EE bool `json:"isE2ee"`
}

type storePublicKeyRequest struct {
	ChannelID string `json:"channel_id"`
	PublicKey string `json:"public_key"`
}

type getPublicKeyRequest struct {
	ChannelID string `json:"channel_id"`
	PartnerID string `json:"partner_id"`
}

type publicKeyResponse struct {
	Success   bool   `json:"success"`
	PublicKey string `json:"public_key"`
}

type keyResponse struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

type requesterResponse struct {
	Username        string `json:"username"`
	ProfilePhotoURL string `json:"profile_photo_url"`
}

type requestResponse struct {
	ID       uuid.UUID         `json:"id"`
	UserID   uuid.UUID         `json:"user_id"`
	UserData requesterResponse `json:"user_data"`
}

type keyDataResponse struct {
	Key      keyResponse       `json:"key"`
	Requests []requestResponse `json:"requests"`
}

type keysDataResponse struct {
	KeysData []keyDataResponse `json:"keys_data"`
}

type editKeyNoteRequest struct {
	KeyID string `json:"key_id"`
	Note  string `json:"note"`
}

type successMessage struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}

// Channel handles HTTP endpoints of channels, invite keys and public keys.
type Channel struct {
	channelService ChannelService
	contextManager ContextManager
	logger         *logger.Logger
}

// NewChannel creates a new Channel handler.
func NewChannel(channelService ChannelService, contextManager ContextManager, logger *logger.Logger) *Channel {
	return &Channel{
		channelService: channelService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Create opens a channel and returns its invite key.
func (h *Channel) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	var req createChannelRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(h.logger, w, "Channel handler: invalid create request", err)
		return
	}

	channel, err := h.channelService.Create(r.Context(), userID, req.Note)
	if err != nil {
		fail(h.logger, w, "Channel handler: create failed", err,
			"user_id", userID)
		return
	}

	var key string
	if channel.Key != nil {
		key = *channel.Key
	}
	response.JSON(w, http.StatusOK, createChannelResponse{Key: key, ChannelID: channel.ID})
}

// Join sends a join request for the channel behind an invite key.
func (h *Channel) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	var req joinChannelRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(h.logger, w, "Channel handler: invalid join request", err)
		return
	}

	result, err := h.channelService.Join(r.Context(), userID, req.Key)
	if err != nil {
		fail(h.logger, w, "Channel handler: join failed", err,
			"user_id", userID)
		return
	}

	response.JSON(w, http.StatusOK, joinResponse{
		Success:   true,
		Message:   "A request has been sent to the owner. Please wait for the response",
		ChannelID: result.ChannelID,
		PartnerID: result.PartnerID,
	})
}

func (h *Channel) ListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	chats, err := h.channelService.ListChats(r.Context(), userID)
	if err != nil {
		fail(h.logger, w, "Channel handler: list chats failed", err,
			"user_id", userID)
		return
	}

	body := chatsResponse{Chats: make([]chatResponse, 0, len(chats))}
	for _, chat := range chats {
		body.Chats = append(body.Chats, toChatResponse(chat))
	}
	response.JSON(w, http.StatusOK, body)
}

func (h *Channel) GetChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	partnerID, ok := h.param(w, r, "partnerID")
	if !ok {
		return
	}

	chat, err := h.channelService.GetChat(r.Context(), userID, partnerID)
	if err != nil {
		fail(h.logger, w, "Channel handler: get chat failed", err,
			"user_id", userID,
			"partner_id", partnerID)
		return
	}

	response.JSON(w, http.StatusOK, getChatResponse{
		SenderDetails: chat.Partner,
		ChannelID:     chat.ChannelID,
		IsE2EE:        chat.IsE2EE,
	})
}

func (h *Channel) GetChatDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	channelID, ok := h.param(w, r, "channelID")
	if !ok {
		return
	}

	chat, err := h.channelService.GetChatDetails(r.Context(), userID, channelID)
	if err != nil {
		fail(h.logger, w, "Channel handler: get chat details failed", err,
			"user_id", userID,
			"channel_id", channelID)
		return
	}

	response.JSON(w, http.StatusOK, chatDetailsResponse{Success: true, Chat: toChatResponse(chat)})
}

func (h *Channel) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	partnerID, ok := h.param(w, r, "partnerID")
	if !ok {
		return
	}

	if err := h.channelService.DeleteChat(r.Context(), userID, partnerID); err != nil {
		fail(h.logger, w, "Channel handler: delete chat failed", err,
			"user_id", userID,
			"partner_id", partnerID)
		return
	}

	response.JSON(w, http.StatusOK, message{Msg: "Channel deleted successfully"})
}

// SetE2EE toggles end-to-end encryption of a channel.
func (h *Channel) SetE2EE(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	channelID, ok := h.param(w, r, "channelID")
	if !ok {
		return
	}

	var req e2eeRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(h.logger, w, "Channel handler: invalid e2ee request", err)
		return
	}
	if req.IsE2EE == nil {
		fail(h.logger, w, "Channel handler: invalid e2ee request", apierrors.NewErrBadRequest("isE2ee is required"))
		return
	}

	if err := h.channelService.SetE2EE(r.Context(), userID, channelID, *req.IsE2EE); err != nil {
		fail(h.logger, w, "Channel handler: set e2ee failed", err,
			"user_id", userID,
			"channel_id", channelID)
		return
	}

	response.JSON(w, http.StatusOK, message{Msg: "E2ee toggled successfully"})
}

func (h *Channel) GetE2EEStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	partnerID, ok := h.param(w, r, "partnerID")
	if !ok {
		return
	}

	enabled, err := h.channelService.GetE2EEStatus(r.Context(), userID, partnerID)
	if err != nil {
		fail(h.logger, w, "Channel handler: get e2ee status failed", err,
			"user_id", userID,
			"partner_id", partnerID)
		return
	}

	response.JSON(w, http.StatusOK, e2eeStatusResponse{IsE2EE: enabled})
}

func (h *Channel) StorePublicKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	var req storePublicKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(h.logger, w, "Channel handler: invalid store public key request", err)
		return
	}
	channelID, err := parseID(req.ChannelID)
	if err != nil {
		fail(h.logger, w, "Channel handler: invalid store public key request", err)
		return
	}

	if err := h.channelService.StorePublicKey(r.Context(), userID, channelID, req.PublicKey); err != nil {
		fail(h.logger, w, "Channel handler: store public key failed", err,
			"user_id", userID,
			"channel_id", channelID)
		return
	}

	response.JSON(w, http.StatusOK, message{Msg: "Key stored successfully"})
}

func (h *Channel) GetPublicKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	var req getPublicKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(h.logger, w, "Channel handler: invalid get public key request", err)
		return
	}
	channelID, err := parseID(req.ChannelID)
	if err != nil {
		fail(h.logger, w, "Channel handler: invalid get public key request", err)
		return
	}
	partnerID, err := parseID(req.PartnerID)
	if err != nil {
		fail(h.logger, w, "Channel handler: invalid get public key request", err)
		return
	}

	key, err := h.channelService.GetPublicKey(r.Context(), userID, channelID, partnerID)
	if err != nil {
		fail(h.logger, w, "Channel handler: get public key failed", err,
			"user_id", userID,
			"channel_id", channelID)
		return
	}

	response.JSON(w, http.StatusOK, publicKeyResponse{Success: true, PublicKey: key})
}

// RefreshConnection asks the partner to fetch the caller's public key again.
func (h *Channel) RefreshConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	channelID, ok := h.param(w, r, "channelID")
	if !ok {
		return
	}

	if err := h.channelService.RefreshConnection(r.Context(), userID, channelID); err != nil {
		fail(h.logger, w, "Channel handler: refresh connection failed", err,
			"user_id", userID,
			"channel_id", channelID)
		return
	}

	response.JSON(w, http.StatusOK, result{Success: true, Message: "Request to refresh connection has been sent."})
}

// KeysData lists the caller's open invite keys with pending join requests.
func (h *Channel) KeysData(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	keys, err := h.channelService.KeysData(r.Context(), userID)
	if err != nil {
		fail(h.logger, w, "Channel handler: get keys data failed", err,
			"user_id", userID)
		return
	}

	body := keysDataResponse{KeysData: make([]keyDataResponse, 0, len(keys))}
	for _, data := range keys {
		item := keyDataResponse{
			Key: keyResponse{
				ID:        data.Channel.ID,
				Note:      data.Channel.Note,
				CreatedAt: data.Channel.CreatedAt,
			},
			Requests: make([]requestResponse, 0, len(data.Requests)),
		}
		if data.Channel.Key != nil {
			item.Key.Key = *data.Channel.Key
		}
		for _, req := range data.Requests {
			item.Requests = append(item.Requests, requestResponse{
				ID:     req.ID,
				UserID: req.UserID,
				UserData: requesterResponse{
					Username:        req.Username,
					ProfilePhotoURL: req.ProfilePhotoURL,
				},
			})
		}
		body.KeysData = append(body.KeysData, item)
	}
	response.JSON(w, http.StatusOK, body)
}

func (h *Channel) EditKeyNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	var req editKeyNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(h.logger, w, "Channel handler: invalid edit key note request", err)
		return
	}
	channelID, err := parseID(req.KeyID)
	if err != nil {
		fail(h.logger, w, "Channel handler: invalid edit key note request", err)
		return
	}

	if err := h.channelService.EditKeyNote(r.Context(), userID, channelID, req.Note); err != nil {
		fail(h.logger, w, "Channel handler: edit key note failed", err,
			"user_id", userID,
			"channel_id", channelID)
		return
	}

	response.JSON(w, http.StatusOK, successMessage{Success: true, Msg: "Note updated successfully"})
}

func (h *Channel) DeleteKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	channelID, ok := h.param(w, r, "keyID")
	if !ok {
		return
	}

	if err := h.channelService.DeleteKey(r.Context(), userID, channelID); err != nil {
		fail(h.logger, w, "Channel handler: delete key failed", err,
			"user_id", userID,
			"channel_id", channelID)
		return
	}

	response.JSON(w, http.StatusOK, successMessage{Success: true, Msg: "Key deleted successfully"})
}

func (h *Channel) RejectRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	requestID, ok := h.param(w, r, "requestID")
	if !ok {
		return
	}

	if err := h.channelService.RejectRequest(r.Context(), userID, requestID); err != nil {
		fail(h.logger, w, "Channel handler: reject request failed", err,
			"user_id", userID,
			"request_id", requestID)
		return
	}

	response.JSON(w, http.StatusOK, result{Success: true, Message: "Request rejected successfully."})
}

// ApproveRequest pairs the requester with the channel.
func (h *Channel) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	requestID, ok := h.param(w, r, "requestID")
	if !ok {
		return
	}

	res, err := h.channelService.ApproveRequest(r.Context(), userID, requestID)
	if err != nil {
		fail(h.logger, w, "Channel handler: approve request failed", err,
			"user_id", userID,
			"request_id", requestID)
		return
	}

	response.JSON(w, http.StatusOK, joinResponse{
		Success:   true,
		Message:   "Request approved successfully",
		ChannelID: res.ChannelID,
		PartnerID: res.PartnerID,
	})
}

func (h *Channel) user(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := currentUser(h.contextManager, r)
	if err != nil {
		fail(h.logger, w, "Channel handler: unauthenticated request", err)
		return uuid.Nil, false
	}
	return userID, true
}

func (h *Channel) param(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuidParam(r, name)
	if err != nil {
		fail(h.logger, w, "Channel handler: invalid path parameter", err,
			"param", name)
		return uuid.Nil, false
	}
	return id, true
}

func toChatResponse(chat service.ChatSummary) chatResponse {
	return chatResponse{
		PartnerID:      chat.PartnerID,
		ChannelID:      chat.ChannelID,
		PartnerDetails: chat.Partner,
		IsE2EE:         chat.IsE2EE,
	}
}
