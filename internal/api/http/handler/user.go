package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dtroode/kychat-server/internal/api/http/response"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
	"github.com/dtroode/kychat-server/internal/service"
)

// UserService defines profile operations of the current user.
type UserService interface {
	Profile(ctx context.Context, userID uuid.UUID) (model.User, error)
	EditProfile(ctx context.Context, userID uuid.UUID, username, name string) error
	CheckUsername(ctx context.Context, userID uuid.UUID, username string) error
	UpdatePhoto(ctx context.Context, userID uuid.UUID, upload service.Upload) (string, error)
}

type editProfileRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

type photoResponse struct {
	Msg             string `json:"msg"`
	ProfilePhotoURL string `json:"profile_photo_url"`
}

// User handles HTTP endpoints of the authenticated user's profile.
type User struct {
	userService    UserService
	contextManager ContextManager
	maxUploadBytes int64
	logger         *logger.Logger
}

// NewUser creates a new User handler.
func NewUser(userService UserService, contextManager ContextManager, maxUploadBytes int64, logger *logger.Logger) *User {
	return &User{
		userService:    userService,
		contextManager: contextManager,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (h *User) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(h.contextManager, r)
	if err != nil {
		fail(h.logger, w, "User handler: unauthenticated request", err)
		return
	}

	user, err := h.userService.Profile(r.Context(), userID)
	if err != nil {
		fail(h.logger, w, "User handler: failed to get profile", err,
			"user_id", userID)
		return
	}

	response.JSON(w, http.StatusOK, user.Profile())
}

func (h *User) EditProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(h.contextManager, r)
	if err != nil {
		fail(h.logger, w, "User handler: unauthenticated request", err)
		return
	}

	var req editProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(h.logger, w, "User handler: invalid edit profile request", err)
		return
	}

	if err := h.userService.EditProfile(r.Context(), userID, req.Username, req.Name); err != nil {
		fail(h.logger, w, "User handler: failed to edit profile", err,
			"user_id", userID)
		return
	}

	response.JSON(w, http.StatusOK, message{Msg: "profile updated successfully"})
}

// UpdatePhoto replaces the profile photo with the uploaded image.
func (h *User) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(h.contextManager, r)
	if err != nil {
		fail(h.logger, w, "User handler: unauthenticated request", err)
		return
	}

	upload, file, err := readUpload(w, r, h.maxUploadBytes)
	if err != nil {
		fail(h.logger, w, "User handler: invalid photo upload", err,
			"user_id", userID)
		return
	}
	defer file.Close()

	url, err := h.userService.UpdatePhoto(r.Context(), userID, upload)
	if err != nil {
		fail(h.logger, w, "User handler: failed to update photo", err,
			"user_id", userID)
		return
	}

	response.JSON(w, http.StatusOK, photoResponse{Msg: "profile photo updated successfully", ProfilePhotoURL: url})
}

// CheckUsername reports whether a username is free or already the caller's.
func (h *User) CheckUsername(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(h.contextManager, r)
	if err != nil {
		fail(h.logger, w, "User handler: unauthenticated request", err)
		return
	}

	username := chi.URLParam(r, "username")
	if err := h.userService.CheckUsername(r.Context(), userID, username); err != nil {
		fail(h.logger, w, "User handler: username check failed", err,
			"user_id", userID,
			"username", username)
		return
	}

	response.JSON(w, http.StatusOK, message{Msg: "Username available"})
}
