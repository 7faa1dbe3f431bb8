package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/kychat-server/internal/apierrors"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
)

const profilePhotoFolder = "profile"

type User struct {
	userStore model.UserStore
	storage   model.Storage
	logger    *logger.Logger
}

func NewUser(userStore model.UserStore, storage model.Storage, logger *logger.Logger) *User {
	return &User{userStore: userStore, storage: storage, logger: logger}
}

func (s *User) Profile(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, apierrors.NewErrUserNotFound()
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// EditProfile changes username and display name. The username must not
// belong to another account.
func (s *User) EditProfile(ctx context.Context, userID uuid.UUID, username, name string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apierrors.NewErrBadRequest("username is required")
	}

	if err := s.CheckUsername(ctx, userID, username); err != nil {
		return err
	}

	err := s.userStore.UpdateProfile(ctx, userID, username, strings.TrimSpace(name))
	switch {
	case errors.Is(err, model.ErrAlreadyExists):
		return apierrors.NewErrUsernameIsTaken()
	case errors.Is(err, model.ErrNotFound):
		return apierrors.NewErrUserNotFound()
	case err != nil:
		return fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("User service: profile updated",
		"user_id", userID)
	return nil
}

// CheckUsername fails only if username is owned by someone other than userID.
func (s *User) CheckUsername(ctx context.Context, userID uuid.UUID, username string) error {
	owner, err := s.userStore.GetByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user by username: %w", err)
	}
	if owner.ID != userID {
		return apierrors.NewErrUsernameIsTaken()
	}
	return nil
}

// UpdatePhoto stores a new profile photo and removes the previous one.
func (s *User) UpdatePhoto(ctx context.Context, userID uuid.UUID, upload Upload) (string, error) {
	if upload.family() != "image" {
		return "", apierrors.NewErrUnsupportedFileType()
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := s.storage.Upload(ctx, objectKey(profilePhotoFolder, upload.FileName), upload.Reader, upload.Size, upload.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload profile photo: %w", err)
	}

	if err := s.userStore.UpdatePhoto(ctx, userID, url); err != nil {
		s.removeObject(ctx, url)
		return "", fmt.Errorf("failed to update profile photo: %w", err)
	}

	if user.ProfilePhotoURL != "" {
		s.removeObject(ctx, user.ProfilePhotoURL)
	}

	s.logger.Info("User service: profile photo updated",
		"user_id", userID)
	return url, nil
}

// removeObject deletes the blob behind url. Foreign URLs are left alone.
func (s *User) removeObject(ctx context.Context, url string) {
	key, ok := s.storage.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("User service: failed to delete stored photo",
			"key", key,
			"error", err.Error())
	}
}
