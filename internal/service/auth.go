package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/kychat-server/internal/apierrors"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
)

// SignupParams is the registration form.
type SignupParams struct {
	Email    string
	Password string
	Username string
	Name     string
}

type Auth struct {
	userStore    model.UserStore
	hasher       *PasswordHasher
	tokenService *TokenService
	logger       *logger.Logger
	now          func() time.Time
}

func NewAuth(
	userStore model.UserStore,
	hasher *PasswordHasher,
	tokenService *TokenService,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore:    userStore,
		hasher:       hasher,
		tokenService: tokenService,
		logger:       logger,
		now:          time.Now,
	}
}

// Signup creates a regular account and returns an access token for it.
func (a *Auth) Signup(ctx context.Context, params SignupParams) (string, error) {
	email := strings.TrimSpace(params.Email)
	username := strings.TrimSpace(params.Username)

	a.logger.Debug("Auth service: starting user registration",
		"email", email)

	if email == "" || username == "" || params.Password == "" {
		return "", apierrors.NewErrBadRequest("email, username and password are required")
	}

	_, err := a.userStore.GetByEmail(ctx, email)
	if err == nil {
		a.logger.Info("Auth service: email already registered",
			"email", email)
		return "", apierrors.NewErrEmailIsTaken()
	}
	if !errors.Is(err, model.ErrNotFound) {
		return "", fmt.Errorf("failed to get user by email: %w", err)
	}

	_, err = a.userStore.GetByUsername(ctx, username)
	if err == nil {
		return "", apierrors.NewErrUsernameIsTaken()
	}
	if !errors.Is(err, model.ErrNotFound) {
		return "", fmt.Errorf("failed to get user by username: %w", err)
	}

	hash, err := a.hasher.Hash(params.Password)
	if err != nil {
		return "", err
	}

	now := a.now()
	user, err := a.userStore.Create(ctx, model.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		Name:         strings.TrimSpace(params.Name),
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, model.ErrAlreadyExists) {
		return "", apierrors.NewErrEmailIsTaken()
	}
	if err != nil {
		a.logger.Error("Auth service: failed to create user",
			"email", email,
			"error", err.Error())
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := a.tokenService.Issue(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	a.logger.Info("Auth service: user registered",
		"user_id", user.ID)

	return token, nil
}

// Signin authenticates by email or username.
func (a *Auth) Signin(ctx context.Context, identifier, password string) (string, error) {
	identifier = strings.TrimSpace(identifier)

	user, err := a.userStore.GetByIdentifier(ctx, identifier)
	if errors.Is(err, model.ErrNotFound) {
		return "", apierrors.NewErrInvalidCredentials()
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user by identifier: %w", err)
	}

	if !a.hasher.Verify(user.PasswordHash, password) {
		a.logger.Info("Auth service: password mismatch",
			"user_id", user.ID)
		return "", apierrors.NewErrInvalidCredentials()
	}

	token, err := a.tokenService.Issue(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	return token, nil
}

// CheckUsername fails if any account already uses username.
func (a *Auth) CheckUsername(ctx context.Context, username string) error {
	_, err := a.userStore.GetByUsername(ctx, username)
	if err == nil {
		return apierrors.NewErrUsernameIsTaken()
	}
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("failed to get user by username: %w", err)
}
