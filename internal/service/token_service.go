package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
)

// TokenService issues access tokens and resolves them back to users.
type TokenService struct {
	manager model.TokenManager
	logger  *logger.Logger
}

func NewTokenService(manager model.TokenManager, logger *logger.Logger) *TokenService {
	return &TokenService{manager: manager, logger: logger}
}

func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	access, err := s.manager.GenerateAccessToken(userID)
	if err != nil {
		return "", fmt.Errorf("issue access: %w", err)
	}
	return access, nil
}

// GetUserID returns the user a bearer token was issued for.
func (s *TokenService) GetUserID(ctx context.Context, token string) (uuid.UUID, error) {
	subject, err := s.manager.ParseAccessToken(token)
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token subject: %w", err)
	}
	return userID, nil
}

// Resolve maps a websocket credential to the identity used for routing.
func (s *TokenService) Resolve(ctx context.Context, credential string) (string, error) {
	userID, err := s.GetUserID(ctx, credential)
	if err != nil {
		s.logger.Debug("Token service: credential rejected", "error", err)
		return "", err
	}
	return userID.String(), nil
}
