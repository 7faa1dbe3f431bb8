package model

import (
	"context"

	"github.com/google/uuid"
)

// TokenManager generates and validates access tokens.
type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID) (string, error)
	// ParseAccessToken returns the subject of a valid, unexpired token.
	ParseAccessToken(token string) (string, error)
}

// ContextManager carries the authenticated user through request contexts.
type ContextManager interface {
	SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context
	GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool)
}
