package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRole distinguishes regular accounts from restricted guest accounts.
type UserRole string

const (
	// RoleUser is a regular account.
	RoleUser UserRole = "user"
	// RoleGuest cannot create, join or delete channels.
	RoleGuest UserRole = "guest"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	// GetByIdentifier matches either the email or the username.
	GetByIdentifier(ctx context.Context, identifier string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, username, name string) error
	UpdatePhoto(ctx context.Context, id uuid.UUID, photoURL string) error
}

// User represents a stored account.
type User struct {
	ID              uuid.UUID
	Email           string
	Username        string
	Name            string
	PasswordHash    []byte
	Role            UserRole
	ProfilePhotoURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsGuest reports whether the user has the guest role.
func (u User) IsGuest() bool {
	return u.Role == RoleGuest
}

// UserProfile is the public part of a user returned to other users.
type UserProfile struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email,omitempty"`
	Username        string    `json:"username"`
	Name            string    `json:"name"`
	ProfilePhotoURL string    `json:"profile_photo_url"`
}

// Profile strips authentication material from the user.
func (u User) Profile() UserProfile {
	return UserProfile{
		ID:              u.ID,
		Email:           u.Email,
		Username:        u.Username,
		Name:            u.Name,
		ProfilePhotoURL: u.ProfilePhotoURL,
	}
}

// PartnerProfile is the profile shown to a chat partner; email is omitted.
func (u User) PartnerProfile() UserProfile {
	p := u.Profile()
	p.Email = ""
	return p
}
