package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	servermocks "github.com/dtroode/kychat-server/internal/mocks"
	"github.com/dtroode/kychat-server/internal/testutil"
)

func TestTokenService_Issue(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	manager := &servermocks.TokenManager{}
	manager.On("GenerateAccessToken", userID).Return("access", nil).Once()

	svc := NewTokenService(manager, testutil.MakeNoopLogger())

	access, err := svc.Issue(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "access", access)
	manager.AssertExpectations(t)
}

func TestTokenService_Issue_ManagerError(t *testing.T) {
	userID := uuid.New()

	manager := &servermocks.TokenManager{}
	manager.On("GenerateAccessToken", userID).Return("", assert.AnError).Once()

	svc := NewTokenService(manager, testutil.MakeNoopLogger())

	_, err := svc.Issue(context.Background(), userID)
	require.ErrorIs(t, err, assert.AnError)
}

func TestTokenService_GetUserID(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name     string
		subject  string
		parseErr error
		want     uuid.UUID
		wantErr  bool
	}{
		{name: "valid", subject: userID.String(), want: userID},
		{name: "parse error", parseErr: assert.AnError, wantErr: true},
		{name: "subject is not a uuid", subject: "alice", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := &servermocks.TokenManager{}
			manager.On("ParseAccessToken", "tok").Return(tt.subject, tt.parseErr).Once()

			svc := NewTokenService(manager, testutil.MakeNoopLogger())

			got, err := svc.GetUserID(context.Background(), "tok")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenService_Resolve(t *testing.T) {
	userID := uuid.New()

	manager := &servermocks.TokenManager{}
	manager.On("ParseAccessToken", "good").Return(userID.String(), nil).Once()
	manager.On("ParseAccessToken", "bad").Return("", assert.AnError).Once()

	svc := NewTokenService(manager, testutil.MakeNoopLogger())

	identity, err := svc.Resolve(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, userID.String(), identity)

	_, err = svc.Resolve(context.Background(), "bad")
	assert.Error(t, err)
}
