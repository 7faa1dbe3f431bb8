package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/kychat-server/internal/mocks"
	"github.com/dtroode/kychat-server/internal/model"
	"github.com/dtroode/kychat-server/internal/service"
	"github.com/dtroode/kychat-server/internal/testutil"
)

func newAuthHandler(users *mocks.UserStore, manager *mocks.TokenManager) *Auth {
	log := testutil.MakeNoopLogger()
	hasher := service.NewPasswordHasher(bcrypt.MinCost)
	return NewAuth(service.NewAuth(users, hasher, service.NewTokenService(manager, log), log), log)
}

func TestAuth_Signup(t *testing.T) {
	t.Run("returns bearer token", func(t *testing.T) {
		users := &mocks.UserStore{}
		manager := &mocks.TokenManager{}
		users.On("GetByEmail", mock.Anything, "a@b.c").Return(model.User{}, model.ErrNotFound)
		users.On("GetByUsername", mock.Anything, "alice").Return(model.User{}, model.ErrNotFound)
		users.On("Create", mock.Anything, mock.AnythingOfType("model.User")).Return(model.User{ID: uuid.New()}, nil)
		manager.On("GenerateAccessToken", mock.Anything).Return("access", nil)

		h := newAuthHandler(users, manager)
		rec := serve(http.MethodPost, "/auth/signup", "/auth/signup",
			jsonBody(t, signupRequest{Email: "a@b.c", Password: "pw", Username: "alice", Name: "Alice"}),
			"application/json", uuid.Nil, h.Signup)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decodeBody[tokenResponse](t, rec)
		assert.Equal(t, "access", body.AccessToken)
		assert.Equal(t, "bearer", body.TokenType)
		users.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		users := &mocks.UserStore{}
		users.On("GetByEmail", mock.Anything, "a@b.c").Return(model.User{ID: uuid.New()}, nil)

		h := newAuthHandler(users, &mocks.TokenManager{})
		rec := serve(http.MethodPost, "/auth/signup", "/auth/signup",
			jsonBody(t, signupRequest{Email: "a@b.c", Password: "pw", Username: "alice"}),
			"application/json", uuid.Nil, h.Signup)

		requireDetail(t, rec, http.StatusBadRequest, "email already registered")
	})

	t.Run("malformed body", func(t *testing.T) {
		h := newAuthHandler(&mocks.UserStore{}, &mocks.TokenManager{})
		rec := serve(http.MethodPost, "/auth/signup", "/auth/signup",
			strings.NewReader("{"), "application/json", uuid.Nil, h.Signup)

		requireDetail(t, rec, http.StatusBadRequest, "invalid request body")
	})
}

func TestAuth_Signin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := model.User{ID: uuid.New(), Username: "alice", PasswordHash: hash}

	tests := []struct {
		name       string
		password   string
		lookupErr  error
		wantStatus int
		wantDetail string
	}{
		{name: "valid credentials", password: "secret", wantStatus: http.StatusOK},
		{name: "wrong password", password: "nope", wantStatus: http.StatusBadRequest, wantDetail: "invalid credentials"},
		{name: "unknown user", password: "secret", lookupErr: model.ErrNotFound, wantStatus: http.StatusBadRequest, wantDetail: "invalid credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mocks.UserStore{}
			manager := &mocks.TokenManager{}
			if tt.lookupErr != nil {
				users.On("GetByIdentifier", mock.Anything, "alice").Return(model.User{}, tt.lookupErr)
			} else {
				users.On("GetByIdentifier", mock.Anything, "alice").Return(stored, nil)
			}
			manager.On("GenerateAccessToken", stored.ID).Return("access", nil).Maybe()

			h := newAuthHandler(users, manager)
			rec := serve(http.MethodPost, "/auth/signin", "/auth/signin",
				jsonBody(t, signinRequest{Identifier: "alice", Password: tt.password}),
				"application/json", uuid.Nil, h.Signin)

			if tt.wantDetail != "" {
				requireDetail(t, rec, tt.wantStatus, tt.wantDetail)
				return
			}
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "access", decodeBody[tokenResponse](t, rec).AccessToken)
		})
	}
}

func TestAuth_CheckUsername(t *testing.T) {
	t.Run("available", func(t *testing.T) {
		users := &mocks.UserStore{}
		users.On("GetByUsername", mock.Anything, "alice").Return(model.User{}, model.ErrNotFound)

		h := newAuthHandler(users, &mocks.TokenManager{})
		rec := serve(http.MethodGet, "/auth/check_username/{username}", "/auth/check_username/alice",
			nil, "", uuid.Nil, h.CheckUsername)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Username available", decodeBody[message](t, rec).Msg)
	})

	t.Run("taken", func(t *testing.T) {
		users := &mocks.UserStore{}
		users.On("GetByUsername", mock.Anything, "alice").Return(model.User{ID: uuid.New()}, nil)

		h := newAuthHandler(users, &mocks.TokenManager{})
		rec := serve(http.MethodGet, "/auth/check_username/{username}", "/auth/check_username/alice",
			nil, "", uuid.Nil, h.CheckUsername)

		requireDetail(t, rec, http.StatusBadRequest, "username already exists")
	})
}
