package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dtroode/kychat-server/internal/api/http/response"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/service"
)

// AuthService defines user registration and login operations.
type AuthService interface {
	Signup(ctx context.Context, params service.SignupParams) (string, error)
	Signin(ctx context.Context, identifier, password string) (string, error)
	CheckUsername(ctx context.Context, username string) error
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type signinRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Auth handles HTTP endpoints for authentication.
type Auth struct {
	authService AuthService
	logger      *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, logger *logger.Logger) *Auth {
	return &Auth{
		authService: authService,
		logger:      logger,
	}
}

// Signup registers a user and returns an access token.
func (h *Auth) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(h.logger, w, "Auth handler: invalid signup request", err)
		return
	}

	h.logger.Debug("Auth handler: processing signup request",
		"email", req.Email,
		"username", req.Username)

	token, err := h.authService.Signup(r.Context(), service.SignupParams{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Name:     req.Name,
	})
	if err != nil {
		fail(h.logger, w, "Auth handler: signup failed", err,
			"email", req.Email)
		return
	}

	response.JSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Signin authenticates by email or username and returns an access token.
func (h *Auth) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(h.logger, w, "Auth handler: invalid signin request", err)
		return
	}

	h.logger.Debug("Auth handler: processing signin request",
		"identifier", req.Identifier)

	token, err := h.authService.Signin(r.Context(), req.Identifier, req.Password)
	if err != nil {
		fail(h.logger, w, "Auth handler: signin failed", err,
			"identifier", req.Identifier)
		return
	}

	response.JSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// CheckUsername reports whether a username is still free.
func (h *Auth) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if err := h.authService.CheckUsername(r.Context(), username); err != nil {
		fail(h.logger, w, "Auth handler: username check failed", err,
			"username", username)
		return
	}

	response.JSON(w, http.StatusOK, message{Msg: "Username available"})
}
