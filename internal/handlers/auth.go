package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/code-hustle/apiserver/internal/metrics"
	"github.com/code-hustle/apiserver/internal/services"
	"github.com/code-hustle/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AuthHandler provides the registration and login endpoints.
type AuthHandler struct {
	users *services.UserService
	log   zerolog.Logger
}

func NewAuthHandler(users *services.UserService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, log: log}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, users *services.UserService, auth *AuthMiddleware, log zerolog.Logger) {
	handler := NewAuthHandler(users, log)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(auth.RequireAuth).Get("/me", handler.Me)
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

// AuthResponse is the success payload for register and login: the user's
// public fields plus a session token. The role is never client-settable.
type AuthResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

// Register creates a new user account and returns a session token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if details := validateStruct(req); details != nil {
		writeValidationError(w, details)
		return
	}

	user, signed, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			writeError(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.log.Error().Err(err).Msg("registration failed")
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	metrics.RegistrationsTotal.Inc()
	writeJSON(w, http.StatusCreated, authResponse(user, signed))
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if details := validateStruct(req); details != nil {
		writeValidationError(w, details)
		return
	}

	user, signed, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, authResponse(user, signed))
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func authResponse(user types.User, signed string) AuthResponse {
	return AuthResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Token:    signed,
	}
}
