package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cafe-pos/api/internal/auth"
	"github.com/cafe-pos/api/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuthStore defines the user lookups needed by auth handlers.
// Satisfied by every store backend; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
	log       *logrus.Logger
	// limit wraps the login endpoint; nil means unlimited.
	limit func(http.Handler) http.Handler
}

func NewAuthHandler(store AuthStore, jwtSecret string, log *logrus.Logger, limit func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, log: log, limit: limit}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	if h.limit != nil {
		r.With(h.limit).Post("/auth/login", h.Login)
	} else {
		r.Post("/auth/login", h.Login)
	}
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role}
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeMessage(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, h.log, r, err)
		return
	}

	if !auth.CheckPassword(user.HashedPassword, req.Password) {
		h.log.WithField("email", user.Email).Warn("failed login")
		writeMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondWithTokens(w, r, user)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeMessage(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	userID, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeMessage(w, http.StatusUnauthorized, "user not found")
			return
		}
		writeError(w, h.log, r, err)
		return
	}

	h.respondWithTokens(w, r, user)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, user model.User) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, user.ID, user.Role)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, user.ID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserResponse(user),
	})
}
