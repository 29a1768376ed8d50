package handler

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/cafe-pos/api/internal/auth"
	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserStore defines the store methods needed by user handlers.
// Satisfied by every store backend; narrow interface for testability.
type UserStore interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// UserHandler handles staff account endpoints.
type UserHandler struct {
	store UserStore
	log   *logrus.Logger
}

func NewUserHandler(store UserStore, log *logrus.Logger) *UserHandler {
	return &UserHandler{store: store, log: log}
}

// RegisterRoutes registers user endpoints. Expected to be mounted at /users
// behind an ADMIN role check.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
}

// --- Request / Response types ---

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type userDetailResponse struct {
	userResponse
	CreatedAt time.Time `json:"created_at"`
}

func toUserDetailResponse(u model.User) userDetailResponse {
	return userDetailResponse{userResponse: toUserResponse(u), CreatedAt: u.CreatedAt}
}

const minPasswordLength = 8

// --- Handlers ---

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	resp := make([]userDetailResponse, len(users))
	for i, u := range users {
		resp[i] = toUserDetailResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.FullName == "" {
		writeMessage(w, http.StatusBadRequest, "email and full_name are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeMessage(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if !enum.IsUserRole(req.Role) {
		writeMessage(w, http.StatusBadRequest, "invalid role")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), model.User{
		ID:             uuid.New(),
		Email:          req.Email,
		FullName:       req.FullName,
		HashedPassword: hash,
		Role:           req.Role,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicate) {
			writeMessage(w, http.StatusConflict, "email already exists")
			return
		}
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDetailResponse(user))
}
