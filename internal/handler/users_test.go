package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/cafe-pos/api/internal/auth"
	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/handler"
	"github.com/cafe-pos/api/internal/logging"
	"github.com/cafe-pos/api/internal/middleware"
	"github.com/cafe-pos/api/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// --- Mock store ---

type mockUserStore struct {
	users map[uuid.UUID]model.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]model.User)}
}

func (m *mockUserStore) CreateUser(_ context.Context, u model.User) (model.User, error) {
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return model.User{}, fmt.Errorf("email %s: %w", u.Email, model.ErrDuplicate)
		}
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) ListUsers(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func setupUserRouter(store *mockUserStore) *chi.Mux {
	h := handler.NewUserHandler(store, logging.Discard())
	return newAuthRouter("/users", func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		h.RegisterRoutes(r)
	})
}

func TestUserCreate_HashesPassword(t *testing.T) {
	store := newMockUserStore()
	rr := doAuthRequest(t, setupUserRouter(store), "POST", "/users", map[string]interface{}{
		"email":     " New.Cashier@Cafe.test ",
		"password":  "s3cret-pass",
		"full_name": "New Cashier",
		"role":      enum.UserRoleCashier,
	}, testClaims(enum.UserRoleAdmin))
	expectStatus(t, rr, http.StatusCreated)

	resp := decodeMap(t, rr)
	if resp["email"] != "new.cashier@cafe.test" {
		t.Errorf("email: got %v, want normalized", resp["email"])
	}
	if _, leaked := resp["hashed_password"]; leaked {
		t.Error("response must not include the password hash")
	}
	if len(store.users) != 1 {
		t.Fatalf("stored users: got %d, want 1", len(store.users))
	}
	for _, u := range store.users {
		if u.HashedPassword == "s3cret-pass" || !auth.CheckPassword(u.HashedPassword, "s3cret-pass") {
			t.Error("password should be stored as a bcrypt hash")
		}
	}
}

func TestUserCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing email", map[string]interface{}{"full_name": "X", "password": "longenough", "role": enum.UserRoleWaiter}},
		{"bad email", map[string]interface{}{"email": "nope", "full_name": "X", "password": "longenough", "role": enum.UserRoleWaiter}},
		{"short password", map[string]interface{}{"email": "a@b.test", "full_name": "X", "password": "short", "role": enum.UserRoleWaiter}},
		{"bad role", map[string]interface{}{"email": "a@b.test", "full_name": "X", "password": "longenough", "role": "OWNER"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, setupUserRouter(newMockUserStore()), "POST", "/users", tt.body, testClaims(enum.UserRoleAdmin))
			expectStatus(t, rr, http.StatusBadRequest)
		})
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)
	body := map[string]interface{}{"email": "dup@cafe.test", "full_name": "Dup", "password": "longenough", "role": enum.UserRoleKitchen}

	rr := doAuthRequest(t, router, "POST", "/users", body, testClaims(enum.UserRoleAdmin))
	expectStatus(t, rr, http.StatusCreated)

	rr = doAuthRequest(t, router, "POST", "/users", body, testClaims(enum.UserRoleAdmin))
	expectStatus(t, rr, http.StatusConflict)
}

func TestUserList_AdminOnly(t *testing.T) {
	store := newMockUserStore()
	store.users[uuid.New()] = model.User{Email: "a@cafe.test", Role: enum.UserRoleWaiter}
	router := setupUserRouter(store)

	rr := doAuthRequest(t, router, "GET", "/users", nil, testClaims(enum.UserRoleCashier))
	expectStatus(t, rr, http.StatusForbidden)

	rr = doAuthRequest(t, router, "GET", "/users", nil, testClaims(enum.UserRoleAdmin))
	expectStatus(t, rr, http.StatusOK)
	if got := decodeList(t, rr); len(got) != 1 {
		t.Errorf("users: got %d, want 1", len(got))
	}
}
