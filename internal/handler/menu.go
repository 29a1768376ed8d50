package handler

import (
	"context"
	"net/http"

	"github.com/cafe-pos/api/internal/enum"
	mw "github.com/cafe-pos/api/internal/middleware"
	"github.com/cafe-pos/api/internal/model"
	"github.com/cafe-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type MenuService interface {
	ListMenu(ctx context.Context, category string) ([]model.MenuItem, error)
	CreateMenuItem(ctx context.Context, req service.MenuItemRequest) (model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id uuid.UUID, req service.MenuItemRequest) (model.MenuItem, error)
	SetStock(ctx context.Context, id uuid.UUID, inStock bool) (model.MenuItem, error)
}

type MenuHandler struct {
	svc MenuService
	log *logrus.Logger
}

func NewMenuHandler(svc MenuService, log *logrus.Logger) *MenuHandler {
	return &MenuHandler{svc: svc, log: log}
}

// RegisterRoutes is expected to be mounted at /menu.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(enum.UserRoleAdmin))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}/stock", h.SetStock)
	})
}

type menuItemRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	InStock  *bool           `json:"in_stock"`
}

// toService defaults in_stock to true when omitted.
func (req menuItemRequest) toService() service.MenuItemRequest {
	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}
	return service.MenuItemRequest{Name: req.Name, Price: req.Price, Category: req.Category, InStock: inStock}
}

type stockRequest struct {
	InStock *bool `json:"in_stock"`
}

// List handles GET /menu?category=coffee.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListMenu(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.CreateMenuItem(r.Context(), req.toService())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "menu item")
	if !ok {
		return
	}
	var req menuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.UpdateMenuItem(r.Context(), id, req.toService())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *MenuHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "menu item")
	if !ok {
		return
	}
	var req stockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.InStock == nil {
		writeMessage(w, http.StatusBadRequest, "in_stock is required")
		return
	}
	item, err := h.svc.SetStock(r.Context(), id, *req.InStock)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
