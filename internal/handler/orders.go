package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/cafe-pos/api/internal/enum"
	mw "github.com/cafe-pos/api/internal/middleware"
	"github.com/cafe-pos/api/internal/model"
	"github.com/cafe-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// OrderService is the part of the lifecycle service the order endpoints use.
type OrderService interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (service.OrderView, error)
	ListOrders(ctx context.Context, f model.OrderFilter) ([]service.OrderView, error)
	AdvanceStatus(ctx context.Context, id uuid.UUID, status string) (model.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (model.Order, error)
}

type OrderHandler struct {
	svc OrderService
	log *logrus.Logger
}

func NewOrderHandler(svc OrderService, log *logrus.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log}
}

// RegisterRoutes is expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.With(mw.RequireRole(enum.UserRoleWaiter, enum.UserRoleCashier)).Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.With(mw.RequireRole(enum.UserRoleKitchen, enum.UserRoleWaiter, enum.UserRoleCashier)).Patch("/{id}/status", h.UpdateStatus)
	r.With(mw.RequireRole(enum.UserRoleWaiter, enum.UserRoleCashier)).Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableID int32                    `json:"table_id"`
	Notes   string                   `json:"notes"`
	Items   []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	model.Order
	RecomputedTotal decimal.Decimal `json:"recomputed_total"`
	Warnings        []string        `json:"warnings,omitempty"`
}

func toOrderResponse(v service.OrderView) orderResponse {
	resp := orderResponse{Order: v.Order, RecomputedTotal: v.Recomputed}
	if v.Mismatch != nil {
		resp.Warnings = append(resp.Warnings, v.Mismatch.Error())
	}
	return resp
}

// --- Handlers ---

// List handles GET /orders?table_id=&status=ready,completed&unpaid=true&limit=&offset=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f model.OrderFilter

	if v := q.Get("table_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid table_id")
			return
		}
		f.TableID = int32(id)
	}
	if v := q.Get("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if !enum.IsOrderStatus(s) {
				writeMessage(w, http.StatusBadRequest, "invalid status: "+s)
				return
			}
			f.Statuses = append(f.Statuses, s)
		}
	}
	unpaid, ok := boolQuery(w, r, "unpaid")
	if !ok {
		return
	}
	f.UnpaidOnly = unpaid
	for name, dst := range map[string]*int32{"limit": &f.Limit, "offset": &f.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil || n < 0 {
				writeMessage(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			*dst = int32(n)
		}
	}

	views, err := h.svc.ListOrders(r.Context(), f)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	out := make([]orderResponse, len(views))
	for i, v := range views {
		out[i] = toOrderResponse(v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TableID <= 0 {
		writeMessage(w, http.StatusBadRequest, "table_id is required")
		return
	}

	items := make([]service.CreateOrderItemRequest, 0, len(req.Items))
	for i, it := range req.Items {
		id, err := uuid.Parse(it.MenuItemID)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "items["+strconv.Itoa(i)+"]: invalid menu_item_id")
			return
		}
		items = append(items, service.CreateOrderItemRequest{MenuItemID: id, Quantity: it.Quantity})
	}

	claims := mw.ClaimsFromContext(r.Context())
	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		TableID:   req.TableID,
		CreatedBy: claims.UserID,
		Notes:     req.Notes,
		Items:     items,
	})
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "order")
	if !ok {
		return
	}
	v, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(v))
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "order")
	if !ok {
		return
	}
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == enum.OrderStatusCancelled {
		claims := mw.ClaimsFromContext(r.Context())
		if claims.Role == enum.UserRoleKitchen {
			writeMessage(w, http.StatusForbidden, "kitchen cannot cancel orders")
			return
		}
	}
	order, err := h.svc.AdvanceStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "order")
	if !ok {
		return
	}
	order, err := h.svc.CancelOrder(r.Context(), id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
