package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cafe-pos/api/internal/enum"
	mw "github.com/cafe-pos/api/internal/middleware"
	"github.com/cafe-pos/api/internal/model"
	"github.com/cafe-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TableService is the part of the lifecycle service the table endpoints use.
type TableService interface {
	CreateTable(ctx context.Context, req service.CreateTableRequest) (model.Table, error)
	GetTable(ctx context.Context, id int32) (model.Table, error)
	ListTables(ctx context.Context) ([]model.Table, error)
	MarkOccupied(ctx context.Context, id int32) (model.Table, error)
	MarkBilling(ctx context.Context, id int32) (model.Table, error)
	MarkAvailable(ctx context.Context, id int32) (model.Table, error)
	Reserve(ctx context.Context, id int32) (model.Table, error)
	Disable(ctx context.Context, id int32) (model.Table, error)
	Reconcile(ctx context.Context, id int32) (service.ReconcileResult, error)
	ComputeTableTotal(ctx context.Context, id int32, opts service.BillOptions) (service.Bill, error)
	RecordPayment(ctx context.Context, req service.PaymentRequest) (service.PaymentResult, error)
	ListTableTransactions(ctx context.Context, id int32) ([]model.Transaction, error)
}

type TableHandler struct {
	svc TableService
	log *logrus.Logger
}

func NewTableHandler(svc TableService, log *logrus.Logger) *TableHandler {
	return &TableHandler{svc: svc, log: log}
}

// RegisterRoutes is expected to be mounted at /tables.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.With(mw.RequireRole(enum.UserRoleAdmin)).Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/bill", h.Bill)
		r.Get("/transactions", h.Transactions)

		r.With(mw.RequireRole(enum.UserRoleWaiter, enum.UserRoleCashier)).Post("/occupy", h.transition(h.svc.MarkOccupied))
		r.With(mw.RequireRole(enum.UserRoleWaiter, enum.UserRoleCashier)).Post("/billing", h.transition(h.svc.MarkBilling))
		r.With(mw.RequireRole(enum.UserRoleCashier)).Post("/release", h.transition(h.svc.MarkAvailable))
		r.With(mw.RequireRole(enum.UserRoleAdmin)).Post("/reserve", h.transition(h.svc.Reserve))
		r.With(mw.RequireRole(enum.UserRoleAdmin)).Post("/disable", h.transition(h.svc.Disable))
		r.With(mw.RequireRole(enum.UserRoleCashier)).Post("/reconcile", h.Reconcile)
		r.With(mw.RequireRole(enum.UserRoleCashier)).Post("/payments", h.Pay)
	})
}

// --- Request / Response types ---

type createTableRequest struct {
	ID       int32  `json:"id"`
	Label    string `json:"label"`
	Capacity int32  `json:"capacity"`
}

type paymentRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	Method   string           `json:"method"`
	ApplyTax bool             `json:"apply_tax"`
	Override bool             `json:"override"`
}

type paymentResponse struct {
	Transaction model.Transaction       `json:"transaction"`
	Orders      []model.Order           `json:"orders"`
	Table       service.ReconcileResult `json:"table"`
}

func toPaymentResponse(res service.PaymentResult) paymentResponse {
	return paymentResponse{Transaction: res.Transaction, Orders: res.Orders, Table: res.Table}
}

// --- Handlers ---

func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.svc.ListTables(r.Context())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.CreateTable(r.Context(), service.CreateTableRequest{ID: req.ID, Label: req.Label, Capacity: req.Capacity})
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := tableIDParam(w, r)
	if !ok {
		return
	}
	t, err := h.svc.GetTable(r.Context(), id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TableHandler) transition(fn func(context.Context, int32) (model.Table, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := tableIDParam(w, r)
		if !ok {
			return
		}
		t, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, h.log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func (h *TableHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := tableIDParam(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Reconcile(r.Context(), id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Bill handles GET /tables/{id}/bill?apply_tax=true.
func (h *TableHandler) Bill(w http.ResponseWriter, r *http.Request) {
	id, ok := tableIDParam(w, r)
	if !ok {
		return
	}
	applyTax, ok := boolQuery(w, r, "apply_tax")
	if !ok {
		return
	}
	bill, err := h.svc.ComputeTableTotal(r.Context(), id, service.BillOptions{ApplyTax: applyTax})
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// Pay settles every billing-eligible order on the table.
func (h *TableHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := tableIDParam(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	claims := mw.ClaimsFromContext(r.Context())

	res, err := h.svc.RecordPayment(r.Context(), service.PaymentRequest{
		TableID:     id,
		Amount:      req.Amount,
		Method:      req.Method,
		ApplyTax:    req.ApplyTax,
		Override:    req.Override,
		ProcessedBy: claims.UserID,
	})
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(res))
}

func (h *TableHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, ok := tableIDParam(w, r)
	if !ok {
		return
	}
	txs, err := h.svc.ListTableTransactions(r.Context(), id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func boolQuery(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid "+name)
		return false, false
	}
	return b, true
}
