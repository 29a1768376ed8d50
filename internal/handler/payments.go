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
	"github.com/sirupsen/logrus"
)

// PaymentService records and lists payments for a single order.
type PaymentService interface {
	RecordOrderPayment(ctx context.Context, req service.OrderPaymentRequest) (service.PaymentResult, error)
	ListOrderTransactions(ctx context.Context, orderID uuid.UUID) ([]model.Transaction, error)
}

type PaymentHandler struct {
	svc PaymentService
	log *logrus.Logger
}

func NewPaymentHandler(svc PaymentService, log *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, log: log}
}

// RegisterRoutes is expected to be mounted at /orders/{id}/payments.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.With(mw.RequireRole(enum.UserRoleCashier)).Post("/", h.Add)
	r.Get("/", h.List)
}

// Add handles POST /orders/{id}/payments. The order must be billing-eligible
// and unpaid; the amount is checked against the order's own bill.
func (h *PaymentHandler) Add(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id", "order")
	if !ok {
		return
	}
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	claims := mw.ClaimsFromContext(r.Context())

	res, err := h.svc.RecordOrderPayment(r.Context(), service.OrderPaymentRequest{
		OrderID:     orderID,
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

// List returns every transaction that settled the order, including
// table-wide payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id", "order")
	if !ok {
		return
	}
	txs, err := h.svc.ListOrderTransactions(r.Context(), orderID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}
