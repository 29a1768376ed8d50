package handler

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/cafe-pos/api/internal/model"
	"github.com/cafe-pos/api/internal/receipt"
	"github.com/cafe-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TransactionService is what the transaction endpoints need to look up a
// payment and the orders it settled.
type TransactionService interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (model.Transaction, error)
	ListOrders(ctx context.Context, f model.OrderFilter) ([]service.OrderView, error)
	Settings(ctx context.Context) (model.Settings, error)
}

type TransactionHandler struct {
	svc TransactionService
	log *logrus.Logger
}

func NewTransactionHandler(svc TransactionService, log *logrus.Logger) *TransactionHandler {
	return &TransactionHandler{svc: svc, log: log}
}

// RegisterRoutes is expected to be mounted at /transactions.
func (h *TransactionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
	r.Get("/{id}/receipt.pdf", h.Receipt)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "transaction")
	if !ok {
		return
	}
	tx, err := h.svc.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// Receipt renders the transaction as a PDF slip.
func (h *TransactionHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "transaction")
	if !ok {
		return
	}
	ctx := r.Context()

	tx, err := h.svc.GetTransaction(ctx, id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	views, err := h.svc.ListOrders(ctx, model.OrderFilter{TableID: tx.TableID})
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	var orders []model.Order
	for _, v := range views {
		if v.Order.TransactionID != nil && *v.Order.TransactionID == tx.ID {
			orders = append(orders, v.Order)
		}
	}
	settings, err := h.svc.Settings(ctx)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	var buf bytes.Buffer
	if err := receipt.Write(&buf, receipt.Receipt{Settings: settings, Transaction: tx, Orders: orders}); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="receipt-`+tx.ID.String()[:8]+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.WithError(err).Warn("write receipt")
	}
}
