package handler_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/handler"
	"github.com/cafe-pos/api/internal/logging"
	"github.com/cafe-pos/api/internal/model"
	"github.com/cafe-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func setupTransactionRouter(svc *mockService) *chi.Mux {
	h := handler.NewTransactionHandler(svc, logging.Discard())
	return newAuthRouter("/transactions", h.RegisterRoutes)
}

func TestReceipt_PDF(t *testing.T) {
	tx := model.Transaction{
		ID:        uuid.New(),
		TableID:   6,
		Amount:    decimal.RequireFromString("592.90"),
		Subtotal:  decimal.RequireFromString("539"),
		Method:    enum.PaymentMethodCash,
		CreatedAt: time.Now(),
	}
	settled := testOrder(6, enum.OrderStatusCompleted)
	settled.TransactionID = &tx.ID
	other := testOrder(6, enum.OrderStatusReady)

	var printed int
	svc := &mockService{
		getTxFn: func(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
			return tx, nil
		},
		listOrdersFn: func(ctx context.Context, f model.OrderFilter) ([]service.OrderView, error) {
			if f.TableID != 6 {
				t.Errorf("table filter: got %d, want 6", f.TableID)
			}
			printed++
			return []service.OrderView{{Order: settled}, {Order: other}}, nil
		},
		settingsFn: func(ctx context.Context) (model.Settings, error) {
			return model.Settings{CafeName: "Kopi", Currency: "IDR"}, nil
		},
	}

	rr := doAuthRequest(t, setupTransactionRouter(svc), "GET", "/transactions/"+tx.ID.String()+"/receipt.pdf", nil, testClaims(enum.UserRoleCashier))
	expectStatus(t, rr, http.StatusOK)

	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content-type: got %q", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
	if printed != 1 {
		t.Errorf("order lookups: got %d, want 1", printed)
	}
}

func TestReceipt_UnknownTransaction(t *testing.T) {
	svc := &mockService{
		getTxFn: func(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
			return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, model.ErrNotFound)
		},
	}
	rr := doAuthRequest(t, setupTransactionRouter(svc), "GET", "/transactions/"+uuid.NewString()+"/receipt.pdf", nil, testClaims(enum.UserRoleCashier))
	expectStatus(t, rr, http.StatusNotFound)
}

func TestTransactionGet(t *testing.T) {
	id := uuid.New()
	svc := &mockService{
		getTxFn: func(ctx context.Context, got uuid.UUID) (model.Transaction, error) {
			return model.Transaction{ID: got, Method: enum.PaymentMethodOnline}, nil
		},
	}
	rr := doAuthRequest(t, setupTransactionRouter(svc), "GET", "/transactions/"+id.String(), nil, testClaims(enum.UserRoleCashier))
	expectStatus(t, rr, http.StatusOK)
	if resp := decodeMap(t, rr); resp["id"] != id.String() {
		t.Errorf("id: got %v", resp["id"])
	}
}
