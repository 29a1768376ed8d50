package handler_test

import (
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

func setupTableRouter(svc *mockService) *chi.Mux {
	h := handler.NewTableHandler(svc, logging.Discard())
	return newAuthRouter("/tables", h.RegisterRoutes)
}

func TestTableList(t *testing.T) {
	svc := &mockService{
		listTablesFn: func(ctx context.Context) ([]model.Table, error) {
			return []model.Table{
				{ID: 1, Label: "T1", Status: enum.TableStatusAvailable},
				{ID: 2, Label: "T2", Status: enum.TableStatusOccupied},
			}, nil
		},
	}
	rr := doAuthRequest(t, setupTableRouter(svc), "GET", "/tables", nil, testClaims(enum.UserRoleWaiter))
	expectStatus(t, rr, http.StatusOK)

	got := decodeList(t, rr)
	if len(got) != 2 {
		t.Fatalf("tables: got %d, want 2", len(got))
	}
	if got[1]["status"] != enum.TableStatusOccupied {
		t.Errorf("status: got %v, want occupied", got[1]["status"])
	}
}

func TestTableCreate_RequiresAdmin(t *testing.T) {
	svc := &mockService{
		createTableFn: func(ctx context.Context, req service.CreateTableRequest) (model.Table, error) {
			return model.Table{ID: req.ID, Label: req.Label, Capacity: req.Capacity, Status: enum.TableStatusAvailable}, nil
		},
	}
	router := setupTableRouter(svc)
	body := map[string]interface{}{"id": 7, "label": "Patio", "capacity": 2}

	rr := doAuthRequest(t, router, "POST", "/tables", body, testClaims(enum.UserRoleWaiter))
	expectStatus(t, rr, http.StatusForbidden)

	rr = doAuthRequest(t, router, "POST", "/tables", body, testClaims(enum.UserRoleAdmin))
	expectStatus(t, rr, http.StatusCreated)
	if got := decodeMap(t, rr); got["label"] != "Patio" {
		t.Errorf("label: got %v, want Patio", got["label"])
	}
}

func TestTableCreate_Duplicate(t *testing.T) {
	svc := &mockService{
		createTableFn: func(ctx context.Context, req service.CreateTableRequest) (model.Table, error) {
			return model.Table{}, fmt.Errorf("table %d: %w", req.ID, service.ErrAlreadyExists)
		},
	}
	rr := doAuthRequest(t, setupTableRouter(svc), "POST", "/tables", map[string]interface{}{"id": 1}, testClaims(enum.UserRoleAdmin))
	expectStatus(t, rr, http.StatusConflict)
}

func TestTableGet_InvalidID(t *testing.T) {
	rr := doAuthRequest(t, setupTableRouter(&mockService{}), "GET", "/tables/abc", nil, testClaims(enum.UserRoleWaiter))
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestTableGet_NotFound(t *testing.T) {
	svc := &mockService{
		getTableFn: func(ctx context.Context, id int32) (model.Table, error) {
			return model.Table{}, fmt.Errorf("table %d: %w", id, model.ErrNotFound)
		},
	}
	rr := doAuthRequest(t, setupTableRouter(svc), "GET", "/tables/99", nil, testClaims(enum.UserRoleWaiter))
	expectStatus(t, rr, http.StatusNotFound)
}

func TestTableTransitions_Roles(t *testing.T) {
	tests := []struct {
		path string
		role string
		want int
		op   string
	}{
		{"/tables/3/occupy", enum.UserRoleWaiter, http.StatusOK, "occupy"},
		{"/tables/3/occupy", enum.UserRoleKitchen, http.StatusForbidden, ""},
		{"/tables/3/billing", enum.UserRoleCashier, http.StatusOK, "billing"},
		{"/tables/3/release", enum.UserRoleCashier, http.StatusOK, "release"},
		{"/tables/3/release", enum.UserRoleWaiter, http.StatusForbidden, ""},
		{"/tables/3/reserve", enum.UserRoleCashier, http.StatusForbidden, ""},
		{"/tables/3/reserve", enum.UserRoleAdmin, http.StatusOK, "reserve"},
		{"/tables/3/disable", enum.UserRoleAdmin, http.StatusOK, "disable"},
	}

	for _, tt := range tests {
		t.Run(tt.role+" "+tt.path, func(t *testing.T) {
			var called string
			svc := &mockService{
				tableTransitionFn: func(ctx context.Context, op string, id int32) (model.Table, error) {
					called = op
					if id != 3 {
						t.Errorf("table id: got %d, want 3", id)
					}
					return model.Table{ID: id}, nil
				},
			}
			rr := doAuthRequest(t, setupTableRouter(svc), "POST", tt.path, nil, testClaims(tt.role))
			expectStatus(t, rr, tt.want)
			if called != tt.op {
				t.Errorf("operation: got %q, want %q", called, tt.op)
			}
		})
	}
}

func TestTableRelease_OpenOrders(t *testing.T) {
	open := []uuid.UUID{uuid.New(), uuid.New()}
	svc := &mockService{
		tableTransitionFn: func(ctx context.Context, op string, id int32) (model.Table, error) {
			return model.Table{}, &service.OpenOrdersError{TableID: id, OrderIDs: open}
		},
	}
	rr := doAuthRequest(t, setupTableRouter(svc), "POST", "/tables/3/release", nil, testClaims(enum.UserRoleCashier))
	expectStatus(t, rr, http.StatusConflict)

	resp := decodeMap(t, rr)
	ids, ok := resp["open_orders"].([]interface{})
	if !ok || len(ids) != 2 {
		t.Fatalf("open_orders: got %v, want 2 ids", resp["open_orders"])
	}
	if ids[0] != open[0].String() {
		t.Errorf("open_orders[0]: got %v, want %s", ids[0], open[0])
	}
}

func TestTableTransition_Invalid(t *testing.T) {
	svc := &mockService{
		tableTransitionFn: func(ctx context.Context, op string, id int32) (model.Table, error) {
			return model.Table{}, &service.TransitionError{Entity: "table", ID: "3", From: enum.TableStatusAvailable, To: enum.TableStatusBilling}
		},
	}
	rr := doAuthRequest(t, setupTableRouter(svc), "POST", "/tables/3/billing", nil, testClaims(enum.UserRoleWaiter))
	expectStatus(t, rr, http.StatusConflict)
}

func TestTableReconcile(t *testing.T) {
	svc := &mockService{
		reconcileFn: func(ctx context.Context, id int32) (service.ReconcileResult, error) {
			return service.ReconcileResult{TableID: id, From: enum.TableStatusBilling, To: enum.TableStatusAvailable, Changed: true}, nil
		},
	}
	rr := doAuthRequest(t, setupTableRouter(svc), "POST", "/tables/5/reconcile", nil, testClaims(enum.UserRoleCashier))
	expectStatus(t, rr, http.StatusOK)

	resp := decodeMap(t, rr)
	if resp["changed"] != true || resp["to"] != enum.TableStatusAvailable {
		t.Errorf("reconcile: got %v", resp)
	}
}

func TestTableBill_ApplyTax(t *testing.T) {
	var gotOpts service.BillOptions
	svc := &mockService{
		billFn: func(ctx context.Context, id int32, opts service.BillOptions) (service.Bill, error) {
			gotOpts = opts
			return service.Bill{
				TableID:       id,
				Subtotal:      decimal.RequireFromString("980"),
				ServiceCharge: decimal.RequireFromString("98"),
				Tax:           decimal.RequireFromString("107.8"),
				Total:         decimal.RequireFromString("1185.8"),
				Currency:      "IDR",
			}, nil
		},
	}
	router := setupTableRouter(svc)

	rr := doAuthRequest(t, router, "GET", "/tables/2/bill?apply_tax=true", nil, testClaims(enum.UserRoleCashier))
	expectStatus(t, rr, http.StatusOK)
	if !gotOpts.ApplyTax {
		t.Error("apply_tax was not forwarded")
	}
	if resp := decodeMap(t, rr); resp["total"] != "1185.8" {
		t.Errorf("total: got %v, want 1185.8", resp["total"])
	}

	rr = doAuthRequest(t, router, "GET", "/tables/2/bill?apply_tax=maybe", nil, testClaims(enum.UserRoleCashier))
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestTablePay(t *testing.T) {
	claims := testClaims(enum.UserRoleCashier)
	txID := uuid.New()
	svc := &mockService{
		payFn: func(ctx context.Context, req service.PaymentRequest) (service.PaymentResult, error) {
			if req.TableID != 4 {
				t.Errorf("table_id: got %d, want 4", req.TableID)
			}
			if req.ProcessedBy != claims.UserID {
				t.Errorf("processed_by: got %v, want %v", req.ProcessedBy, claims.UserID)
			}
			if req.Amount == nil || !req.Amount.Equal(decimal.RequireFromString("1078")) {
				t.Errorf("amount: got %v, want 1078", req.Amount)
			}
			if req.Method != enum.PaymentMethodCash {
				t.Errorf("method: got %q", req.Method)
			}
			return service.PaymentResult{
				Transaction: model.Transaction{ID: txID, TableID: 4, Amount: *req.Amount, Method: req.Method, CreatedAt: time.Now()},
				Orders:      []model.Order{{ID: uuid.New(), TableID: 4, Status: enum.OrderStatusCompleted}},
				Table:       service.ReconcileResult{TableID: 4, From: enum.TableStatusBilling, To: enum.TableStatusAvailable, Changed: true},
			}, nil
		},
	}
	rr := doAuthRequest(t, setupTableRouter(svc), "POST", "/tables/4/payments",
		map[string]interface{}{"amount": "1078", "method": enum.PaymentMethodCash}, claims)
	expectStatus(t, rr, http.StatusCreated)

	resp := decodeMap(t, rr)
	tx, _ := resp["transaction"].(map[string]interface{})
	if tx["id"] != txID.String() {
		t.Errorf("transaction id: got %v, want %s", tx["id"], txID)
	}
	table, _ := resp["table"].(map[string]interface{})
	if table["to"] != enum.TableStatusAvailable {
		t.Errorf("table to: got %v", table["to"])
	}
}

func TestTablePay_AmountMismatch(t *testing.T) {
	svc := &mockService{
		payFn: func(ctx context.Context, req service.PaymentRequest) (service.PaymentResult, error) {
			return service.PaymentResult{}, &service.AmountMismatchError{
				Expected: decimal.RequireFromString("1078"),
				Got:      decimal.RequireFromString("1000"),
			}
		},
	}
	rr := doAuthRequest(t, setupTableRouter(svc), "POST", "/tables/4/payments",
		map[string]interface{}{"amount": "1000", "method": enum.PaymentMethodCash}, testClaims(enum.UserRoleCashier))
	expectStatus(t, rr, http.StatusUnprocessableEntity)

	resp := decodeMap(t, rr)
	if resp["expected"] != "1078.00" || resp["got"] != "1000.00" {
		t.Errorf("detail: got expected=%v got=%v", resp["expected"], resp["got"])
	}
}

func TestTablePay_WaiterForbidden(t *testing.T) {
	rr := doAuthRequest(t, setupTableRouter(&mockService{}), "POST", "/tables/4/payments",
		map[string]interface{}{"method": enum.PaymentMethodCash}, testClaims(enum.UserRoleWaiter))
	expectStatus(t, rr, http.StatusForbidden)
}

func TestTablePay_NothingToPay(t *testing.T) {
	svc := &mockService{
		payFn: func(ctx context.Context, req service.PaymentRequest) (service.PaymentResult, error) {
			return service.PaymentResult{}, service.ErrNothingToPay
		},
	}
	rr := doAuthRequest(t, setupTableRouter(svc), "POST", "/tables/4/payments",
		map[string]interface{}{"method": enum.PaymentMethodOnline}, testClaims(enum.UserRoleCashier))
	expectStatus(t, rr, http.StatusConflict)
}

func TestTableTransactions(t *testing.T) {
	svc := &mockService{
		tableTxFn: func(ctx context.Context, id int32) ([]model.Transaction, error) {
			return []model.Transaction{{ID: uuid.New(), TableID: id}}, nil
		},
	}
	rr := doAuthRequest(t, setupTableRouter(svc), "GET", "/tables/4/transactions", nil, testClaims(enum.UserRoleCashier))
	expectStatus(t, rr, http.StatusOK)
	if got := decodeList(t, rr); len(got) != 1 {
		t.Errorf("transactions: got %d, want 1", len(got))
	}
}

func TestTableInternalErrorHidden(t *testing.T) {
	svc := &mockService{
		listTablesFn: func(ctx context.Context) ([]model.Table, error) {
			return nil, fmt.Errorf("list tables: connection refused")
		},
	}
	rr := doAuthRequest(t, setupTableRouter(svc), "GET", "/tables", nil, testClaims(enum.UserRoleAdmin))
	expectStatus(t, rr, http.StatusInternalServerError)
	if resp := decodeMap(t, rr); resp["error"] != "internal server error" {
		t.Errorf("error: got %v", resp["error"])
	}
}
