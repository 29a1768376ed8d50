package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cafe-pos/api/internal/auth"
	"github.com/cafe-pos/api/internal/middleware"
	"github.com/cafe-pos/api/internal/model"
	"github.com/cafe-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const testJWTSecret = "test-secret-for-handlers"

var errUnexpected = errors.New("unexpected call")

// mockService satisfies every service interface the handlers declare.
// Unset fn fields fail with errUnexpected, which surfaces as a 500.
type mockService struct {
	createTableFn     func(ctx context.Context, req service.CreateTableRequest) (model.Table, error)
	getTableFn        func(ctx context.Context, id int32) (model.Table, error)
	listTablesFn      func(ctx context.Context) ([]model.Table, error)
	tableTransitionFn func(ctx context.Context, op string, id int32) (model.Table, error)
	reconcileFn       func(ctx context.Context, id int32) (service.ReconcileResult, error)
	reconcileAllFn    func(ctx context.Context) ([]service.ReconcileResult, error)
	billFn            func(ctx context.Context, id int32, opts service.BillOptions) (service.Bill, error)
	payFn             func(ctx context.Context, req service.PaymentRequest) (service.PaymentResult, error)
	payOrderFn        func(ctx context.Context, req service.OrderPaymentRequest) (service.PaymentResult, error)
	tableTxFn         func(ctx context.Context, id int32) ([]model.Transaction, error)
	orderTxFn         func(ctx context.Context, id uuid.UUID) ([]model.Transaction, error)
	getTxFn           func(ctx context.Context, id uuid.UUID) (model.Transaction, error)
	summaryFn         func(ctx context.Context, from, to time.Time) ([]service.MethodSummary, error)
	auditFn           func(ctx context.Context) ([]service.MismatchError, error)

	createOrderFn func(ctx context.Context, req service.CreateOrderRequest) (model.Order, error)
	getOrderFn    func(ctx context.Context, id uuid.UUID) (service.OrderView, error)
	listOrdersFn  func(ctx context.Context, f model.OrderFilter) ([]service.OrderView, error)
	advanceFn     func(ctx context.Context, id uuid.UUID, status string) (model.Order, error)
	cancelFn      func(ctx context.Context, id uuid.UUID) (model.Order, error)

	listMenuFn   func(ctx context.Context, category string) ([]model.MenuItem, error)
	createMenuFn func(ctx context.Context, req service.MenuItemRequest) (model.MenuItem, error)
	updateMenuFn func(ctx context.Context, id uuid.UUID, req service.MenuItemRequest) (model.MenuItem, error)
	setStockFn   func(ctx context.Context, id uuid.UUID, inStock bool) (model.MenuItem, error)

	settingsFn       func(ctx context.Context) (model.Settings, error)
	updateSettingsFn func(ctx context.Context, u service.SettingsUpdate) (model.Settings, error)
}

func (m *mockService) CreateTable(ctx context.Context, req service.CreateTableRequest) (model.Table, error) {
	if m.createTableFn == nil {
		return model.Table{}, errUnexpected
	}
	return m.createTableFn(ctx, req)
}

func (m *mockService) GetTable(ctx context.Context, id int32) (model.Table, error) {
	if m.getTableFn == nil {
		return model.Table{}, errUnexpected
	}
	return m.getTableFn(ctx, id)
}

func (m *mockService) ListTables(ctx context.Context) ([]model.Table, error) {
	if m.listTablesFn == nil {
		return nil, errUnexpected
	}
	return m.listTablesFn(ctx)
}

func (m *mockService) transition(ctx context.Context, op string, id int32) (model.Table, error) {
	if m.tableTransitionFn == nil {
		return model.Table{}, errUnexpected
	}
	return m.tableTransitionFn(ctx, op, id)
}

func (m *mockService) MarkOccupied(ctx context.Context, id int32) (model.Table, error) {
	return m.transition(ctx, "occupy", id)
}

func (m *mockService) MarkBilling(ctx context.Context, id int32) (model.Table, error) {
	return m.transition(ctx, "billing", id)
}

func (m *mockService) MarkAvailable(ctx context.Context, id int32) (model.Table, error) {
	return m.transition(ctx, "release", id)
}

func (m *mockService) Reserve(ctx context.Context, id int32) (model.Table, error) {
	return m.transition(ctx, "reserve", id)
}

func (m *mockService) Disable(ctx context.Context, id int32) (model.Table, error) {
	return m.transition(ctx, "disable", id)
}

func (m *mockService) Reconcile(ctx context.Context, id int32) (service.ReconcileResult, error) {
	if m.reconcileFn == nil {
		return service.ReconcileResult{}, errUnexpected
	}
	return m.reconcileFn(ctx, id)
}

func (m *mockService) ReconcileAll(ctx context.Context) ([]service.ReconcileResult, error) {
	if m.reconcileAllFn == nil {
		return nil, errUnexpected
	}
	return m.reconcileAllFn(ctx)
}

func (m *mockService) ComputeTableTotal(ctx context.Context, id int32, opts service.BillOptions) (service.Bill, error) {
	if m.billFn == nil {
		return service.Bill{}, errUnexpected
	}
	return m.billFn(ctx, id, opts)
}

func (m *mockService) RecordPayment(ctx context.Context, req service.PaymentRequest) (service.PaymentResult, error) {
	if m.payFn == nil {
		return service.PaymentResult{}, errUnexpected
	}
	return m.payFn(ctx, req)
}

func (m *mockService) RecordOrderPayment(ctx context.Context, req service.OrderPaymentRequest) (service.PaymentResult, error) {
	if m.payOrderFn == nil {
		return service.PaymentResult{}, errUnexpected
	}
	return m.payOrderFn(ctx, req)
}

func (m *mockService) ListTableTransactions(ctx context.Context, id int32) ([]model.Transaction, error) {
	if m.tableTxFn == nil {
		return nil, errUnexpected
	}
	return m.tableTxFn(ctx, id)
}

func (m *mockService) ListOrderTransactions(ctx context.Context, id uuid.UUID) ([]model.Transaction, error) {
	if m.orderTxFn == nil {
		return nil, errUnexpected
	}
	return m.orderTxFn(ctx, id)
}

func (m *mockService) GetTransaction(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	if m.getTxFn == nil {
		return model.Transaction{}, errUnexpected
	}
	return m.getTxFn(ctx, id)
}

func (m *mockService) PaymentSummary(ctx context.Context, from, to time.Time) ([]service.MethodSummary, error) {
	if m.summaryFn == nil {
		return nil, errUnexpected
	}
	return m.summaryFn(ctx, from, to)
}

func (m *mockService) AuditTotals(ctx context.Context) ([]service.MismatchError, error) {
	if m.auditFn == nil {
		return nil, errUnexpected
	}
	return m.auditFn(ctx)
}

func (m *mockService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (model.Order, error) {
	if m.createOrderFn == nil {
		return model.Order{}, errUnexpected
	}
	return m.createOrderFn(ctx, req)
}

func (m *mockService) GetOrder(ctx context.Context, id uuid.UUID) (service.OrderView, error) {
	if m.getOrderFn == nil {
		return service.OrderView{}, errUnexpected
	}
	return m.getOrderFn(ctx, id)
}

func (m *mockService) ListOrders(ctx context.Context, f model.OrderFilter) ([]service.OrderView, error) {
	if m.listOrdersFn == nil {
		return nil, errUnexpected
	}
	return m.listOrdersFn(ctx, f)
}

func (m *mockService) AdvanceStatus(ctx context.Context, id uuid.UUID, status string) (model.Order, error) {
	if m.advanceFn == nil {
		return model.Order{}, errUnexpected
	}
	return m.advanceFn(ctx, id, status)
}

func (m *mockService) CancelOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	if m.cancelFn == nil {
		return model.Order{}, errUnexpected
	}
	return m.cancelFn(ctx, id)
}

func (m *mockService) ListMenu(ctx context.Context, category string) ([]model.MenuItem, error) {
	if m.listMenuFn == nil {
		return nil, errUnexpected
	}
	return m.listMenuFn(ctx, category)
}

func (m *mockService) CreateMenuItem(ctx context.Context, req service.MenuItemRequest) (model.MenuItem, error) {
	if m.createMenuFn == nil {
		return model.MenuItem{}, errUnexpected
	}
	return m.createMenuFn(ctx, req)
}

func (m *mockService) UpdateMenuItem(ctx context.Context, id uuid.UUID, req service.MenuItemRequest) (model.MenuItem, error) {
	if m.updateMenuFn == nil {
		return model.MenuItem{}, errUnexpected
	}
	return m.updateMenuFn(ctx, id, req)
}

func (m *mockService) SetStock(ctx context.Context, id uuid.UUID, inStock bool) (model.MenuItem, error) {
	if m.setStockFn == nil {
		return model.MenuItem{}, errUnexpected
	}
	return m.setStockFn(ctx, id, inStock)
}

func (m *mockService) Settings(ctx context.Context) (model.Settings, error) {
	if m.settingsFn == nil {
		return model.Settings{}, errUnexpected
	}
	return m.settingsFn(ctx)
}

func (m *mockService) UpdateSettings(ctx context.Context, u service.SettingsUpdate) (model.Settings, error) {
	if m.updateSettingsFn == nil {
		return model.Settings{}, errUnexpected
	}
	return m.updateSettingsFn(ctx, u)
}

// --- Request helpers ---

// newAuthRouter mounts routes under prefix behind JWT authentication.
func newAuthRouter(prefix string, register func(chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route(prefix, register)
	return r
}

func testClaims(role string) *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Role: role}
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v; body: %s", err, rr.Body.String())
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}
