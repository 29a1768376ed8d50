package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/model"
	"github.com/cafe-pos/api/internal/store/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{enum.OrderStatusPending, enum.OrderStatusPreparing, true},
		{enum.OrderStatusPending, enum.OrderStatusCancelled, true},
		{enum.OrderStatusPending, enum.OrderStatusReady, false},
		{enum.OrderStatusPreparing, enum.OrderStatusReady, true},
		{enum.OrderStatusPreparing, enum.OrderStatusCancelled, true},
		{enum.OrderStatusReady, enum.OrderStatusCompleted, true},
		{enum.OrderStatusReady, enum.OrderStatusCancelled, false},
		{enum.OrderStatusCompleted, enum.OrderStatusPending, false},
		{enum.OrderStatusCancelled, enum.OrderStatusPending, false},
		{enum.OrderStatusPreparing, enum.OrderStatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	_, err := f.svc.CreateOrder(f.ctx, CreateOrderRequest{TableID: 1})
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got %v", err)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	_, err := f.svc.CreateOrder(f.ctx, CreateOrderRequest{
		TableID: 1,
		Items:   []CreateOrderItemRequest{{MenuItemID: f.itemA.ID, Quantity: 0}},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestCreateOrder_UnknownTable(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	_, err := f.svc.CreateOrder(f.ctx, CreateOrderRequest{
		TableID: 42,
		Items:   []CreateOrderItemRequest{{MenuItemID: f.itemA.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateOrder_UnknownMenuItem(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	_, err := f.svc.CreateOrder(f.ctx, CreateOrderRequest{
		TableID: 1,
		Items:   []CreateOrderItemRequest{{MenuItemID: uuid.New(), Quantity: 1}},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := f.tableStatus(t, 1); got != enum.TableStatusAvailable {
		t.Errorf("table status = %s, want available after a rejected order", got)
	}
}

func TestCreateOrder_OutOfStock(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	if _, err := f.svc.SetStock(f.ctx, f.itemB.ID, false); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	_, err := f.svc.CreateOrder(f.ctx, CreateOrderRequest{
		TableID: 1,
		Items:   []CreateOrderItemRequest{{MenuItemID: f.itemB.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
}

func TestCreateOrder_DisabledTable(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	if _, err := f.svc.Disable(f.ctx, 2); err != nil {
		t.Fatalf("disable: %v", err)
	}
	_, err := f.svc.CreateOrder(f.ctx, CreateOrderRequest{
		TableID: 2,
		Items:   []CreateOrderItemRequest{{MenuItemID: f.itemA.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCreateOrder_ReservedTableBecomesOccupied(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	if _, err := f.svc.Reserve(f.ctx, 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	f.placeOrder(t, 2)
	if got := f.tableStatus(t, 2); got != enum.TableStatusOccupied {
		t.Errorf("table status = %s, want occupied", got)
	}
}

func TestCreateOrder_SnapshotsPrice(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	o := f.placeOrder(t, 1)

	_, err := f.svc.UpdateMenuItem(f.ctx, f.itemA.ID, MenuItemRequest{
		Name: "Momo", Price: decimal.NewFromInt(350), Category: "food", InStock: true,
	})
	if err != nil {
		t.Fatalf("update menu item: %v", err)
	}

	v, err := f.svc.GetOrder(f.ctx, o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if v.Mismatch != nil {
		t.Fatalf("unexpected mismatch after a menu price change: %v", v.Mismatch)
	}
	if !v.Order.Total.Equal(decimal.NewFromInt(539)) {
		t.Errorf("total = %s, want 539", v.Order.Total)
	}
	if !v.Order.Items[0].Price.Equal(decimal.NewFromInt(299)) {
		t.Errorf("item price = %s, want the captured 299", v.Order.Items[0].Price)
	}
}

func TestAdvanceStatus_InvalidStatus(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	o := f.placeOrder(t, 1)
	_, err := f.svc.AdvanceStatus(f.ctx, o.ID, "served")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestAdvanceStatus_SkipRejected(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	o := f.placeOrder(t, 1)
	_, err := f.svc.AdvanceStatus(f.ctx, o.ID, enum.OrderStatusReady)
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if te.From != enum.OrderStatusPending || te.To != enum.OrderStatusReady {
		t.Errorf("unexpected transition error %+v", te)
	}
}

func TestAdvanceStatus_TerminalStates(t *testing.T) {
	f := newFixture(t, DefaultPolicy())

	completed := f.placeOrder(t, 1)
	f.advance(t, completed.ID, enum.OrderStatusPreparing, enum.OrderStatusReady, enum.OrderStatusCompleted)

	cancelled := f.placeOrder(t, 2)
	if _, err := f.svc.CancelOrder(f.ctx, cancelled.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	for _, id := range []uuid.UUID{completed.ID, cancelled.ID} {
		for _, next := range []string{
			enum.OrderStatusPending, enum.OrderStatusPreparing, enum.OrderStatusReady,
			enum.OrderStatusCompleted, enum.OrderStatusCancelled,
		} {
			if _, err := f.svc.AdvanceStatus(f.ctx, id, next); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("order %s -> %s: expected ErrInvalidTransition, got %v", id, next, err)
			}
		}
	}
}

func TestCancelOrder_ReadyRejected(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	o := f.placeOrder(t, 1)
	f.advance(t, o.ID, enum.OrderStatusPreparing, enum.OrderStatusReady)
	if _, err := f.svc.CancelOrder(f.ctx, o.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelOrder_ReleasesTable(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	o := f.placeOrder(t, 1)
	if _, err := f.svc.CancelOrder(f.ctx, o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.MarkAvailable(f.ctx, 1); err != nil {
		t.Fatalf("mark available after cancel: %v", err)
	}
}

// racingStore moves the order on before the compare-and-swap lands.
type racingStore struct {
	*memstore.Store
}

func (s racingStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to string) (model.Order, error) {
	if _, err := s.Store.UpdateOrderStatus(ctx, id, from, enum.OrderStatusCancelled); err != nil {
		return model.Order{}, err
	}
	return s.Store.UpdateOrderStatus(ctx, id, from, to)
}

func TestAdvanceStatus_LostRace(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	o := f.placeOrder(t, 1)

	svc := NewLifecycle(racingStore{f.store}, nil, DefaultPolicy())
	_, err := svc.AdvanceStatus(f.ctx, o.ID, enum.OrderStatusPreparing)
	if !errors.Is(err, ErrStaleStatus) {
		t.Fatalf("expected ErrStaleStatus, got %v", err)
	}
}

func TestGetOrder_MismatchIsWarning(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	o := f.placeOrder(t, 1)
	f.store.SetOrderTotal(o.ID, decimal.RequireFromString("500.00"))

	v, err := f.svc.GetOrder(f.ctx, o.ID)
	if err != nil {
		t.Fatalf("get order returned error for a mismatch: %v", err)
	}
	if v.Mismatch == nil {
		t.Fatal("expected a mismatch on the view")
	}
	if !v.Recomputed.Equal(decimal.NewFromInt(539)) {
		t.Errorf("recomputed = %s, want 539", v.Recomputed)
	}
	if !errors.Is(v.Mismatch, ErrTotalMismatch) {
		t.Error("mismatch should unwrap to ErrTotalMismatch")
	}
}

func TestCheckTotal_WithinEpsilon(t *testing.T) {
	o := model.Order{
		Total: decimal.RequireFromString("10.01"),
		Items: []model.OrderItem{{Price: decimal.RequireFromString("5.00"), Quantity: 2}},
	}
	if m := CheckTotal(o); m != nil {
		t.Errorf("difference of 0.01 should be tolerated, got %v", m)
	}
	o.Total = decimal.RequireFromString("10.02")
	if m := CheckTotal(o); m == nil {
		t.Error("difference of 0.02 should be reported")
	}
}

func TestAuditTotals(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.placeOrder(t, 1)
	bad := f.placeOrder(t, 2)
	f.store.SetOrderTotal(bad.ID, decimal.RequireFromString("1.00"))

	mismatches, err := f.svc.AuditTotals(f.ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(mismatches) != 1 || mismatches[0].OrderID != bad.ID {
		t.Fatalf("mismatches = %+v, want only %s", mismatches, bad.ID)
	}
}

func TestListOrders_InvalidStatusFilter(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	_, err := f.svc.ListOrders(f.ctx, model.OrderFilter{Statuses: []string{"eaten"}})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestListOrders_ByTable(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.placeOrder(t, 1)
	f.placeOrder(t, 1)
	f.placeOrder(t, 2)

	views, err := f.svc.ListOrders(f.ctx, model.OrderFilter{TableID: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d orders, want 2", len(views))
	}
}
