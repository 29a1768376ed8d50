package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/events"
	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CreateOrderRequest is the validated input for placing an order.
type CreateOrderRequest struct {
	TableID   int32
	CreatedBy uuid.UUID
	Notes     string
	Items     []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line of the order.
type CreateOrderItemRequest struct {
	MenuItemID uuid.UUID
	Quantity   int32
}

// OrderView is an order as seen on the read path. Mismatch is set when the
// stored total disagrees with the items; the order is still returned.
type OrderView struct {
	Order      model.Order
	Recomputed decimal.Decimal
	Mismatch   *MismatchError
}

// allowedTransitions defines valid order status transitions.
// Key is current status, value is the set of statuses it can transition to.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusCompleted},
}

// CanTransition reports whether next is a direct successor of current.
func CanTransition(current, next string) bool {
	for _, s := range allowedTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// RecomputeTotal returns Σ quantity × price over the order's items.
func RecomputeTotal(o model.Order) decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// CheckTotal compares the stored total with the recomputed one and returns a
// MismatchError when they differ by more than Epsilon.
func CheckTotal(o model.Order) *MismatchError {
	recomputed := RecomputeTotal(o)
	if o.Total.Sub(recomputed).Abs().GreaterThan(Epsilon) {
		return &MismatchError{
			OrderID:    o.ID,
			TableID:    o.TableID,
			Stored:     o.Total,
			Recomputed: recomputed,
		}
	}
	return nil
}

// CreateOrder validates the items, snapshots menu prices, stores the order
// and occupies the table if it was free.
func (l *Lifecycle) CreateOrder(ctx context.Context, req CreateOrderRequest) (model.Order, error) {
	if len(req.Items) == 0 {
		return model.Order{}, ErrEmptyItems
	}

	table, err := l.store.GetTable(ctx, req.TableID)
	if err != nil {
		return model.Order{}, fmt.Errorf("table %d: %w", req.TableID, err)
	}
	if table.Status == enum.TableStatusDisabled {
		return model.Order{}, &TransitionError{
			Entity: "table",
			ID:     fmt.Sprint(table.ID),
			From:   table.Status,
			To:     enum.TableStatusOccupied,
			Reason: "table is disabled",
		}
	}

	// --- Resolve items and snapshot prices ---
	now := l.now().UTC()
	order := model.Order{
		ID:        uuid.New(),
		TableID:   req.TableID,
		Status:    enum.OrderStatusPending,
		Notes:     req.Notes,
		CreatedBy: req.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return model.Order{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		menuItem, err := l.store.GetMenuItem(ctx, item.MenuItemID)
		if err != nil {
			return model.Order{}, fmt.Errorf("item[%d]: menu item %s: %w", i, item.MenuItemID, err)
		}
		if !menuItem.InStock {
			return model.Order{}, fmt.Errorf("item[%d]: %s: %w", i, menuItem.Name, ErrOutOfStock)
		}
		order.Items = append(order.Items, model.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Price:      menuItem.Price.Round(2),
			Quantity:   item.Quantity,
		})
	}
	order.Total = RecomputeTotal(order).Round(2)

	created, err := l.store.CreateOrder(ctx, order)
	if err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}

	l.publish(ctx, events.OrderCreated{
		OrderID:   created.ID,
		TableID:   created.TableID,
		Total:     created.Total,
		ItemCount: len(created.Items),
	})

	if table.Status == enum.TableStatusAvailable || table.Status == enum.TableStatusReserved {
		if _, err := l.MarkOccupied(ctx, table.ID); err != nil {
			// The order exists; the table will be fixed by the next reconcile.
			l.log.WithError(err).WithField("table_id", table.ID).Warn("occupy table after order")
		}
	}

	return created, nil
}

// AdvanceStatus moves an order to newStatus if it is a direct successor of
// the current status. The write is a compare-and-swap on the status read.
func (l *Lifecycle) AdvanceStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (model.Order, error) {
	if !enum.IsOrderStatus(newStatus) {
		return model.Order{}, ErrInvalidStatus
	}

	current, err := l.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s: %w", orderID, err)
	}

	if !CanTransition(current.Status, newStatus) {
		return model.Order{}, &TransitionError{
			Entity: "order",
			ID:     orderID.String(),
			From:   current.Status,
			To:     newStatus,
		}
	}

	// Unpaid orders reach completed through settlement unless completed
	// orders are billable.
	if newStatus == enum.OrderStatusCompleted && !current.Paid() && !l.eligible[enum.OrderStatusCompleted] {
		return model.Order{}, &TransitionError{
			Entity: "order",
			ID:     orderID.String(),
			From:   current.Status,
			To:     newStatus,
			Reason: "order is unpaid",
		}
	}

	updated, err := l.store.UpdateOrderStatus(ctx, orderID, current.Status, newStatus)
	if err != nil {
		return model.Order{}, fmt.Errorf("update order status: %w", stale(err))
	}

	l.publish(ctx, events.OrderStatusChanged{
		OrderID: updated.ID,
		TableID: updated.TableID,
		From:    current.Status,
		To:      newStatus,
	})

	if l.BillingEligible(updated) {
		l.billingEligible(ctx, updated)
	}

	if _, err := l.Reconcile(ctx, updated.TableID); err != nil {
		l.log.WithError(err).WithField("table_id", updated.TableID).Warn("reconcile after status change")
	}

	return updated, nil
}

// CancelOrder cancels a pending or preparing order.
func (l *Lifecycle) CancelOrder(ctx context.Context, orderID uuid.UUID) (model.Order, error) {
	return l.AdvanceStatus(ctx, orderID, enum.OrderStatusCancelled)
}

// billingEligible is the hand-off to the billing side once an order can be paid.
func (l *Lifecycle) billingEligible(ctx context.Context, o model.Order) {
	entry := l.log.WithFields(logrus.Fields{"table_id": o.TableID, "order_id": o.ID})
	entry.Info("table has billing-eligible orders")
	if !l.policy.AutoBilling {
		return
	}
	if _, err := l.MarkBilling(ctx, o.TableID); err != nil && !errors.Is(err, ErrInvalidTransition) {
		entry.WithError(err).Warn("auto billing")
	}
}

// GetOrder returns the order with a total check. A mismatch is reported on
// the view and logged, never returned as an error.
func (l *Lifecycle) GetOrder(ctx context.Context, orderID uuid.UUID) (OrderView, error) {
	o, err := l.store.GetOrder(ctx, orderID)
	if err != nil {
		return OrderView{}, fmt.Errorf("order %s: %w", orderID, err)
	}
	return l.view(o), nil
}

// ListOrders returns orders matching the filter, each with its total check.
func (l *Lifecycle) ListOrders(ctx context.Context, f model.OrderFilter) ([]OrderView, error) {
	for _, s := range f.Statuses {
		if !enum.IsOrderStatus(s) {
			return nil, ErrInvalidStatus
		}
	}
	orders, err := l.store.ListOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	views := make([]OrderView, len(orders))
	for i, o := range orders {
		views[i] = l.view(o)
	}
	return views, nil
}

func (l *Lifecycle) view(o model.Order) OrderView {
	v := OrderView{Order: o, Recomputed: RecomputeTotal(o)}
	if m := CheckTotal(o); m != nil {
		l.log.WithFields(logrus.Fields{
			"order_id":   o.ID,
			"stored":     m.Stored.StringFixed(2),
			"recomputed": m.Recomputed.StringFixed(2),
		}).Warn("order total mismatch")
		v.Mismatch = m
	}
	return v
}

// AuditTotals scans every non-cancelled order and reports stored totals that
// disagree with their items.
func (l *Lifecycle) AuditTotals(ctx context.Context) ([]MismatchError, error) {
	orders, err := l.store.ListOrders(ctx, model.OrderFilter{
		Statuses: []string{
			enum.OrderStatusPending,
			enum.OrderStatusPreparing,
			enum.OrderStatusReady,
			enum.OrderStatusCompleted,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var out []MismatchError
	for _, o := range orders {
		if m := CheckTotal(o); m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}
