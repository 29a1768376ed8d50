package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/events"
	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReconcileResult describes what Reconcile did to a table.
type ReconcileResult struct {
	TableID int32  `json:"table_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Changed bool   `json:"changed"`
}

// CreateTableRequest is the input for adding a table to the floor.
type CreateTableRequest struct {
	ID       int32
	Label    string
	Capacity int32
}

// CreateTable adds an available table.
func (l *Lifecycle) CreateTable(ctx context.Context, req CreateTableRequest) (model.Table, error) {
	if req.ID <= 0 {
		return model.Table{}, invalidInput("table id must be positive")
	}
	if req.Capacity <= 0 {
		return model.Table{}, invalidInput("capacity must be positive")
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = fmt.Sprintf("Table %d", req.ID)
	}
	if _, err := l.store.GetTable(ctx, req.ID); err == nil {
		return model.Table{}, fmt.Errorf("table %d: %w", req.ID, ErrAlreadyExists)
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.Table{}, fmt.Errorf("table %d: %w", req.ID, err)
	}
	now := l.now().UTC()
	t, err := l.store.CreateTable(ctx, model.Table{
		ID:        req.ID,
		Label:     label,
		Capacity:  req.Capacity,
		Status:    enum.TableStatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.Table{}, fmt.Errorf("create table: %w", err)
	}
	return t, nil
}

func (l *Lifecycle) GetTable(ctx context.Context, id int32) (model.Table, error) {
	t, err := l.store.GetTable(ctx, id)
	if err != nil {
		return model.Table{}, fmt.Errorf("table %d: %w", id, err)
	}
	return t, nil
}

func (l *Lifecycle) ListTables(ctx context.Context) ([]model.Table, error) {
	tables, err := l.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// MarkOccupied seats guests at an available or reserved table.
func (l *Lifecycle) MarkOccupied(ctx context.Context, tableID int32) (model.Table, error) {
	return l.transitionTable(ctx, tableID, enum.TableStatusOccupied, func(t model.Table, _ []model.Order) (bool, string) {
		switch t.Status {
		case enum.TableStatusOccupied:
			return false, ""
		case enum.TableStatusAvailable, enum.TableStatusReserved:
			return true, ""
		}
		return false, "table is " + t.Status
	})
}

// MarkBilling moves an occupied table to billing. At least one order must be
// billing-eligible.
func (l *Lifecycle) MarkBilling(ctx context.Context, tableID int32) (model.Table, error) {
	return l.transitionTable(ctx, tableID, enum.TableStatusBilling, func(t model.Table, orders []model.Order) (bool, string) {
		if t.Status != enum.TableStatusOccupied && t.Status != enum.TableStatusBilling {
			return false, "table is " + t.Status
		}
		if len(l.eligibleOrders(orders)) == 0 {
			return false, "no billing-eligible orders"
		}
		return t.Status != enum.TableStatusBilling, ""
	})
}

// MarkAvailable releases the table. It fails with an OpenOrdersError while
// any order is unpaid and still open or billing-eligible.
func (l *Lifecycle) MarkAvailable(ctx context.Context, tableID int32) (model.Table, error) {
	t, err := l.store.GetTable(ctx, tableID)
	if err != nil {
		return model.Table{}, fmt.Errorf("table %d: %w", tableID, err)
	}
	orders, err := l.tableOrders(ctx, tableID)
	if err != nil {
		return model.Table{}, err
	}
	var blocking []uuid.UUID
	for _, o := range orders {
		if isOpen(o) || l.BillingEligible(o) {
			blocking = append(blocking, o.ID)
		}
	}
	if len(blocking) > 0 {
		return model.Table{}, &OpenOrdersError{TableID: tableID, OrderIDs: blocking}
	}
	if t.Status == enum.TableStatusAvailable {
		return t, nil
	}
	return l.swapTable(ctx, t, enum.TableStatusAvailable)
}

// Reserve holds an available table for a booking.
func (l *Lifecycle) Reserve(ctx context.Context, tableID int32) (model.Table, error) {
	return l.sideState(ctx, tableID, enum.TableStatusReserved)
}

// Disable takes an available table out of service.
func (l *Lifecycle) Disable(ctx context.Context, tableID int32) (model.Table, error) {
	return l.sideState(ctx, tableID, enum.TableStatusDisabled)
}

func (l *Lifecycle) sideState(ctx context.Context, tableID int32, to string) (model.Table, error) {
	return l.transitionTable(ctx, tableID, to, func(t model.Table, _ []model.Order) (bool, string) {
		switch t.Status {
		case to:
			return false, ""
		case enum.TableStatusAvailable:
			return true, ""
		}
		return false, "table is " + t.Status
	})
}

// Reconcile repairs a table left in billing without anything to bill: it
// goes back to occupied when an open order remains, otherwise to available.
// Calling it on a consistent table writes nothing.
func (l *Lifecycle) Reconcile(ctx context.Context, tableID int32) (ReconcileResult, error) {
	t, err := l.store.GetTable(ctx, tableID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("table %d: %w", tableID, err)
	}
	res := ReconcileResult{TableID: tableID, From: t.Status, To: t.Status}
	if t.Status != enum.TableStatusBilling {
		return res, nil
	}

	orders, err := l.tableOrders(ctx, tableID)
	if err != nil {
		return ReconcileResult{}, err
	}
	if len(l.eligibleOrders(orders)) > 0 {
		return res, nil
	}

	target := enum.TableStatusAvailable
	for _, o := range orders {
		if isOpen(o) {
			target = enum.TableStatusOccupied
			break
		}
	}

	updated, err := l.swapTable(ctx, t, target)
	if err != nil {
		return ReconcileResult{}, err
	}
	l.log.WithFields(logrus.Fields{
		"table_id": tableID,
		"from":     t.Status,
		"to":       updated.Status,
	}).Info("table reconciled")
	res.To = updated.Status
	res.Changed = true
	return res, nil
}

// ReconcileAll reconciles every table and returns the ones that changed.
func (l *Lifecycle) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	tables, err := l.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	var changed []ReconcileResult
	for _, t := range tables {
		res, err := l.Reconcile(ctx, t.ID)
		if err != nil {
			return changed, err
		}
		if res.Changed {
			changed = append(changed, res)
		}
	}
	return changed, nil
}

// transitionTable reads the table and its orders, asks allow whether the
// move is legal, then compare-and-swaps the status. allow returns
// (false, "") for an idempotent no-op and (false, reason) for a rejection.
func (l *Lifecycle) transitionTable(
	ctx context.Context,
	tableID int32,
	to string,
	allow func(t model.Table, orders []model.Order) (bool, string),
) (model.Table, error) {
	t, err := l.store.GetTable(ctx, tableID)
	if err != nil {
		return model.Table{}, fmt.Errorf("table %d: %w", tableID, err)
	}
	orders, err := l.tableOrders(ctx, tableID)
	if err != nil {
		return model.Table{}, err
	}
	ok, reason := allow(t, orders)
	if reason != "" {
		return model.Table{}, &TransitionError{
			Entity: "table",
			ID:     fmt.Sprint(tableID),
			From:   t.Status,
			To:     to,
			Reason: reason,
		}
	}
	if !ok {
		return t, nil
	}
	return l.swapTable(ctx, t, to)
}

func (l *Lifecycle) swapTable(ctx context.Context, t model.Table, to string) (model.Table, error) {
	updated, err := l.store.UpdateTableStatus(ctx, t.ID, t.Status, to)
	if err != nil {
		return model.Table{}, fmt.Errorf("update table status: %w", stale(err))
	}
	l.publish(ctx, events.TableStatusChanged{TableID: t.ID, From: t.Status, To: to})
	return updated, nil
}

// tableOrders returns the table's unpaid, non-cancelled orders.
func (l *Lifecycle) tableOrders(ctx context.Context, tableID int32) ([]model.Order, error) {
	orders, err := l.store.ListOrders(ctx, model.OrderFilter{
		TableID: tableID,
		Statuses: []string{
			enum.OrderStatusPending,
			enum.OrderStatusPreparing,
			enum.OrderStatusReady,
			enum.OrderStatusCompleted,
		},
		UnpaidOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders for table %d: %w", tableID, err)
	}
	unpaid := orders[:0]
	for _, o := range orders {
		if !o.Paid() {
			unpaid = append(unpaid, o)
		}
	}
	return unpaid, nil
}

func (l *Lifecycle) eligibleOrders(orders []model.Order) []model.Order {
	var out []model.Order
	for _, o := range orders {
		if l.BillingEligible(o) {
			out = append(out, o)
		}
	}
	return out
}
