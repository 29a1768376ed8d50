package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/events"
	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BillOptions controls how a bill is computed.
type BillOptions struct {
	ApplyTax bool
}

// Bill is the payable amount for a table or a single order.
type Bill struct {
	TableID       int32           `json:"table_id"`
	Orders        []model.Order   `json:"orders"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
}

// PaymentRequest settles every billing-eligible order of a table.
// A nil Amount pays exactly the computed total.
type PaymentRequest struct {
	TableID     int32
	Amount      *decimal.Decimal
	Method      string
	ApplyTax    bool
	Override    bool
	ProcessedBy uuid.UUID
}

// OrderPaymentRequest settles a single billing-eligible order.
type OrderPaymentRequest struct {
	OrderID     uuid.UUID
	Amount      *decimal.Decimal
	Method      string
	ApplyTax    bool
	Override    bool
	ProcessedBy uuid.UUID
}

// PaymentResult is the recorded transaction and the orders it settled.
type PaymentResult struct {
	Transaction model.Transaction
	Orders      []model.Order
	Table       ReconcileResult
}

// MethodSummary aggregates transactions of one payment method.
type MethodSummary struct {
	Method           string          `json:"method"`
	TransactionCount int64           `json:"transaction_count"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

// ComputeTableTotal sums the stored totals of the table's billing-eligible
// orders and applies the service charge and, optionally, tax.
func (l *Lifecycle) ComputeTableTotal(ctx context.Context, tableID int32, opts BillOptions) (Bill, error) {
	if _, err := l.store.GetTable(ctx, tableID); err != nil {
		return Bill{}, fmt.Errorf("table %d: %w", tableID, err)
	}
	orders, err := l.tableOrders(ctx, tableID)
	if err != nil {
		return Bill{}, err
	}
	return l.bill(ctx, tableID, l.eligibleOrders(orders), opts)
}

func (l *Lifecycle) bill(ctx context.Context, tableID int32, orders []model.Order, opts BillOptions) (Bill, error) {
	settings, err := l.Settings(ctx)
	if err != nil {
		return Bill{}, err
	}
	subtotal := decimal.Zero
	for _, o := range orders {
		subtotal = subtotal.Add(o.Total)
	}
	b := Bill{
		TableID:       tableID,
		Orders:        orders,
		Subtotal:      subtotal.Round(2),
		Tax:           decimal.Zero,
		ServiceCharge: subtotal.Mul(settings.ServiceChargeRate).Round(2),
		Currency:      settings.Currency,
	}
	if opts.ApplyTax {
		b.Tax = subtotal.Mul(settings.TaxRate).Round(2)
	}
	b.Total = b.Subtotal.Add(b.Tax).Add(b.ServiceCharge)
	if b.Orders == nil {
		b.Orders = []model.Order{}
	}
	return b, nil
}

// RecordPayment records a consolidated payment for the table, settles its
// billing-eligible orders and reconciles the table.
func (l *Lifecycle) RecordPayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if err := validatePayment(req.Method, req.Amount); err != nil {
		return PaymentResult{}, err
	}
	bill, err := l.ComputeTableTotal(ctx, req.TableID, BillOptions{ApplyTax: req.ApplyTax})
	if err != nil {
		return PaymentResult{}, err
	}
	return l.settle(ctx, bill, nil, req.Amount, req.Method, req.Override, req.ProcessedBy)
}

// RecordOrderPayment records a payment for one order of a split bill.
func (l *Lifecycle) RecordOrderPayment(ctx context.Context, req OrderPaymentRequest) (PaymentResult, error) {
	if err := validatePayment(req.Method, req.Amount); err != nil {
		return PaymentResult{}, err
	}
	o, err := l.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("order %s: %w", req.OrderID, err)
	}
	if !l.BillingEligible(o) {
		if o.Paid() {
			return PaymentResult{}, fmt.Errorf("order %s is already paid: %w", o.ID, ErrNothingToPay)
		}
		return PaymentResult{}, fmt.Errorf("order %s is %s: %w", o.ID, o.Status, ErrNothingToPay)
	}
	bill, err := l.bill(ctx, o.TableID, []model.Order{o}, BillOptions{ApplyTax: req.ApplyTax})
	if err != nil {
		return PaymentResult{}, err
	}
	orderID := o.ID
	return l.settle(ctx, bill, &orderID, req.Amount, req.Method, req.Override, req.ProcessedBy)
}

func validatePayment(method string, amount *decimal.Decimal) error {
	if !enum.IsPaymentMethod(method) {
		return ErrInvalidPaymentMethod
	}
	if amount != nil && !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// settle validates the stored totals and the amount, then writes the
// transaction and the settlements in one store call.
func (l *Lifecycle) settle(
	ctx context.Context,
	bill Bill,
	orderID *uuid.UUID,
	amount *decimal.Decimal,
	method string,
	override bool,
	processedBy uuid.UUID,
) (PaymentResult, error) {
	if len(bill.Orders) == 0 {
		return PaymentResult{}, fmt.Errorf("table %d: %w", bill.TableID, ErrNothingToPay)
	}

	// A stored total that disagrees with its items must not be charged.
	for _, o := range bill.Orders {
		if m := CheckTotal(o); m != nil {
			return PaymentResult{}, m
		}
	}

	paid := bill.Total
	overridden := false
	if amount != nil {
		if amount.Sub(bill.Total).Abs().GreaterThan(Epsilon) {
			if !override || !l.policy.AllowOverride {
				return PaymentResult{}, &AmountMismatchError{Expected: bill.Total, Got: *amount}
			}
			overridden = true
		}
		paid = amount.Round(2)
	}

	now := l.now().UTC()
	tx := model.Transaction{
		ID:            uuid.New(),
		TableID:       bill.TableID,
		OrderID:       orderID,
		Amount:        paid,
		Subtotal:      bill.Subtotal,
		Tax:           bill.Tax,
		ServiceCharge: bill.ServiceCharge,
		Method:        method,
		Override:      overridden,
		ProcessedBy:   processedBy,
		CreatedAt:     now,
	}
	settlements := make([]model.Settlement, len(bill.Orders))
	for i, o := range bill.Orders {
		settlements[i] = model.Settlement{
			OrderID:       o.ID,
			TransactionID: tx.ID,
			PaidAt:        now,
			CompleteFrom:  enum.OrderStatusReady,
			CompleteTo:    enum.OrderStatusCompleted,
		}
	}

	recorded, orders, err := l.store.RecordPayment(ctx, tx, settlements)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("record payment: %w", stale(err))
	}

	entry := l.log.WithFields(logrus.Fields{
		"transaction_id": recorded.ID,
		"table_id":       recorded.TableID,
		"amount":         recorded.Amount.StringFixed(2),
		"method":         recorded.Method,
	})
	if overridden {
		entry.WithField("computed", bill.Total.StringFixed(2)).Warn("payment recorded with override")
	} else {
		entry.Info("payment recorded")
	}

	for i, o := range orders {
		if bill.Orders[i].Status != o.Status {
			l.publish(ctx, events.OrderStatusChanged{
				OrderID: o.ID,
				TableID: o.TableID,
				From:    bill.Orders[i].Status,
				To:      o.Status,
			})
		}
	}
	l.publish(ctx, events.PaymentRecorded{
		TransactionID: recorded.ID,
		TableID:       recorded.TableID,
		OrderID:       recorded.OrderID,
		Amount:        recorded.Amount,
		Method:        recorded.Method,
	})

	res := PaymentResult{Transaction: recorded, Orders: orders}
	rec, err := l.Reconcile(ctx, bill.TableID)
	if err != nil {
		l.log.WithError(err).WithField("table_id", bill.TableID).Warn("reconcile after payment")
	}
	res.Table = rec
	return res, nil
}

func (l *Lifecycle) GetTransaction(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	tx, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	return tx, nil
}

// ListTableTransactions returns every transaction recorded against the table.
func (l *Lifecycle) ListTableTransactions(ctx context.Context, tableID int32) ([]model.Transaction, error) {
	if _, err := l.store.GetTable(ctx, tableID); err != nil {
		return nil, fmt.Errorf("table %d: %w", tableID, err)
	}
	txs, err := l.store.ListTransactions(ctx, model.TransactionFilter{TableID: tableID})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// ListOrderTransactions returns the transactions that settled the order:
// individual payments and the consolidated table payment, if any.
func (l *Lifecycle) ListOrderTransactions(ctx context.Context, orderID uuid.UUID) ([]model.Transaction, error) {
	o, err := l.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", orderID, err)
	}
	txs, err := l.store.ListTransactions(ctx, model.TransactionFilter{OrderID: &orderID})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if o.TransactionID != nil {
		for _, tx := range txs {
			if tx.ID == *o.TransactionID {
				return txs, nil
			}
		}
		tx, err := l.store.GetTransaction(ctx, *o.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", *o.TransactionID, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// PaymentSummary totals transactions by method within [from, to).
func (l *Lifecycle) PaymentSummary(ctx context.Context, from, to time.Time) ([]MethodSummary, error) {
	txs, err := l.store.ListTransactions(ctx, model.TransactionFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	byMethod := map[string]*MethodSummary{}
	var order []string
	for _, tx := range txs {
		s, ok := byMethod[tx.Method]
		if !ok {
			s = &MethodSummary{Method: tx.Method, TotalAmount: decimal.Zero}
			byMethod[tx.Method] = s
			order = append(order, tx.Method)
		}
		s.TransactionCount++
		s.TotalAmount = s.TotalAmount.Add(tx.Amount)
	}
	out := make([]MethodSummary, 0, len(order))
	for _, m := range order {
		out = append(out, *byMethod[m])
	}
	return out, nil
}
