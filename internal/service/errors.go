package service

import (
	"errors"
	"fmt"

	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by the lifecycle service.
var (
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrTableHasOpenOrders = errors.New("table has open orders")
	ErrTotalMismatch      = errors.New("total mismatch")
	ErrAmountMismatch     = errors.New("amount mismatch")
	ErrNotFound           = model.ErrNotFound

	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be >= 1")
	ErrOutOfStock           = errors.New("menu item is out of stock")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidPrice         = errors.New("price must not be negative")
	ErrInvalidRate          = errors.New("rate must be between 0 and 1")
	ErrNothingToPay         = errors.New("no billing-eligible orders")
	ErrStaleStatus          = errors.New("status changed concurrently, please retry")
	ErrInvalidInput         = errors.New("invalid input")
	ErrAlreadyExists        = errors.New("already exists")
)

// InputError is a request field the service rejected.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalidInput(msg string) error {
	return &InputError{Msg: msg}
}

// Epsilon is the tolerance used when comparing money amounts.
var Epsilon = decimal.RequireFromString("0.01")

// TransitionError reports an illegal table or order status change.
type TransitionError struct {
	Entity string // "order" or "table"
	ID     string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s %s: cannot transition from %s to %s", e.Entity, e.ID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// OpenOrdersError is returned when a table is released while orders still
// need the kitchen or the cashier.
type OpenOrdersError struct {
	TableID  int32
	OrderIDs []uuid.UUID
}

func (e *OpenOrdersError) Error() string {
	return fmt.Sprintf("table %d has %d open order(s)", e.TableID, len(e.OrderIDs))
}

func (e *OpenOrdersError) Unwrap() error { return ErrTableHasOpenOrders }

// MismatchError reports a stored order total that disagrees with its items.
type MismatchError struct {
	OrderID    uuid.UUID       `json:"order_id"`
	TableID    int32           `json:"table_id"`
	Stored     decimal.Decimal `json:"stored"`
	Recomputed decimal.Decimal `json:"recomputed"`
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("order %s: stored total %s does not match recomputed %s",
		e.OrderID, e.Stored.StringFixed(2), e.Recomputed.StringFixed(2))
}

func (e *MismatchError) Unwrap() error { return ErrTotalMismatch }

// AmountMismatchError reports a payment amount that differs from the bill.
type AmountMismatchError struct {
	Expected decimal.Decimal
	Got      decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount %s does not match computed total %s",
		e.Got.StringFixed(2), e.Expected.StringFixed(2))
}

func (e *AmountMismatchError) Unwrap() error { return ErrAmountMismatch }

// stale maps a store CAS miss to ErrStaleStatus and passes anything else through.
func stale(err error) error {
	if errors.Is(err, model.ErrStale) {
		return ErrStaleStatus
	}
	return err
}
