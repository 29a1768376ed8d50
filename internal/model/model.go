// Package model holds the storage-agnostic records shared by the lifecycle
// service and every persistence backend.
package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors every Store implementation must return for the matching condition.
var (
	// ErrNotFound is returned when a point read finds no row/document.
	ErrNotFound = errors.New("not found")
	// ErrStale is returned by compare-and-swap writes when the stored status
	// no longer matches the expected previous status.
	ErrStale = errors.New("stale status")
	// ErrDuplicate is returned when a unique key (user email) is taken.
	ErrDuplicate = errors.New("duplicate key")
)

type Table struct {
	ID        int32     `json:"id"`
	Label     string    `json:"label"`
	Capacity  int32     `json:"capacity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Order struct {
	ID            uuid.UUID       `json:"id"`
	TableID       int32           `json:"table_id"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Notes         string          `json:"notes"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	PaidAt        *time.Time      `json:"paid_at"`
	TransactionID *uuid.UUID      `json:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []OrderItem     `json:"items"`
}

// Paid reports whether a transaction has settled the order.
func (o Order) Paid() bool {
	return o.PaidAt != nil
}

// OrderItem is a line of an order. Price is the menu price captured when
// the order was placed.
type OrderItem struct {
	ID         uuid.UUID       `json:"id"`
	OrderID    uuid.UUID       `json:"order_id"`
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int32           `json:"quantity"`
}

// LineTotal returns price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt32(i.Quantity))
}

type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	TableID       int32           `json:"table_id"`
	OrderID       *uuid.UUID      `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Method        string          `json:"method"`
	Override      bool            `json:"override"`
	ProcessedBy   uuid.UUID       `json:"processed_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

type MenuItem struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	InStock   bool            `json:"in_stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Settings is the per-deployment singleton.
type Settings struct {
	TaxRate           decimal.Decimal `json:"tax_rate"`
	ServiceChargeRate decimal.Decimal `json:"service_charge_rate"`
	Currency          string          `json:"currency"`
	CafeName          string          `json:"cafe_name"`
	ReceiptFooter     string          `json:"receipt_footer"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	HashedPassword string    `json:"-"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// OrderFilter narrows ListOrders. Zero values mean "any".
type OrderFilter struct {
	TableID    int32
	Statuses   []string
	UnpaidOnly bool
	Limit      int32
	Offset     int32
}

// TransactionFilter narrows ListTransactions. Zero times are open bounds.
type TransactionFilter struct {
	TableID int32
	OrderID *uuid.UUID
	From    time.Time
	To      time.Time
}

// Settlement marks orders as paid by a transaction. Orders currently in
// CompleteFrom are moved to CompleteTo in the same write.
type Settlement struct {
	OrderID       uuid.UUID
	TransactionID uuid.UUID
	PaidAt        time.Time
	CompleteFrom  string
	CompleteTo    string
}
