package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CafeTable struct {
	ID        int32     `json:"id"`
	Label     string    `json:"label"`
	Capacity  int32     `json:"capacity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Order struct {
	ID            uuid.UUID          `json:"id"`
	TableID       int32              `json:"table_id"`
	Status        string             `json:"status"`
	Total         pgtype.Numeric     `json:"total"`
	Notes         string             `json:"notes"`
	CreatedBy     pgtype.UUID        `json:"created_by"`
	PaidAt        pgtype.Timestamptz `json:"paid_at"`
	TransactionID pgtype.UUID        `json:"transaction_id"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type OrderItem struct {
	ID         uuid.UUID      `json:"id"`
	OrderID    uuid.UUID      `json:"order_id"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	Name       string         `json:"name"`
	Price      pgtype.Numeric `json:"price"`
	Quantity   int32          `json:"quantity"`
}

type Transaction struct {
	ID            uuid.UUID      `json:"id"`
	TableID       int32          `json:"table_id"`
	OrderID       pgtype.UUID    `json:"order_id"`
	Amount        pgtype.Numeric `json:"amount"`
	Subtotal      pgtype.Numeric `json:"subtotal"`
	Tax           pgtype.Numeric `json:"tax"`
	ServiceCharge pgtype.Numeric `json:"service_charge"`
	Method        string         `json:"method"`
	Override      bool           `json:"override"`
	ProcessedBy   pgtype.UUID    `json:"processed_by"`
	CreatedAt     time.Time      `json:"created_at"`
}

type MenuItem struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Price     pgtype.Numeric `json:"price"`
	Category  string         `json:"category"`
	InStock   bool           `json:"in_stock"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Setting struct {
	TaxRate           pgtype.Numeric `json:"tax_rate"`
	ServiceChargeRate pgtype.Numeric `json:"service_charge_rate"`
	Currency          string         `json:"currency"`
	CafeName          string         `json:"cafe_name"`
	ReceiptFooter     string         `json:"receipt_footer"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	HashedPassword string    `json:"hashed_password"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}
