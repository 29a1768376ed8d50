package sqlstore

import (
	"time"

	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Table struct {
	ID        int32     `gorm:"primaryKey;autoIncrement:false"`
	Label     string    `gorm:"type:varchar(50);not null"`
	Capacity  int32     `gorm:"not null"`
	Status    string    `gorm:"type:varchar(20);not null;default:'available'"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Table) TableName() string { return "cafe_tables" }

type Order struct {
	ID            uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	TableID       int32           `gorm:"not null;index:idx_orders_table_status"`
	Status        string          `gorm:"type:varchar(20);not null;index:idx_orders_table_status"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Notes         string          `gorm:"type:text"`
	CreatedBy     *uuid.UUID      `gorm:"type:varchar(36)"`
	PaidAt        *time.Time
	TransactionID *uuid.UUID  `gorm:"type:varchar(36)"`
	CreatedAt     time.Time   `gorm:"not null;index"`
	UpdatedAt     time.Time   `gorm:"not null"`
	Items         []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type OrderItem struct {
	ID         uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	OrderID    uuid.UUID       `gorm:"type:varchar(36);not null;index"`
	MenuItemID uuid.UUID       `gorm:"type:varchar(36);not null"`
	Name       string          `gorm:"type:varchar(100);not null"`
	Price      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity   int32           `gorm:"not null"`
	Position   int32           `gorm:"not null;default:0"`
}

type Transaction struct {
	ID            uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	TableID       int32           `gorm:"not null;index"`
	OrderID       *uuid.UUID      `gorm:"type:varchar(36);index"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tax           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ServiceCharge decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Method        string          `gorm:"type:varchar(20);not null"`
	Override      bool            `gorm:"not null;default:false"`
	ProcessedBy   *uuid.UUID      `gorm:"type:varchar(36)"`
	CreatedAt     time.Time       `gorm:"not null;index"`
}

type MenuItem struct {
	ID        uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	Name      string          `gorm:"type:varchar(100);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Category  string          `gorm:"type:varchar(50);index"`
	InStock   bool            `gorm:"not null;default:true"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// Setting is a singleton row keyed by settingsID.
type Setting struct {
	ID                int             `gorm:"primaryKey;autoIncrement:false"`
	TaxRate           decimal.Decimal `gorm:"type:decimal(5,4);not null"`
	ServiceChargeRate decimal.Decimal `gorm:"type:decimal(5,4);not null"`
	Currency          string          `gorm:"type:varchar(10);not null"`
	CafeName          string          `gorm:"type:varchar(100)"`
	ReceiptFooter     string          `gorm:"type:text"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

const settingsID = 1

type User struct {
	ID             uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Email          string    `gorm:"type:varchar(100);uniqueIndex;not null"`
	FullName       string    `gorm:"type:varchar(100);not null"`
	HashedPassword string    `gorm:"type:varchar(255);not null"`
	Role           string    `gorm:"type:varchar(20);not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (t Table) toModel() model.Table {
	return model.Table{
		ID:        t.ID,
		Label:     t.Label,
		Capacity:  t.Capacity,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (o Order) toModel() model.Order {
	m := model.Order{
		ID:            o.ID,
		TableID:       o.TableID,
		Status:        o.Status,
		Total:         o.Total,
		Notes:         o.Notes,
		PaidAt:        o.PaidAt,
		TransactionID: o.TransactionID,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.CreatedBy != nil {
		m.CreatedBy = *o.CreatedBy
	}
	for _, it := range o.Items {
		m.Items = append(m.Items, model.OrderItem{
			ID:         it.ID,
			OrderID:    it.OrderID,
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Price:      it.Price,
			Quantity:   it.Quantity,
		})
	}
	return m
}

func fromOrder(o model.Order) Order {
	row := Order{
		ID:            o.ID,
		TableID:       o.TableID,
		Status:        o.Status,
		Total:         o.Total,
		Notes:         o.Notes,
		CreatedBy:     optional(o.CreatedBy),
		PaidAt:        o.PaidAt,
		TransactionID: o.TransactionID,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for i, it := range o.Items {
		row.Items = append(row.Items, OrderItem{
			ID:         it.ID,
			OrderID:    o.ID,
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Price:      it.Price,
			Quantity:   it.Quantity,
			Position:   int32(i),
		})
	}
	return row
}

func (t Transaction) toModel() model.Transaction {
	m := model.Transaction{
		ID:            t.ID,
		TableID:       t.TableID,
		OrderID:       t.OrderID,
		Amount:        t.Amount,
		Subtotal:      t.Subtotal,
		Tax:           t.Tax,
		ServiceCharge: t.ServiceCharge,
		Method:        t.Method,
		Override:      t.Override,
		CreatedAt:     t.CreatedAt,
	}
	if t.ProcessedBy != nil {
		m.ProcessedBy = *t.ProcessedBy
	}
	return m
}

func (m MenuItem) toModel() model.MenuItem {
	return model.MenuItem{
		ID:        m.ID,
		Name:      m.Name,
		Price:     m.Price,
		Category:  m.Category,
		InStock:   m.InStock,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (s Setting) toModel() model.Settings {
	return model.Settings{
		TaxRate:           s.TaxRate,
		ServiceChargeRate: s.ServiceChargeRate,
		Currency:          s.Currency,
		CafeName:          s.CafeName,
		ReceiptFooter:     s.ReceiptFooter,
		UpdatedAt:         s.UpdatedAt,
	}
}

func (u User) toModel() model.User {
	return model.User{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		HashedPassword: u.HashedPassword,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
	}
}

func optional(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
