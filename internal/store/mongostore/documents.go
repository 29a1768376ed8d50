package mongostore

import (
	"time"

	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type tableDoc struct {
	ID        int32     `bson:"_id"`
	Label     string    `bson:"label"`
	Capacity  int32     `bson:"capacity"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// orderDoc embeds its items; an order and its lines are always read and
// written together.
type orderDoc struct {
	ID            string               `bson:"_id"`
	TableID       int32                `bson:"table_id"`
	Status        string               `bson:"status"`
	Total         primitive.Decimal128 `bson:"total"`
	Notes         string               `bson:"notes,omitempty"`
	CreatedBy     string               `bson:"created_by,omitempty"`
	PaidAt        *time.Time           `bson:"paid_at"`
	TransactionID string               `bson:"transaction_id,omitempty"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
	Items         []itemDoc            `bson:"items"`
}

type itemDoc struct {
	ID         string               `bson:"id"`
	MenuItemID string               `bson:"menu_item_id"`
	Name       string               `bson:"name"`
	Price      primitive.Decimal128 `bson:"price"`
	Quantity   int32                `bson:"quantity"`
}

type transactionDoc struct {
	ID            string               `bson:"_id"`
	TableID       int32                `bson:"table_id"`
	OrderID       string               `bson:"order_id,omitempty"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Subtotal      primitive.Decimal128 `bson:"subtotal"`
	Tax           primitive.Decimal128 `bson:"tax"`
	ServiceCharge primitive.Decimal128 `bson:"service_charge"`
	Method        string               `bson:"method"`
	Override      bool                 `bson:"override"`
	ProcessedBy   string               `bson:"processed_by,omitempty"`
	CreatedAt     time.Time            `bson:"created_at"`
}

type menuItemDoc struct {
	ID        string               `bson:"_id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Category  string               `bson:"category"`
	InStock   bool                 `bson:"in_stock"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

type settingsDoc struct {
	ID                string               `bson:"_id"`
	TaxRate           primitive.Decimal128 `bson:"tax_rate"`
	ServiceChargeRate primitive.Decimal128 `bson:"service_charge_rate"`
	Currency          string               `bson:"currency"`
	CafeName          string               `bson:"cafe_name"`
	ReceiptFooter     string               `bson:"receipt_footer"`
	UpdatedAt         time.Time            `bson:"updated_at"`
}

const settingsKey = "cafe"

type userDoc struct {
	ID             string    `bson:"_id"`
	Email          string    `bson:"email"`
	FullName       string    `bson:"full_name"`
	HashedPassword string    `bson:"hashed_password"`
	Role           string    `bson:"role"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		// decimal.String never produces a value Decimal128 cannot parse
		// for the magnitudes a till handles.
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func optionalID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := parseID(s)
	return &id
}

func (d tableDoc) toModel() model.Table {
	return model.Table{
		ID:        d.ID,
		Label:     d.Label,
		Capacity:  d.Capacity,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func fromTable(t model.Table) tableDoc {
	return tableDoc{
		ID:        t.ID,
		Label:     t.Label,
		Capacity:  t.Capacity,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (d orderDoc) toModel() model.Order {
	id := parseID(d.ID)
	o := model.Order{
		ID:            id,
		TableID:       d.TableID,
		Status:        d.Status,
		Total:         fromDecimal128(d.Total),
		Notes:         d.Notes,
		CreatedBy:     parseID(d.CreatedBy),
		PaidAt:        d.PaidAt,
		TransactionID: optionalID(d.TransactionID),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, it := range d.Items {
		o.Items = append(o.Items, model.OrderItem{
			ID:         parseID(it.ID),
			OrderID:    id,
			MenuItemID: parseID(it.MenuItemID),
			Name:       it.Name,
			Price:      fromDecimal128(it.Price),
			Quantity:   it.Quantity,
		})
	}
	return o
}

func fromOrder(o model.Order) orderDoc {
	d := orderDoc{
		ID:        o.ID.String(),
		TableID:   o.TableID,
		Status:    o.Status,
		Total:     toDecimal128(o.Total),
		Notes:     o.Notes,
		CreatedBy: idString(o.CreatedBy),
		PaidAt:    o.PaidAt,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		Items:     make([]itemDoc, 0, len(o.Items)),
	}
	if o.TransactionID != nil {
		d.TransactionID = o.TransactionID.String()
	}
	for _, it := range o.Items {
		d.Items = append(d.Items, itemDoc{
			ID:         it.ID.String(),
			MenuItemID: it.MenuItemID.String(),
			Name:       it.Name,
			Price:      toDecimal128(it.Price),
			Quantity:   it.Quantity,
		})
	}
	return d
}

func (d transactionDoc) toModel() model.Transaction {
	return model.Transaction{
		ID:            parseID(d.ID),
		TableID:       d.TableID,
		OrderID:       optionalID(d.OrderID),
		Amount:        fromDecimal128(d.Amount),
		Subtotal:      fromDecimal128(d.Subtotal),
		Tax:           fromDecimal128(d.Tax),
		ServiceCharge: fromDecimal128(d.ServiceCharge),
		Method:        d.Method,
		Override:      d.Override,
		ProcessedBy:   parseID(d.ProcessedBy),
		CreatedAt:     d.CreatedAt,
	}
}

func fromTransaction(t model.Transaction) transactionDoc {
	d := transactionDoc{
		ID:            t.ID.String(),
		TableID:       t.TableID,
		Amount:        toDecimal128(t.Amount),
		Subtotal:      toDecimal128(t.Subtotal),
		Tax:           toDecimal128(t.Tax),
		ServiceCharge: toDecimal128(t.ServiceCharge),
		Method:        t.Method,
		Override:      t.Override,
		ProcessedBy:   idString(t.ProcessedBy),
		CreatedAt:     t.CreatedAt,
	}
	if t.OrderID != nil {
		d.OrderID = t.OrderID.String()
	}
	return d
}

func (d menuItemDoc) toModel() model.MenuItem {
	return model.MenuItem{
		ID:        parseID(d.ID),
		Name:      d.Name,
		Price:     fromDecimal128(d.Price),
		Category:  d.Category,
		InStock:   d.InStock,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func fromMenuItem(m model.MenuItem) menuItemDoc {
	return menuItemDoc{
		ID:        m.ID.String(),
		Name:      m.Name,
		Price:     toDecimal128(m.Price),
		Category:  m.Category,
		InStock:   m.InStock,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (d settingsDoc) toModel() model.Settings {
	return model.Settings{
		TaxRate:           fromDecimal128(d.TaxRate),
		ServiceChargeRate: fromDecimal128(d.ServiceChargeRate),
		Currency:          d.Currency,
		CafeName:          d.CafeName,
		ReceiptFooter:     d.ReceiptFooter,
		UpdatedAt:         d.UpdatedAt,
	}
}

func (d userDoc) toModel() model.User {
	return model.User{
		ID:             parseID(d.ID),
		Email:          d.Email,
		FullName:       d.FullName,
		HashedPassword: d.HashedPassword,
		Role:           d.Role,
		CreatedAt:      d.CreatedAt,
	}
}
