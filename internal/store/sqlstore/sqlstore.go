// Package sqlstore is the relational Store on gorm, used with SQLite for
// single-till deployments and with MySQL where PostgreSQL is not available.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

// Open connects with the named driver ("sqlite" or "mysql") and migrates
// the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return New(db)
}

// New wraps an open gorm connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Table{}, &MenuItem{}, &Order{}, &OrderItem{}, &Transaction{}, &Setting{}, &User{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrNotFound
	}
	return err
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
}

// --- Tables ---

func (s *Store) CreateTable(ctx context.Context, t model.Table) (model.Table, error) {
	row := Table{
		ID:        t.ID,
		Label:     t.Label,
		Capacity:  t.Capacity,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Table{}, err
	}
	return row.toModel(), nil
}

func (s *Store) GetTable(ctx context.Context, id int32) (model.Table, error) {
	var row Table
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return model.Table{}, notFound(err)
	}
	return row.toModel(), nil
}

func (s *Store) ListTables(ctx context.Context) ([]model.Table, error) {
	var rows []Table
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Table, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) UpdateTableStatus(ctx context.Context, id int32, from, to string) (model.Table, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&Table{}).Where("id = ? AND status = ?", id, from).Update("status", to)
	if res.Error != nil {
		return model.Table{}, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetTable(ctx, id); err != nil {
			return model.Table{}, err
		}
		return model.Table{}, model.ErrStale
	}
	return s.GetTable(ctx, id)
}

// --- Orders ---

func (s *Store) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	row := fromOrder(o)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Table{}).Where("id = ?", o.TableID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("table %d: %w", o.TableID, model.ErrNotFound)
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return model.Order{}, err
	}
	return row.toModel(), nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	var row Order
	if err := withItems(s.db.WithContext(ctx)).First(&row, "id = ?", id).Error; err != nil {
		return model.Order{}, notFound(err)
	}
	return row.toModel(), nil
}

func (s *Store) ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	q := withItems(s.db.WithContext(ctx)).Order("created_at, id")
	if f.TableID != 0 {
		q = q.Where("table_id = ?", f.TableID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.UnpaidOnly {
		q = q.Where("paid_at IS NULL")
	}
	if f.Limit > 0 {
		q = q.Limit(int(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(int(f.Offset))
	}
	var rows []Order
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Order, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to string) (model.Order, error) {
	res := s.db.WithContext(ctx).Model(&Order{}).Where("id = ? AND status = ?", id, from).Update("status", to)
	if res.Error != nil {
		return model.Order{}, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetOrder(ctx, id); err != nil {
			return model.Order{}, err
		}
		return model.Order{}, model.ErrStale
	}
	return s.GetOrder(ctx, id)
}

// --- Transactions ---

func (s *Store) RecordPayment(ctx context.Context, tx model.Transaction, settle []model.Settlement) (model.Transaction, []model.Order, error) {
	row := Transaction{
		ID:            tx.ID,
		TableID:       tx.TableID,
		OrderID:       tx.OrderID,
		Amount:        tx.Amount,
		Subtotal:      tx.Subtotal,
		Tax:           tx.Tax,
		ServiceCharge: tx.ServiceCharge,
		Method:        tx.Method,
		Override:      tx.Override,
		ProcessedBy:   optional(tx.ProcessedBy),
		CreatedAt:     tx.CreatedAt,
	}
	settled := make([]model.Order, 0, len(settle))
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		for _, st := range settle {
			res := db.Model(&Order{}).
				Where("id = ? AND paid_at IS NULL", st.OrderID).
				Updates(map[string]interface{}{
					"paid_at":        st.PaidAt,
					"transaction_id": st.TransactionID,
					"status":         gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", st.CompleteFrom, st.CompleteTo),
					"updated_at":     st.PaidAt,
				})
			if res.Error != nil {
				return fmt.Errorf("settle order %s: %w", st.OrderID, res.Error)
			}
			if res.RowsAffected == 0 {
				var count int64
				if err := db.Model(&Order{}).Where("id = ?", st.OrderID).Count(&count).Error; err != nil {
					return err
				}
				if count == 0 {
					return fmt.Errorf("order %s: %w", st.OrderID, model.ErrNotFound)
				}
				return model.ErrStale
			}
			var o Order
			if err := withItems(db).First(&o, "id = ?", st.OrderID).Error; err != nil {
				return err
			}
			settled = append(settled, o.toModel())
		}
		return nil
	})
	if err != nil {
		return model.Transaction{}, nil, err
	}
	return row.toModel(), settled, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	var row Transaction
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return model.Transaction{}, notFound(err)
	}
	return row.toModel(), nil
}

func (s *Store) ListTransactions(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error) {
	q := s.db.WithContext(ctx).Order("created_at, id")
	if f.TableID != 0 {
		q = q.Where("table_id = ?", f.TableID)
	}
	if f.OrderID != nil {
		q = q.Where("order_id = ?", *f.OrderID)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	var rows []Transaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// --- Menu ---

func (s *Store) CreateMenuItem(ctx context.Context, m model.MenuItem) (model.MenuItem, error) {
	row := MenuItem{
		ID:        m.ID,
		Name:      m.Name,
		Price:     m.Price,
		Category:  m.Category,
		InStock:   m.InStock,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	// InStock=false is a zero value; Select forces gorm to write it.
	if err := s.db.WithContext(ctx).Select("*").Create(&row).Error; err != nil {
		return model.MenuItem{}, err
	}
	return row.toModel(), nil
}

func (s *Store) GetMenuItem(ctx context.Context, id uuid.UUID) (model.MenuItem, error) {
	var row MenuItem
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return model.MenuItem{}, notFound(err)
	}
	return row.toModel(), nil
}

func (s *Store) ListMenuItems(ctx context.Context, category string) ([]model.MenuItem, error) {
	q := s.db.WithContext(ctx).Order("category, name")
	if category != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(category))
	}
	var rows []MenuItem
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.MenuItem, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, m model.MenuItem) (model.MenuItem, error) {
	res := s.db.WithContext(ctx).Model(&MenuItem{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
		"name":       m.Name,
		"price":      m.Price,
		"category":   m.Category,
		"in_stock":   m.InStock,
		"updated_at": m.UpdatedAt,
	})
	if res.Error != nil {
		return model.MenuItem{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.MenuItem{}, model.ErrNotFound
	}
	return s.GetMenuItem(ctx, m.ID)
}

// --- Settings ---

func (s *Store) GetSettings(ctx context.Context) (model.Settings, error) {
	var row Setting
	if err := s.db.WithContext(ctx).First(&row, "id = ?", settingsID).Error; err != nil {
		return model.Settings{}, notFound(err)
	}
	return row.toModel(), nil
}

func (s *Store) SaveSettings(ctx context.Context, st model.Settings) (model.Settings, error) {
	row := Setting{
		ID:                settingsID,
		TaxRate:           st.TaxRate,
		ServiceChargeRate: st.ServiceChargeRate,
		Currency:          st.Currency,
		CafeName:          st.CafeName,
		ReceiptFooter:     st.ReceiptFooter,
		UpdatedAt:         st.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return model.Settings{}, err
	}
	return row.toModel(), nil
}

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	row := User{
		ID:             u.ID,
		Email:          strings.ToLower(u.Email),
		FullName:       u.FullName,
		HashedPassword: u.HashedPassword,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.User{}, fmt.Errorf("email %s: %w", row.Email, model.ErrDuplicate)
		}
		return model.User{}, err
	}
	return row.toModel(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var row User
	if err := s.db.WithContext(ctx).First(&row, "email = ?", strings.ToLower(email)).Error; err != nil {
		return model.User{}, notFound(err)
	}
	return row.toModel(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var row User
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return model.User{}, notFound(err)
	}
	return row.toModel(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var rows []User
	if err := s.db.WithContext(ctx).Order("email").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.User, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
