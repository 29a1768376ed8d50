// Package memstore is an in-process Store used by tests and single-node demos.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store keeps every record in maps guarded by one mutex, so each method is
// atomic with respect to the others.
type Store struct {
	mu       sync.Mutex
	tables   map[int32]model.Table
	orders   map[uuid.UUID]model.Order
	txs      map[uuid.UUID]model.Transaction
	txOrder  []uuid.UUID
	menu     map[uuid.UUID]model.MenuItem
	users    map[uuid.UUID]model.User
	settings *model.Settings
}

func New() *Store {
	return &Store{
		tables: make(map[int32]model.Table),
		orders: make(map[uuid.UUID]model.Order),
		txs:    make(map[uuid.UUID]model.Transaction),
		menu:   make(map[uuid.UUID]model.MenuItem),
		users:  make(map[uuid.UUID]model.User),
	}
}

// --- Tables ---

func (s *Store) CreateTable(_ context.Context, t model.Table) (model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[t.ID]; ok {
		return model.Table{}, fmt.Errorf("table %d already exists", t.ID)
	}
	s.tables[t.ID] = t
	return t, nil
}

func (s *Store) GetTable(_ context.Context, id int32) (model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return model.Table{}, model.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTables(_ context.Context) ([]model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateTableStatus(_ context.Context, id int32, from, to string) (model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return model.Table{}, model.ErrNotFound
	}
	if t.Status != from {
		return model.Table{}, model.ErrStale
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	s.tables[id] = t
	return t, nil
}

// SetOrderTotal overwrites a stored total without touching the items.
// Tests use it to simulate drift.
func (s *Store) SetOrderTotal(id uuid.UUID, total decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		o.Total = total
		s.orders[id] = o
	}
}

// --- Orders ---

func (s *Store) CreateOrder(_ context.Context, o model.Order) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[o.TableID]; !ok {
		return model.Order{}, fmt.Errorf("table %d: %w", o.TableID, model.ErrNotFound)
	}
	o = cloneOrder(o)
	s.orders[o.ID] = o
	return cloneOrder(o), nil
}

func (s *Store) GetOrder(_ context.Context, id uuid.UUID) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, model.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context, f model.OrderFilter) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make(map[string]bool, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses[st] = true
	}
	var out []model.Order
	for _, o := range s.orders {
		if f.TableID != 0 && o.TableID != f.TableID {
			continue
		}
		if len(statuses) > 0 && !statuses[o.Status] {
			continue
		}
		if f.UnpaidOnly && o.Paid() {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.Offset > 0 {
		if int(f.Offset) >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && int(f.Limit) < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id uuid.UUID, from, to string) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, model.ErrNotFound
	}
	if o.Status != from {
		return model.Order{}, model.ErrStale
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	s.orders[id] = o
	return cloneOrder(o), nil
}

// --- Transactions ---

func (s *Store) RecordPayment(_ context.Context, tx model.Transaction, settle []model.Settlement) (model.Transaction, []model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every settlement before writing anything.
	for _, st := range settle {
		o, ok := s.orders[st.OrderID]
		if !ok {
			return model.Transaction{}, nil, fmt.Errorf("order %s: %w", st.OrderID, model.ErrNotFound)
		}
		if o.Paid() {
			return model.Transaction{}, nil, model.ErrStale
		}
	}

	s.txs[tx.ID] = tx
	s.txOrder = append(s.txOrder, tx.ID)

	settled := make([]model.Order, 0, len(settle))
	for _, st := range settle {
		o := s.orders[st.OrderID]
		paidAt := st.PaidAt
		txID := st.TransactionID
		o.PaidAt = &paidAt
		o.TransactionID = &txID
		if st.CompleteFrom != "" && o.Status == st.CompleteFrom {
			o.Status = st.CompleteTo
		}
		o.UpdatedAt = st.PaidAt
		s.orders[o.ID] = o
		settled = append(settled, cloneOrder(o))
	}
	return tx, settled, nil
}

func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return model.Transaction{}, model.ErrNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, f model.TransactionFilter) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Transaction
	for _, id := range s.txOrder {
		tx := s.txs[id]
		if f.TableID != 0 && tx.TableID != f.TableID {
			continue
		}
		if f.OrderID != nil && (tx.OrderID == nil || *tx.OrderID != *f.OrderID) {
			continue
		}
		if !f.From.IsZero() && tx.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !tx.CreatedAt.Before(f.To) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// --- Menu ---

func (s *Store) CreateMenuItem(_ context.Context, m model.MenuItem) (model.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menu[m.ID] = m
	return m, nil
}

func (s *Store) GetMenuItem(_ context.Context, id uuid.UUID) (model.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.menu[id]
	if !ok {
		return model.MenuItem{}, model.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListMenuItems(_ context.Context, category string) ([]model.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.MenuItem
	for _, m := range s.menu {
		if category != "" && !strings.EqualFold(m.Category, category) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) UpdateMenuItem(_ context.Context, m model.MenuItem) (model.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.menu[m.ID]; !ok {
		return model.MenuItem{}, model.ErrNotFound
	}
	s.menu[m.ID] = m
	return m, nil
}

// --- Settings ---

func (s *Store) GetSettings(_ context.Context) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return model.Settings{}, model.ErrNotFound
	}
	return *s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, st model.Settings) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &st
	return st, nil
}

// --- Users ---

func (s *Store) CreateUser(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return model.User{}, fmt.Errorf("email %s: %w", u.Email, model.ErrDuplicate)
		}
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func cloneOrder(o model.Order) model.Order {
	if o.Items != nil {
		items := make([]model.OrderItem, len(o.Items))
		copy(items, o.Items)
		o.Items = items
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		o.PaidAt = &t
	}
	if o.TransactionID != nil {
		id := *o.TransactionID
		o.TransactionID = &id
	}
	return o
}
