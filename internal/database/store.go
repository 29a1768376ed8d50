package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Pool is what Store needs from a connection pool. Satisfied by *pgxpool.Pool.
type Pool interface {
	DBTX
	TxBeginner
}

// Store implements the lifecycle persistence contract on PostgreSQL.
type Store struct {
	pool Pool
	q    *Queries
}

func NewStore(pool Pool) *Store {
	return &Store{pool: pool, q: New(pool)}
}

// notFound maps pgx.ErrNoRows to model.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// inTx runs fn inside a transaction and commits when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.q.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- Tables ---

func (s *Store) CreateTable(ctx context.Context, t model.Table) (model.Table, error) {
	row, err := s.q.CreateTable(ctx, CreateTableParams{
		ID:        t.ID,
		Label:     t.Label,
		Capacity:  t.Capacity,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	})
	if err != nil {
		return model.Table{}, err
	}
	return toTable(row), nil
}

func (s *Store) GetTable(ctx context.Context, id int32) (model.Table, error) {
	row, err := s.q.GetTable(ctx, id)
	if err != nil {
		return model.Table{}, notFound(err)
	}
	return toTable(row), nil
}

func (s *Store) ListTables(ctx context.Context) ([]model.Table, error) {
	rows, err := s.q.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Table, len(rows))
	for i, r := range rows {
		out[i] = toTable(r)
	}
	return out, nil
}

func (s *Store) UpdateTableStatus(ctx context.Context, id int32, from, to string) (model.Table, error) {
	row, err := s.q.UpdateTableStatus(ctx, UpdateTableStatusParams{ID: id, Status: to, Status_2: from})
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing table from a lost compare-and-swap.
		if _, getErr := s.q.GetTable(ctx, id); getErr != nil {
			return model.Table{}, notFound(getErr)
		}
		return model.Table{}, model.ErrStale
	}
	if err != nil {
		return model.Table{}, err
	}
	return toTable(row), nil
}

// --- Orders ---

func (s *Store) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	var created model.Order
	err := s.inTx(ctx, func(q *Queries) error {
		row, err := q.CreateOrder(ctx, CreateOrderParams{
			ID:        o.ID,
			TableID:   o.TableID,
			Status:    o.Status,
			Total:     decimalToNumeric(o.Total),
			Notes:     o.Notes,
			CreatedBy: optionalUUID(o.CreatedBy),
			CreatedAt: o.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		created = toOrder(row)
		for i, item := range o.Items {
			r, err := q.CreateOrderItem(ctx, CreateOrderItemParams{
				ID:         item.ID,
				OrderID:    row.ID,
				MenuItemID: item.MenuItemID,
				Name:       item.Name,
				Price:      decimalToNumeric(item.Price),
				Quantity:   item.Quantity,
				Position:   int32(i),
			})
			if err != nil {
				return fmt.Errorf("insert item[%d]: %w", i, err)
			}
			created.Items = append(created.Items, toOrderItem(r))
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return created, nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	row, err := s.q.GetOrder(ctx, id)
	if err != nil {
		return model.Order{}, notFound(err)
	}
	orders, err := s.withItems(ctx, []Order{row})
	if err != nil {
		return model.Order{}, err
	}
	return orders[0], nil
}

func (s *Store) ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	rows, err := s.q.ListOrders(ctx, ListOrdersParams{
		TableID:    f.TableID,
		Statuses:   f.Statuses,
		UnpaidOnly: f.UnpaidOnly,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, rows)
}

// withItems loads the items of every order in one query.
func (s *Store) withItems(ctx context.Context, rows []Order) ([]model.Order, error) {
	if len(rows) == 0 {
		return []model.Order{}, nil
	}
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	items, err := s.q.ListOrderItemsByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	byOrder := make(map[uuid.UUID][]model.OrderItem, len(rows))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], toOrderItem(it))
	}
	out := make([]model.Order, len(rows))
	for i, r := range rows {
		out[i] = toOrder(r)
		out[i].Items = byOrder[r.ID]
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to string) (model.Order, error) {
	row, err := s.q.UpdateOrderStatus(ctx, UpdateOrderStatusParams{ID: id, Status: to, Status_2: from})
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.q.GetOrder(ctx, id); getErr != nil {
			return model.Order{}, notFound(getErr)
		}
		return model.Order{}, model.ErrStale
	}
	if err != nil {
		return model.Order{}, err
	}
	orders, err := s.withItems(ctx, []Order{row})
	if err != nil {
		return model.Order{}, err
	}
	return orders[0], nil
}

// --- Transactions ---

// RecordPayment inserts the transaction and settles every order in one
// database transaction. An order that is already paid rolls everything back.
func (s *Store) RecordPayment(ctx context.Context, tx model.Transaction, settle []model.Settlement) (model.Transaction, []model.Order, error) {
	var (
		recorded model.Transaction
		settled  []Order
	)
	err := s.inTx(ctx, func(q *Queries) error {
		row, err := q.CreateTransaction(ctx, CreateTransactionParams{
			ID:            tx.ID,
			TableID:       tx.TableID,
			OrderID:       nullableUUID(tx.OrderID),
			Amount:        decimalToNumeric(tx.Amount),
			Subtotal:      decimalToNumeric(tx.Subtotal),
			Tax:           decimalToNumeric(tx.Tax),
			ServiceCharge: decimalToNumeric(tx.ServiceCharge),
			Method:        tx.Method,
			Override:      tx.Override,
			ProcessedBy:   optionalUUID(tx.ProcessedBy),
			CreatedAt:     tx.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		recorded = toTransaction(row)

		for _, st := range settle {
			o, err := q.SettleOrder(ctx, SettleOrderParams{
				ID:            st.OrderID,
				PaidAt:        st.PaidAt,
				TransactionID: st.TransactionID,
				CompleteFrom:  st.CompleteFrom,
				CompleteTo:    st.CompleteTo,
			})
			if errors.Is(err, pgx.ErrNoRows) {
				if _, getErr := q.GetOrder(ctx, st.OrderID); getErr != nil {
					return fmt.Errorf("order %s: %w", st.OrderID, notFound(getErr))
				}
				return model.ErrStale
			}
			if err != nil {
				return fmt.Errorf("settle order %s: %w", st.OrderID, err)
			}
			settled = append(settled, o)
		}
		return nil
	})
	if err != nil {
		return model.Transaction{}, nil, err
	}
	orders, err := s.withItems(ctx, settled)
	if err != nil {
		return model.Transaction{}, nil, err
	}
	return recorded, orders, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	row, err := s.q.GetTransaction(ctx, id)
	if err != nil {
		return model.Transaction{}, notFound(err)
	}
	return toTransaction(row), nil
}

func (s *Store) ListTransactions(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error) {
	rows, err := s.q.ListTransactions(ctx, ListTransactionsParams{
		TableID: f.TableID,
		OrderID: nullableUUID(f.OrderID),
		From:    optionalTime(f.From),
		To:      optionalTime(f.To),
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Transaction, len(rows))
	for i, r := range rows {
		out[i] = toTransaction(r)
	}
	return out, nil
}

// --- Menu ---

func (s *Store) CreateMenuItem(ctx context.Context, m model.MenuItem) (model.MenuItem, error) {
	row, err := s.q.CreateMenuItem(ctx, CreateMenuItemParams{
		ID:        m.ID,
		Name:      m.Name,
		Price:     decimalToNumeric(m.Price),
		Category:  m.Category,
		InStock:   m.InStock,
		CreatedAt: m.CreatedAt,
	})
	if err != nil {
		return model.MenuItem{}, err
	}
	return toMenuItem(row), nil
}

func (s *Store) GetMenuItem(ctx context.Context, id uuid.UUID) (model.MenuItem, error) {
	row, err := s.q.GetMenuItem(ctx, id)
	if err != nil {
		return model.MenuItem{}, notFound(err)
	}
	return toMenuItem(row), nil
}

func (s *Store) ListMenuItems(ctx context.Context, category string) ([]model.MenuItem, error) {
	rows, err := s.q.ListMenuItems(ctx, category)
	if err != nil {
		return nil, err
	}
	out := make([]model.MenuItem, len(rows))
	for i, r := range rows {
		out[i] = toMenuItem(r)
	}
	return out, nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, m model.MenuItem) (model.MenuItem, error) {
	row, err := s.q.UpdateMenuItem(ctx, UpdateMenuItemParams{
		ID:        m.ID,
		Name:      m.Name,
		Price:     decimalToNumeric(m.Price),
		Category:  m.Category,
		InStock:   m.InStock,
		UpdatedAt: m.UpdatedAt,
	})
	if err != nil {
		return model.MenuItem{}, notFound(err)
	}
	return toMenuItem(row), nil
}

// --- Settings ---

func (s *Store) GetSettings(ctx context.Context) (model.Settings, error) {
	row, err := s.q.GetSettings(ctx)
	if err != nil {
		return model.Settings{}, notFound(err)
	}
	return toSettings(row), nil
}

func (s *Store) SaveSettings(ctx context.Context, st model.Settings) (model.Settings, error) {
	row, err := s.q.UpsertSettings(ctx, UpsertSettingsParams{
		TaxRate:           decimalToNumeric(st.TaxRate),
		ServiceChargeRate: decimalToNumeric(st.ServiceChargeRate),
		Currency:          st.Currency,
		CafeName:          st.CafeName,
		ReceiptFooter:     st.ReceiptFooter,
		UpdatedAt:         st.UpdatedAt,
	})
	if err != nil {
		return model.Settings{}, err
	}
	return toSettings(row), nil
}

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	row, err := s.q.CreateUser(ctx, CreateUserParams{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		HashedPassword: u.HashedPassword,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, fmt.Errorf("email %s: %w", u.Email, model.ErrDuplicate)
		}
		return model.User{}, err
	}
	return toUser(row), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row, err := s.q.GetUserByEmail(ctx, email)
	if err != nil {
		return model.User{}, notFound(err)
	}
	return toUser(row), nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	row, err := s.q.GetUserByID(ctx, id)
	if err != nil {
		return model.User{}, notFound(err)
	}
	return toUser(row), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.q.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.User, len(rows))
	for i, r := range rows {
		out[i] = toUser(r)
	}
	return out, nil
}

// --- Row conversions ---

func toTable(r CafeTable) model.Table {
	return model.Table{
		ID:        r.ID,
		Label:     r.Label,
		Capacity:  r.Capacity,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toOrder(r Order) model.Order {
	o := model.Order{
		ID:        r.ID,
		TableID:   r.TableID,
		Status:    r.Status,
		Total:     numericToDecimal(r.Total),
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.CreatedBy.Valid {
		o.CreatedBy = uuid.UUID(r.CreatedBy.Bytes)
	}
	if r.PaidAt.Valid {
		t := r.PaidAt.Time
		o.PaidAt = &t
	}
	if r.TransactionID.Valid {
		id := uuid.UUID(r.TransactionID.Bytes)
		o.TransactionID = &id
	}
	return o
}

func toOrderItem(r OrderItem) model.OrderItem {
	return model.OrderItem{
		ID:         r.ID,
		OrderID:    r.OrderID,
		MenuItemID: r.MenuItemID,
		Name:       r.Name,
		Price:      numericToDecimal(r.Price),
		Quantity:   r.Quantity,
	}
}

func toTransaction(r Transaction) model.Transaction {
	tx := model.Transaction{
		ID:            r.ID,
		TableID:       r.TableID,
		Amount:        numericToDecimal(r.Amount),
		Subtotal:      numericToDecimal(r.Subtotal),
		Tax:           numericToDecimal(r.Tax),
		ServiceCharge: numericToDecimal(r.ServiceCharge),
		Method:        r.Method,
		Override:      r.Override,
		CreatedAt:     r.CreatedAt,
	}
	if r.OrderID.Valid {
		id := uuid.UUID(r.OrderID.Bytes)
		tx.OrderID = &id
	}
	if r.ProcessedBy.Valid {
		tx.ProcessedBy = uuid.UUID(r.ProcessedBy.Bytes)
	}
	return tx
}

func toMenuItem(r MenuItem) model.MenuItem {
	return model.MenuItem{
		ID:        r.ID,
		Name:      r.Name,
		Price:     numericToDecimal(r.Price),
		Category:  r.Category,
		InStock:   r.InStock,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toSettings(r Setting) model.Settings {
	return model.Settings{
		TaxRate:           numericToDecimal(r.TaxRate),
		ServiceChargeRate: numericToDecimal(r.ServiceChargeRate),
		Currency:          r.Currency,
		CafeName:          r.CafeName,
		ReceiptFooter:     r.ReceiptFooter,
		UpdatedAt:         r.UpdatedAt,
	}
}

func toUser(r User) model.User {
	return model.User{
		ID:             r.ID,
		Email:          r.Email,
		FullName:       r.FullName,
		HashedPassword: r.HashedPassword,
		Role:           r.Role,
		CreatedAt:      r.CreatedAt,
	}
}

// optionalUUID stores uuid.Nil as NULL.
func optionalUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func nullableUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func optionalTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}
