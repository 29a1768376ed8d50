package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, table_id, status, total, notes, created_by, paid_at, transaction_id, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.TableID,
		&i.Status,
		&i.Total,
		&i.Notes,
		&i.CreatedBy,
		&i.PaidAt,
		&i.TransactionID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (id, table_id, status, total, notes, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	ID        uuid.UUID
	TableID   int32
	Status    string
	Total     pgtype.Numeric
	Notes     string
	CreatedBy pgtype.UUID
	CreatedAt time.Time
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.ID,
		arg.TableID,
		arg.Status,
		arg.Total,
		arg.Notes,
		arg.CreatedBy,
		arg.CreatedAt,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (id, order_id, menu_item_id, name, price, quantity, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, menu_item_id, name, price, quantity
`

type CreateOrderItemParams struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Price      pgtype.Numeric
	Quantity   int32
	Position   int32
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.ID,
		arg.OrderID,
		arg.MenuItemID,
		arg.Name,
		arg.Price,
		arg.Quantity,
		arg.Position,
	)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Name, &i.Price, &i.Quantity)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::int = 0 OR table_id = $1)
  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
  AND (NOT $3::bool OR paid_at IS NULL)
ORDER BY created_at, id
LIMIT NULLIF($4::int, 0) OFFSET $5
`

type ListOrdersParams struct {
	TableID    int32
	Statuses   []string
	UnpaidOnly bool
	Limit      int32
	Offset     int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	statuses := arg.Statuses
	if statuses == nil {
		statuses = []string{}
	}
	rows, err := q.db.Query(ctx, listOrders, arg.TableID, statuses, arg.UnpaidOnly, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOrderItemsByOrders = `-- name: ListOrderItemsByOrders :many
SELECT id, order_id, menu_item_id, name, price, quantity
FROM order_items WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`

func (q *Queries) ListOrderItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Name, &i.Price, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID       uuid.UUID
	Status   string
	Status_2 string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.Status_2))
}

const settleOrder = `-- name: SettleOrder :one
UPDATE orders SET
    paid_at = $2,
    transaction_id = $3,
    status = CASE WHEN status = $4 THEN $5 ELSE status END,
    updated_at = $2
WHERE id = $1 AND paid_at IS NULL
RETURNING ` + orderColumns

type SettleOrderParams struct {
	ID            uuid.UUID
	PaidAt        time.Time
	TransactionID uuid.UUID
	CompleteFrom  string
	CompleteTo    string
}

func (q *Queries) SettleOrder(ctx context.Context, arg SettleOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, settleOrder,
		arg.ID,
		arg.PaidAt,
		arg.TransactionID,
		arg.CompleteFrom,
		arg.CompleteTo,
	))
}
