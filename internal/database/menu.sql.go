package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, price, category, in_stock, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...any) error }) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(&i.ID, &i.Name, &i.Price, &i.Category, &i.InStock, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items (id, name, price, category, in_stock, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	ID        uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Category  string
	InStock   bool
	CreatedAt time.Time
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.ID, arg.Name, arg.Price, arg.Category, arg.InStock, arg.CreatedAt))
}

const getMenuItem = `-- name: GetMenuItem :one
SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

const listMenuItems = `-- name: ListMenuItems :many
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE ($1::text = '' OR lower(category) = lower($1))
ORDER BY category, name
`

func (q *Queries) ListMenuItems(ctx context.Context, category string) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
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

const updateMenuItem = `-- name: UpdateMenuItem :one
UPDATE menu_items SET name = $2, price = $3, category = $4, in_stock = $5, updated_at = $6
WHERE id = $1
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID        uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Category  string
	InStock   bool
	UpdatedAt time.Time
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItem,
		arg.ID, arg.Name, arg.Price, arg.Category, arg.InStock, arg.UpdatedAt))
}
