package database

import (
	"context"
	"time"
)

const createTable = `-- name: CreateTable :one
INSERT INTO cafe_tables (id, label, capacity, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING id, label, capacity, status, created_at, updated_at
`

type CreateTableParams struct {
	ID        int32
	Label     string
	Capacity  int32
	Status    string
	CreatedAt time.Time
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (CafeTable, error) {
	row := q.db.QueryRow(ctx, createTable, arg.ID, arg.Label, arg.Capacity, arg.Status, arg.CreatedAt)
	var i CafeTable
	err := row.Scan(&i.ID, &i.Label, &i.Capacity, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getTable = `-- name: GetTable :one
SELECT id, label, capacity, status, created_at, updated_at FROM cafe_tables WHERE id = $1
`

func (q *Queries) GetTable(ctx context.Context, id int32) (CafeTable, error) {
	row := q.db.QueryRow(ctx, getTable, id)
	var i CafeTable
	err := row.Scan(&i.ID, &i.Label, &i.Capacity, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listTables = `-- name: ListTables :many
SELECT id, label, capacity, status, created_at, updated_at FROM cafe_tables ORDER BY id
`

func (q *Queries) ListTables(ctx context.Context) ([]CafeTable, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CafeTable{}
	for rows.Next() {
		var i CafeTable
		if err := rows.Scan(&i.ID, &i.Label, &i.Capacity, &i.Status, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateTableStatus = `-- name: UpdateTableStatus :one
UPDATE cafe_tables SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING id, label, capacity, status, created_at, updated_at
`

type UpdateTableStatusParams struct {
	ID       int32
	Status   string
	Status_2 string
}

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (CafeTable, error) {
	row := q.db.QueryRow(ctx, updateTableStatus, arg.ID, arg.Status, arg.Status_2)
	var i CafeTable
	err := row.Scan(&i.ID, &i.Label, &i.Capacity, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}
