package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const transactionColumns = `id, table_id, order_id, amount, subtotal, tax, service_charge, method, override, processed_by, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.TableID,
		&i.OrderID,
		&i.Amount,
		&i.Subtotal,
		&i.Tax,
		&i.ServiceCharge,
		&i.Method,
		&i.Override,
		&i.ProcessedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (id, table_id, order_id, amount, subtotal, tax, service_charge, method, override, processed_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	ID            uuid.UUID
	TableID       int32
	OrderID       pgtype.UUID
	Amount        pgtype.Numeric
	Subtotal      pgtype.Numeric
	Tax           pgtype.Numeric
	ServiceCharge pgtype.Numeric
	Method        string
	Override      bool
	ProcessedBy   pgtype.UUID
	CreatedAt     time.Time
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, createTransaction,
		arg.ID,
		arg.TableID,
		arg.OrderID,
		arg.Amount,
		arg.Subtotal,
		arg.Tax,
		arg.ServiceCharge,
		arg.Method,
		arg.Override,
		arg.ProcessedBy,
		arg.CreatedAt,
	))
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1
`

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (Transaction, error) {
	return scanTransaction(q.db.QueryRow(ctx, getTransaction, id))
}

const listTransactions = `-- name: ListTransactions :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE ($1::int = 0 OR table_id = $1)
  AND ($2::uuid IS NULL OR order_id = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at, id
`

type ListTransactionsParams struct {
	TableID int32
	OrderID pgtype.UUID
	From    pgtype.Timestamptz
	To      pgtype.Timestamptz
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactions, arg.TableID, arg.OrderID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		i, err := scanTransaction(rows)
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
