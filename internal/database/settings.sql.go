package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const getSettings = `-- name: GetSettings :one
SELECT tax_rate, service_charge_rate, currency, cafe_name, receipt_footer, updated_at
FROM settings WHERE id
`

func (q *Queries) GetSettings(ctx context.Context) (Setting, error) {
	row := q.db.QueryRow(ctx, getSettings)
	var i Setting
	err := row.Scan(&i.TaxRate, &i.ServiceChargeRate, &i.Currency, &i.CafeName, &i.ReceiptFooter, &i.UpdatedAt)
	return i, err
}

const upsertSettings = `-- name: UpsertSettings :one
INSERT INTO settings (id, tax_rate, service_charge_rate, currency, cafe_name, receipt_footer, updated_at)
VALUES (true, $1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    tax_rate = EXCLUDED.tax_rate,
    service_charge_rate = EXCLUDED.service_charge_rate,
    currency = EXCLUDED.currency,
    cafe_name = EXCLUDED.cafe_name,
    receipt_footer = EXCLUDED.receipt_footer,
    updated_at = EXCLUDED.updated_at
RETURNING tax_rate, service_charge_rate, currency, cafe_name, receipt_footer, updated_at
`

type UpsertSettingsParams struct {
	TaxRate           pgtype.Numeric
	ServiceChargeRate pgtype.Numeric
	Currency          string
	CafeName          string
	ReceiptFooter     string
	UpdatedAt         time.Time
}

func (q *Queries) UpsertSettings(ctx context.Context, arg UpsertSettingsParams) (Setting, error) {
	row := q.db.QueryRow(ctx, upsertSettings,
		arg.TaxRate,
		arg.ServiceChargeRate,
		arg.Currency,
		arg.CafeName,
		arg.ReceiptFooter,
		arg.UpdatedAt,
	)
	var i Setting
	err := row.Scan(&i.TaxRate, &i.ServiceChargeRate, &i.Currency, &i.CafeName, &i.ReceiptFooter, &i.UpdatedAt)
	return i, err
}
