package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	orderID := uuid.New()
	r := Receipt{
		Settings: model.Settings{CafeName: "Café Kopi", Currency: "IDR", ReceiptFooter: "Terima kasih"},
		Transaction: model.Transaction{
			ID:            uuid.New(),
			TableID:       4,
			Amount:        decimal.RequireFromString("1078.00"),
			Subtotal:      decimal.RequireFromString("980.00"),
			ServiceCharge: decimal.RequireFromString("98.00"),
			Tax:           decimal.Zero,
			Method:        enum.PaymentMethodCash,
			CreatedAt:     time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		},
		Orders: []model.Order{{
			ID:      orderID,
			TableID: 4,
			Items: []model.OrderItem{
				{Name: "Latte", Price: decimal.RequireFromString("245.00"), Quantity: 2},
				{Name: "Croissant", Price: decimal.RequireFromString("490.00"), Quantity: 1},
			},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "output should be a PDF")
	assert.Greater(t, buf.Len(), 500)
}

func TestWriteNoOrders(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Receipt{
		Settings:    model.Settings{CafeName: "Cafe"},
		Transaction: model.Transaction{ID: uuid.New(), Amount: decimal.Zero, Method: enum.PaymentMethodOnline, Override: true},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
