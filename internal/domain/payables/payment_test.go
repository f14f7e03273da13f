package payables

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	tenantID := uuid.New()
	billID := uuid.New()

	t.Run("records payment", func(t *testing.T) {
		payment, err := NewPayment(tenantID, PaymentDetails{
			BillID:             billID,
			Amount:             decimal.RequireFromString("100.00"),
			PaymentDate:        time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC),
			PaymentMethod:      strPtr("Bank Transfer"),
			ConfirmationNumber: strPtr("CONF456"),
		})
		require.NoError(t, err)

		assert.Equal(t, billID, payment.BillID)
		assert.Equal(t, "100.00", payment.Amount.StringFixed(2))
		assert.Equal(t, "2026-10-01", payment.PaymentDate.Format(DateLayout))
		require.Len(t, payment.GetDomainEvents(), 1)
		evt, ok := payment.GetDomainEvents()[0].(*PaymentRecordedEvent)
		require.True(t, ok)
		assert.Equal(t, billID, evt.BillID)
	})

	t.Run("zero amount is rejected", func(t *testing.T) {
		_, err := NewPayment(tenantID, PaymentDetails{
			BillID:      billID,
			Amount:      decimal.Zero,
			PaymentDate: time.Now(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "greater than zero")
	})

	t.Run("amount above the column precision is rejected", func(t *testing.T) {
		_, err := NewPayment(tenantID, PaymentDetails{
			BillID:      billID,
			Amount:      decimal.RequireFromString("10000000000000000.00"),
			PaymentDate: time.Now(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "less than or equal to")
	})

	t.Run("bill is required", func(t *testing.T) {
		_, err := NewPayment(tenantID, PaymentDetails{Amount: decimal.NewFromInt(1), PaymentDate: time.Now()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bill_id")
	})
}

func TestPayment_AttachReceipt(t *testing.T) {
	payment, err := NewPayment(uuid.New(), PaymentDetails{
		BillID:      uuid.New(),
		Amount:      decimal.NewFromInt(5),
		PaymentDate: time.Now(),
	})
	require.NoError(t, err)

	require.Error(t, payment.AttachReceipt(" "))
	assert.Nil(t, payment.ReceiptKey)

	require.NoError(t, payment.AttachReceipt("tenants/x/receipts/y.pdf"))
	require.NotNil(t, payment.ReceiptKey)
	assert.Equal(t, 2, payment.Version)
}
