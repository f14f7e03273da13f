package event

import (
	"testing"
	"time"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testBill(t *testing.T, tenantID uuid.UUID) *payables.Bill {
	t.Helper()
	b, err := payables.NewBill(tenantID, payables.BillDetails{
		Name:    "Electric",
		Amount:  decimal.RequireFromString("42.50"),
		DueDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func outboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewSQLiteDB(t, &OutboxRecord{})
}
