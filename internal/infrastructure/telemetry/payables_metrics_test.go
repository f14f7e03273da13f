package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", agg)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestPayablesMetrics_Handle(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewPayablesMetrics(provider.Meter(meterName))
	require.NoError(t, err)
	ctx := context.Background()
	tenantID := uuid.New()

	bill, err := payables.NewBill(tenantID, payables.BillDetails{
		Name:     "Water",
		Amount:   decimal.RequireFromString("30.00"),
		Currency: "USD",
		DueDate:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, m.Handle(ctx, payables.NewBillCreatedEvent(bill)))
	require.NoError(t, m.Handle(ctx, payables.NewBillOverdueEvent(bill)))

	method := "ach"
	payment, err := payables.NewPayment(tenantID, payables.PaymentDetails{
		BillID:        bill.ID,
		Amount:        decimal.RequireFromString("30.00"),
		PaymentDate:   time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		PaymentMethod: &method,
	})
	require.NoError(t, err)
	require.NoError(t, m.Handle(ctx, payables.NewPaymentRecordedEvent(payment)))

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumOf(t, got["billpay.bills.created"]))
	assert.Equal(t, int64(1), sumOf(t, got["billpay.bills.overdue"]))
	assert.Equal(t, int64(1), sumOf(t, got["billpay.payments.recorded"]))
	assert.NotContains(t, got, "billpay.bills.paid")

	hist, ok := got["billpay.payments.amount"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, 30.0, hist.DataPoints[0].Sum)
	v, _ := hist.DataPoints[0].Attributes.Value("method")
	assert.Equal(t, "ach", v.AsString())
}

func TestPayablesMetrics_IgnoresOtherEvents(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := NewPayablesMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter(meterName))
	require.NoError(t, err)

	payee, err := payables.NewPayee(uuid.New(), payables.PayeeDetails{Name: "City Utilities"})
	require.NoError(t, err)
	require.NoError(t, m.Handle(context.Background(), payables.NewPayeeCreatedEvent(payee)))
	assert.Empty(t, collect(t, reader))
}
