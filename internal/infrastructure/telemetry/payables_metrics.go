package telemetry

import (
	"context"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/billpay/backend/payables"

// PayablesMetrics derives business metrics from delivered domain events
type PayablesMetrics struct {
	billsCreated     metric.Int64Counter
	billsPaid        metric.Int64Counter
	billsOverdue     metric.Int64Counter
	paymentsRecorded metric.Int64Counter
	paymentAmount    metric.Float64Histogram
}

// NewPayablesMetrics creates the instruments on meter
func NewPayablesMetrics(meter metric.Meter) (*PayablesMetrics, error) {
	m := &PayablesMetrics{}
	var err error
	if m.billsCreated, err = meter.Int64Counter("billpay.bills.created",
		metric.WithDescription("Bills created"), metric.WithUnit("{bill}")); err != nil {
		return nil, err
	}
	if m.billsPaid, err = meter.Int64Counter("billpay.bills.paid",
		metric.WithDescription("Bills transitioned to Paid"), metric.WithUnit("{bill}")); err != nil {
		return nil, err
	}
	if m.billsOverdue, err = meter.Int64Counter("billpay.bills.overdue",
		metric.WithDescription("Bills marked overdue by the sweep"), metric.WithUnit("{bill}")); err != nil {
		return nil, err
	}
	if m.paymentsRecorded, err = meter.Int64Counter("billpay.payments.recorded",
		metric.WithDescription("Payments recorded"), metric.WithUnit("{payment}")); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = meter.Float64Histogram("billpay.payments.amount",
		metric.WithDescription("Recorded payment amounts"),
		metric.WithExplicitBucketBoundaries(10, 50, 100, 250, 500, 1000, 5000)); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes implements shared.EventHandler
func (m *PayablesMetrics) EventTypes() []string {
	return []string{
		payables.EventTypeBillCreated,
		payables.EventTypeBillPaid,
		payables.EventTypeBillOverdue,
		payables.EventTypePaymentRecorded,
	}
}

// Handle implements shared.EventHandler. Tenant ids are not used as attributes.
func (m *PayablesMetrics) Handle(ctx context.Context, ev shared.DomainEvent) error {
	switch e := ev.(type) {
	case *payables.BillCreatedEvent:
		m.billsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", e.Currency)))
	case *payables.BillPaidEvent:
		m.billsPaid.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", e.Currency)))
	case *payables.BillOverdueEvent:
		m.billsOverdue.Add(ctx, 1)
	case *payables.PaymentRecordedEvent:
		method := "unspecified"
		if e.Method != nil && *e.Method != "" {
			method = *e.Method
		}
		attrs := metric.WithAttributes(attribute.String("method", method))
		m.paymentsRecorded.Add(ctx, 1, attrs)
		m.paymentAmount.Record(ctx, e.Amount.InexactFloat64(), attrs)
	}
	return nil
}
