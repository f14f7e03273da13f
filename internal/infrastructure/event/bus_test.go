package event

import (
	"context"
	"errors"
	"testing"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, shared.DomainEvent) error { panic("nil map") }
func (panickingHandler) EventTypes() []string                             { return nil }

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	bills := testutil.NewRecordingHandler(payables.EventTypeBillCreated)
	all := testutil.NewRecordingHandler()
	bus.Subscribe(bills)
	bus.Subscribe(all)

	bill := testBill(t, testutil.TenantA)
	payee, err := payables.NewPayee(testutil.TenantA, payables.PayeeDetails{Name: "Gas Co", Category: payables.PayeeCategoryUtilities})
	require.NoError(t, err)

	events := append(bill.GetDomainEvents(), payee.GetDomainEvents()...)
	require.NoError(t, bus.Publish(context.Background(), events...))

	assert.Equal(t, 1, bills.Count())
	assert.Equal(t, 2, all.Count())
}

func TestInMemoryEventBus_FailuresAreCombined(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := testutil.NewRecordingHandler()
	failing.FailWith(errors.New("smtp down"))
	healthy := testutil.NewRecordingHandler()
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), testBill(t, testutil.TenantA).GetDomainEvents()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Equal(t, 1, healthy.Count(), "other handlers still run")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := testutil.NewRecordingHandler()
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), testBill(t, testutil.TenantA).GetDomainEvents()...))
	assert.Zero(t, h.Count())
}

func TestInMemoryEventBus_PanickingHandlerIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	healthy := testutil.NewRecordingHandler()
	bus.Subscribe(panickingHandler{})
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), testBill(t, testutil.TenantA).GetDomainEvents()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, 1, healthy.Count())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := testutil.NewRecordingHandler(payables.EventTypeBillCreated)
	bus.Subscribe(h, payables.EventTypePayeeCreated, payables.EventTypeBillPaid)

	require.NoError(t, bus.Publish(context.Background(), testBill(t, testutil.TenantA).GetDomainEvents()...))
	assert.Zero(t, h.Count())

	payee, err := payables.NewPayee(testutil.TenantA, payables.PayeeDetails{Name: "Gas Co"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), payee.GetDomainEvents()...))
	assert.Equal(t, 1, h.Count())

	bus.Unsubscribe(h)
	require.NoError(t, bus.Publish(context.Background(), payee.GetDomainEvents()...))
	assert.Equal(t, 1, h.Count())
}
