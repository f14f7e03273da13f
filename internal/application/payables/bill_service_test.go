package payables_test

import (
	"context"
	"testing"

	app "github.com/billpay/backend/internal/application/payables"
	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/tests/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillService_ExactMoneyLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payee := f.createPayee(t, testutil.TenantA, "City Power")

	fields := billFields("Electric", "42.50", "2024-03-15")
	fields.PayeeID = &payee.ID
	fields.Notes = strPtr("meter 7")
	created := f.createBill(t, testutil.TenantA, fields)
	require.NotEqual(t, uuid.Nil, created.ID)

	before, err := f.bills.GetByID(ctx, testutil.TenantA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "42.50", before.Amount)
	assert.Equal(t, "Pending", before.Status)
	assert.Equal(t, "2024-03-15", before.DueDate)
	assert.Equal(t, "2024-04-15", *before.NextDueDate)
	assert.Equal(t, "City Power", *before.PayeeName)
	assert.Nil(t, before.PaidAt)

	update := app.UpdateBillCommand{BillFields: fields}
	update.Amount = dec("50.00")
	update.Status = string(payables.BillStatusPaid)
	_, err = f.bills.Update(ctx, testutil.TenantA, created.ID, update)
	require.NoError(t, err)

	after, err := f.bills.GetByID(ctx, testutil.TenantA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", after.Amount)
	assert.Equal(t, "Paid", after.Status)
	assert.NotNil(t, after.PaidAt)
	assert.Equal(t, before.Version+1, after.Version)

	unchanged := cmpopts.IgnoreFields(app.BillResponse{}, "Amount", "Status", "PaidAt", "Version", "UpdatedAt")
	assert.Empty(t, cmp.Diff(*before, *after, unchanged), "only amount and status may change")

	assert.Equal(t, []string{"PayeeCreated", "BillCreated", "BillPaid", "BillUpdated"}, f.outboxTypes(t))

	require.NoError(t, f.bills.Delete(ctx, testutil.TenantA, created.ID))
	_, err = f.bills.GetByID(ctx, testutil.TenantA, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBillService_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.createBill(t, testutil.TenantA, billFields("Rent", "1200.00", "2024-03-01"))
	f.createBill(t, testutil.TenantA, billFields("Water", "30.10", "2024-03-05"))
	f.createBill(t, testutil.TenantB, billFields("Internet", "59.99", "2024-03-02"))

	listA, err := f.bills.List(ctx, testutil.TenantA, app.BillListQuery{})
	require.NoError(t, err)
	assert.Len(t, listA.Items, 2)
	assert.Equal(t, int64(2), listA.Total)

	listB, err := f.bills.List(ctx, testutil.TenantB, app.BillListQuery{})
	require.NoError(t, err)
	assert.Len(t, listB.Items, 1)

	_, err = f.bills.GetByID(ctx, testutil.TenantB, a1.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.bills.Update(ctx, testutil.TenantB, a1.ID, app.UpdateBillCommand{BillFields: billFields("Stolen", "1.00", "2024-03-01")})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, f.bills.Delete(ctx, testutil.TenantB, a1.ID), shared.ErrNotFound)

	still, err := f.bills.GetByID(ctx, testutil.TenantA, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent", still.Name)
	assert.Equal(t, "1200.00", still.Amount)
}

func TestBillService_ValidationHappensBeforePersistence(t *testing.T) {
	f := newFixture(t)

	_, err := f.bills.Create(context.Background(), testutil.TenantA, app.CreateBillCommand{BillFields: app.BillFields{
		Amount:   dec("-5"),
		DueDate:  "03/15/2024",
		Currency: "ZZZ",
		Status:   "Done",
	}})

	requireValidation(t, err, "name")
	requireValidation(t, err, "amount")
	requireValidation(t, err, "due_date")
	requireValidation(t, err, "currency")
	requireValidation(t, err, "status")
	assert.Zero(t, f.count(t, &payables.Bill{}))
	assert.Empty(t, f.outboxTypes(t))
}

func TestBillService_RejectsAmountsBeyondColumnPrecision(t *testing.T) {
	f := newFixture(t)

	_, err := f.bills.Create(context.Background(), testutil.TenantA, app.CreateBillCommand{BillFields: billFields("Huge", "1e20", "2024-03-15")})

	requireValidation(t, err, "amount")
	assert.Zero(t, f.count(t, &payables.Bill{}))
}

func TestBillService_PayeeMustBelongToTenant(t *testing.T) {
	f := newFixture(t)
	foreign := f.createPayee(t, testutil.TenantB, "Other tenant payee")

	fields := billFields("Gas", "12.00", "2024-05-01")
	fields.PayeeID = &foreign.ID
	_, err := f.bills.Create(context.Background(), testutil.TenantA, app.CreateBillCommand{BillFields: fields})

	requireValidation(t, err, "payee_id")
	assert.Zero(t, f.count(t, &payables.Bill{}))
}

func TestBillService_UpdateAbsent(t *testing.T) {
	f := newFixture(t)
	f.createBill(t, testutil.TenantA, billFields("Rent", "1200.00", "2024-03-01"))

	_, err := f.bills.Update(context.Background(), testutil.TenantA, uuid.New(),
		app.UpdateBillCommand{BillFields: billFields("Ghost", "1.00", "2024-03-01")})

	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, int64(1), f.count(t, &payables.Bill{}))
}

func TestBillService_UpdateBodyIDMustMatchPath(t *testing.T) {
	f := newFixture(t)
	bill := f.createBill(t, testutil.TenantA, billFields("Rent", "1200.00", "2024-03-01"))

	other := uuid.New()
	_, err := f.bills.Update(context.Background(), testutil.TenantA, bill.ID,
		app.UpdateBillCommand{ID: &other, BillFields: billFields("Rent", "1300.00", "2024-03-01")})

	requireValidation(t, err, "id")
}

func TestBillService_VersionedUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t, testutil.TenantA, billFields("Rent", "1200.00", "2024-03-01"))
	require.Equal(t, 1, bill.Version)

	updated, err := f.bills.Update(ctx, testutil.TenantA, bill.ID, app.UpdateBillCommand{
		Version:    intPtr(1),
		BillFields: billFields("Rent", "1250.00", "2024-03-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	_, err = f.bills.Update(ctx, testutil.TenantA, bill.ID, app.UpdateBillCommand{
		Version:    intPtr(1),
		BillFields: billFields("Rent", "9999.00", "2024-03-01"),
	})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	current, err := f.bills.GetByID(ctx, testutil.TenantA, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "1250.00", current.Amount)
}

func TestBillService_DeleteTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t, testutil.TenantA, billFields("Rent", "1200.00", "2024-03-01"))

	require.NoError(t, f.bills.Delete(ctx, testutil.TenantA, bill.ID))
	assert.ErrorIs(t, f.bills.Delete(ctx, testutil.TenantA, bill.ID), shared.ErrNotFound)
	assert.ErrorIs(t, f.bills.Delete(ctx, testutil.TenantA, uuid.New()), shared.ErrNotFound)
}

func TestBillService_DeleteCascadesPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t, testutil.TenantA, billFields("Rent", "1200.00", "2024-03-01"))
	payment := f.createPayment(t, testutil.TenantA, bill.ID, "1200.00", "2024-02-28")

	require.NoError(t, f.bills.Delete(ctx, testutil.TenantA, bill.ID))

	_, err := f.payments.GetByID(ctx, testutil.TenantA, payment.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Zero(t, f.count(t, &payables.Payment{}))
}

func TestBillService_ListOrderAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payee := f.createPayee(t, testutil.TenantA, "Landlord")

	rent := billFields("Rent", "1200.00", "2024-03-01")
	rent.PayeeID = &payee.ID
	rent.AutoPay = true
	f.createBill(t, testutil.TenantA, rent)
	f.createBill(t, testutil.TenantA, billFields("Water", "30.00", "2024-02-10"))
	gym := billFields("Gym", "25.00", "2024-04-01")
	gym.Frequency = string(payables.FrequencyOneTime)
	f.createBill(t, testutil.TenantA, gym)

	all, err := f.bills.List(ctx, testutil.TenantA, app.BillListQuery{})
	require.NoError(t, err)
	names := make([]string, len(all.Items))
	for i, b := range all.Items {
		names[i] = b.Name
	}
	assert.Equal(t, []string{"Water", "Rent", "Gym"}, names)
	assert.Nil(t, all.Items[2].NextDueDate, "one-time bills do not recur")

	byPayee, err := f.bills.List(ctx, testutil.TenantA, app.BillListQuery{PayeeID: payee.ID.String()})
	require.NoError(t, err)
	require.Len(t, byPayee.Items, 1)
	assert.Equal(t, "Landlord", *byPayee.Items[0].PayeeName)

	autoPay := true
	auto, err := f.bills.List(ctx, testutil.TenantA, app.BillListQuery{AutoPay: &autoPay})
	require.NoError(t, err)
	assert.Len(t, auto.Items, 1)

	window, err := f.bills.List(ctx, testutil.TenantA, app.BillListQuery{DueFrom: "2024-02-15", DueTo: "2024-03-31"})
	require.NoError(t, err)
	require.Len(t, window.Items, 1)
	assert.Equal(t, "Rent", window.Items[0].Name)

	page, err := f.bills.List(ctx, testutil.TenantA, app.BillListQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Total)

	none, err := f.bills.List(ctx, testutil.TenantA, app.BillListQuery{Search: "nothing like this"})
	require.NoError(t, err)
	assert.NotNil(t, none.Items)
	assert.Empty(t, none.Items)

	_, err = f.bills.List(ctx, testutil.TenantA, app.BillListQuery{Status: "Lost"})
	requireValidation(t, err, "status")
}

func TestBillService_RequiresTenant(t *testing.T) {
	f := newFixture(t)
	_, err := f.bills.GetByID(context.Background(), uuid.Nil, uuid.New())
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestBillService_CancelledContextWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.bills.Create(ctx, testutil.TenantA, app.CreateBillCommand{BillFields: billFields("Rent", "1.00", "2024-03-01")})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.count(t, &payables.Bill{}))
}
