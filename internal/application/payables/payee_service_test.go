package payables_test

import (
	"context"
	"testing"

	app "github.com/billpay/backend/internal/application/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayeeService_CreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.payees.Create(ctx, testutil.TenantA, app.CreatePayeeCommand{PayeeFields: app.PayeeFields{
		Name:          "  City Power  ",
		AccountNumber: strPtr("ACC-42"),
		Website:       strPtr("https://citypower.example"),
	}})
	require.NoError(t, err)
	assert.Equal(t, "City Power", created.Name)
	assert.Equal(t, "Other", created.Category)

	got, err := f.payees.GetByID(ctx, testutil.TenantA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, "ACC-42", *got.AccountNumber)
	assert.Equal(t, "https://citypower.example", *got.Website)
	assert.Nil(t, got.Phone)
	assert.Equal(t, 1, got.Version)
}

func TestPayeeService_RejectsInvalidWebsite(t *testing.T) {
	f := newFixture(t)
	_, err := f.payees.Create(context.Background(), testutil.TenantA, app.CreatePayeeCommand{PayeeFields: app.PayeeFields{
		Name:     "Bad",
		Website:  strPtr("citypower"),
		Category: "Food",
	}})
	requireValidation(t, err, "website")
	requireValidation(t, err, "category")
}

func TestPayeeService_UpdateWhitelistedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payee := f.createPayee(t, testutil.TenantA, "Water Co")

	updated, err := f.payees.Update(ctx, testutil.TenantA, payee.ID, app.UpdatePayeeCommand{
		ID:          &payee.ID,
		PayeeFields: app.PayeeFields{Name: "Water Company", Category: "Utilities", Phone: strPtr("555-0100")},
	})
	require.NoError(t, err)
	assert.Equal(t, payee.ID, updated.ID)
	assert.Equal(t, "Water Company", updated.Name)

	got, err := f.payees.GetByID(ctx, testutil.TenantA, payee.ID)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", *got.Phone)
	assert.Equal(t, 2, got.Version)
	assert.True(t, got.CreatedAt.Equal(payee.CreatedAt), "created_at is never assigned")
}

func TestPayeeService_DeleteOrphansBills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payee := f.createPayee(t, testutil.TenantA, "Landlord")
	fields := billFields("Rent", "1200.00", "2024-03-01")
	fields.PayeeID = &payee.ID
	bill := f.createBill(t, testutil.TenantA, fields)

	require.NoError(t, f.payees.Delete(ctx, testutil.TenantA, payee.ID))

	orphan, err := f.bills.GetByID(ctx, testutil.TenantA, bill.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan.PayeeID)
	assert.Nil(t, orphan.PayeeName)
	assert.Equal(t, "1200.00", orphan.Amount)
}

func TestPayeeService_ListSearchAndIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createPayee(t, testutil.TenantA, "Zeta Insurance")
	f.createPayee(t, testutil.TenantA, "Alpha Gas")
	f.createPayee(t, testutil.TenantA, "Beta 100% Fiber")
	f.createPayee(t, testutil.TenantB, "Alpha Foreign")

	all, err := f.payees.List(ctx, testutil.TenantA, app.PayeeListQuery{})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "Beta 100% Fiber", all.Items[1].Name)

	alpha, err := f.payees.List(ctx, testutil.TenantA, app.PayeeListQuery{Search: "ALPHA"})
	require.NoError(t, err)
	require.Len(t, alpha.Items, 1)
	assert.Equal(t, "Alpha Gas", alpha.Items[0].Name)

	percent, err := f.payees.List(ctx, testutil.TenantA, app.PayeeListQuery{Search: "100%"})
	require.NoError(t, err)
	assert.Len(t, percent.Items, 1, "LIKE wildcards in the search term are literal")

	utilities, err := f.payees.List(ctx, testutil.TenantA, app.PayeeListQuery{Category: "Utilities"})
	require.NoError(t, err)
	assert.Len(t, utilities.Items, 3)

	insurance, err := f.payees.List(ctx, testutil.TenantA, app.PayeeListQuery{Category: "Insurance"})
	require.NoError(t, err)
	assert.Empty(t, insurance.Items)
}

func TestPayeeService_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payee := f.createPayee(t, testutil.TenantA, "Water Co")

	_, err := f.payees.GetByID(ctx, testutil.TenantB, payee.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, f.payees.Delete(ctx, testutil.TenantA, uuid.New()), shared.ErrNotFound)

	require.NoError(t, f.payees.Delete(ctx, testutil.TenantA, payee.ID))
	assert.ErrorIs(t, f.payees.Delete(ctx, testutil.TenantA, payee.ID), shared.ErrNotFound)
}
