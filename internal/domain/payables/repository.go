package payables

import (
	"context"
	"time"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PayeeFilter narrows a payee listing. Zero values mean "no constraint".
type PayeeFilter struct {
	Search   string
	Category PayeeCategory
	Page     shared.Page
}

// BillFilter narrows a bill listing. All supplied constraints must match.
type BillFilter struct {
	PayeeID   *uuid.UUID
	Status    BillStatus
	Frequency BillingFrequency
	DueFrom   *time.Time
	DueTo     *time.Time
	Search    string
	AutoPay   *bool
	Page      shared.Page
}

// PaymentFilter narrows a payment listing. All supplied constraints must match.
type PaymentFilter struct {
	BillID   *uuid.UUID
	Method   string
	PaidFrom *time.Time
	PaidTo   *time.Time
	Page     shared.Page
}

// PayeeSet is the tenant-filtered view of payees
type PayeeSet interface {
	// Get returns shared.ErrNotFound when the payee is absent from the tenant
	Get(ctx context.Context, id uuid.UUID) (*Payee, error)
	// List returns the matching page ordered by name, and the total match count
	List(ctx context.Context, filter PayeeFilter) ([]Payee, int64, error)
}

// BillSet is the tenant-filtered view of bills. Bills are returned with their payee loaded.
type BillSet interface {
	Get(ctx context.Context, id uuid.UUID) (*Bill, error)
	// List orders by due date, then newest first
	List(ctx context.Context, filter BillFilter) ([]Bill, int64, error)
	// Overdue returns open bills due before asOf
	Overdue(ctx context.Context, asOf time.Time) ([]Bill, error)
}

// PaymentSet is the tenant-filtered view of payments
type PaymentSet interface {
	Get(ctx context.Context, id uuid.UUID) (*Payment, error)
	// List orders by payment date, newest first
	List(ctx context.Context, filter PaymentFilter) ([]Payment, int64, error)
}

// UnitOfWork is the persistence context of one operation for one tenant.
// Changes are staged by Add, Modify and Remove and applied atomically by Commit,
// together with the pending domain events of every staged aggregate.
type UnitOfWork interface {
	TenantID() uuid.UUID
	Payees() PayeeSet
	Bills() BillSet
	Payments() PaymentSet

	Add(aggregate shared.TenantAggregate)
	// Modify stages an update limited to fields; last write wins
	Modify(aggregate shared.TenantAggregate, fields ...string)
	// ModifyExpecting stages an update that only applies while the stored version equals expectedVersion
	ModifyExpecting(aggregate shared.TenantAggregate, expectedVersion int, fields ...string)
	Remove(aggregate shared.TenantAggregate)

	// Commit returns the number of entity rows affected
	Commit(ctx context.Context) (int64, error)
}

// UnitOfWorkFactory opens a fresh persistence context per operation
type UnitOfWorkFactory interface {
	Begin(tenantID uuid.UUID) UnitOfWork
}

// OverdueTenantFinder lists tenants that currently own overdue open bills.
// It is the only query that crosses tenants and is used by the background sweep.
type OverdueTenantFinder interface {
	TenantsWithOverdueBills(ctx context.Context, asOf time.Time) ([]uuid.UUID, error)
}
