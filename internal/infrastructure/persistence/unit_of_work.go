package persistence

import (
	"context"
	"fmt"
	"reflect"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRecorder stores domain events inside the commit transaction
type EventRecorder interface {
	PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// GormUnitOfWorkFactory opens GORM-backed units of work
type GormUnitOfWorkFactory struct {
	db     *gorm.DB
	events EventRecorder
}

// NewUnitOfWorkFactory creates a factory. events may be nil, in which case
// domain events are dropped at commit.
func NewUnitOfWorkFactory(db *gorm.DB, events EventRecorder) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db, events: events}
}

// Begin opens a unit of work confined to tenantID
func (f *GormUnitOfWorkFactory) Begin(tenantID uuid.UUID) payables.UnitOfWork {
	return &GormUnitOfWork{
		db:       f.db,
		events:   f.events,
		tenantID: tenantID,
		index:    make(map[uuid.UUID]int),
	}
}

type changeKind int

const (
	changeInsert changeKind = iota + 1
	changeUpdate
	changeDelete
)

type stagedChange struct {
	kind            changeKind
	aggregate       shared.TenantAggregate
	fields          []string
	expectedVersion int
	checkVersion    bool
}

// GormUnitOfWork stages changes in memory and applies them in one transaction.
// It is not safe for concurrent use; open one per operation.
type GormUnitOfWork struct {
	db       *gorm.DB
	events   EventRecorder
	tenantID uuid.UUID

	changes []*stagedChange
	index   map[uuid.UUID]int
	err     error
}

var _ payables.UnitOfWork = (*GormUnitOfWork)(nil)

// TenantID returns the tenant this unit of work is confined to
func (u *GormUnitOfWork) TenantID() uuid.UUID { return u.tenantID }

// Payees returns the tenant-filtered payee set
func (u *GormUnitOfWork) Payees() payables.PayeeSet { return payeeSet{u} }

// Bills returns the tenant-filtered bill set
func (u *GormUnitOfWork) Bills() payables.BillSet { return billSet{u} }

// Payments returns the tenant-filtered payment set
func (u *GormUnitOfWork) Payments() payables.PaymentSet { return paymentSet{u} }

// Add stages an insert
func (u *GormUnitOfWork) Add(aggregate shared.TenantAggregate) {
	if !u.owns(aggregate) {
		return
	}
	u.stage(&stagedChange{kind: changeInsert, aggregate: aggregate})
}

// Modify stages a last-write-wins update of fields
func (u *GormUnitOfWork) Modify(aggregate shared.TenantAggregate, fields ...string) {
	if !u.owns(aggregate) {
		return
	}
	u.stage(&stagedChange{kind: changeUpdate, aggregate: aggregate, fields: fields})
}

// ModifyExpecting stages an update of fields that applies only while the
// stored version still equals expectedVersion.
func (u *GormUnitOfWork) ModifyExpecting(aggregate shared.TenantAggregate, expectedVersion int, fields ...string) {
	if !u.owns(aggregate) {
		return
	}
	u.stage(&stagedChange{
		kind:            changeUpdate,
		aggregate:       aggregate,
		fields:          fields,
		expectedVersion: expectedVersion,
		checkVersion:    true,
	})
}

// Remove stages a delete
func (u *GormUnitOfWork) Remove(aggregate shared.TenantAggregate) {
	if !u.owns(aggregate) {
		return
	}
	u.stage(&stagedChange{kind: changeDelete, aggregate: aggregate})
}

func (u *GormUnitOfWork) owns(aggregate shared.TenantAggregate) bool {
	if aggregate.GetTenantID() == u.tenantID && u.tenantID != uuid.Nil {
		return true
	}
	if u.err == nil {
		u.err = fmt.Errorf("%w: %T %s is not owned by tenant %s",
			shared.ErrNotFound, aggregate, aggregate.GetID(), u.tenantID)
	}
	return false
}

// stage merges c with any change already staged for the same id.
// An insert stays an insert when later modified; an insert followed by a
// remove cancels out; update field lists accumulate.
func (u *GormUnitOfWork) stage(c *stagedChange) {
	id := c.aggregate.GetID()
	pos, ok := u.index[id]
	if !ok {
		u.index[id] = len(u.changes)
		u.changes = append(u.changes, c)
		return
	}

	prev := u.changes[pos]
	switch {
	case prev == nil:
		u.changes[pos] = c
	case prev.kind == changeInsert && c.kind == changeUpdate:
		prev.aggregate = c.aggregate
	case prev.kind == changeInsert && c.kind == changeDelete:
		u.changes[pos] = nil
	case prev.kind == changeUpdate && c.kind == changeUpdate:
		prev.aggregate = c.aggregate
		prev.fields = mergeFields(prev.fields, c.fields)
		if c.checkVersion && !prev.checkVersion {
			prev.checkVersion = true
			prev.expectedVersion = c.expectedVersion
		}
	default:
		u.changes[pos] = c
	}
}

func mergeFields(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, f := range append(append([]string{}, a...), b...) {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// staged returns the aggregate staged for id. removed is true when the
// pending change deletes it.
func (u *GormUnitOfWork) staged(id uuid.UUID) (aggregate shared.TenantAggregate, removed, ok bool) {
	pos, found := u.index[id]
	if !found {
		return nil, false, false
	}
	c := u.changes[pos]
	if c == nil {
		return nil, true, true
	}
	return c.aggregate, c.kind == changeDelete, true
}

// query returns a session restricted to the unit's tenant
func (u *GormUnitOfWork) query(ctx context.Context) *gorm.DB {
	return u.db.WithContext(ctx).Scopes(tenant.Owned(u.tenantID))
}

// Commit applies every staged change and records the pending domain events
// in a single transaction. Nothing is written when any step fails. Events
// are cleared from the aggregates only after the transaction commits.
func (u *GormUnitOfWork) Commit(ctx context.Context) (int64, error) {
	if u.err != nil {
		return 0, u.err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	pending := make([]*stagedChange, 0, len(u.changes))
	for _, c := range u.changes {
		if c != nil {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var affected int64
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var events []shared.DomainEvent
		for _, c := range pending {
			n, err := u.apply(tx, c)
			if err != nil {
				return err
			}
			affected += n
			events = append(events, c.aggregate.GetDomainEvents()...)
		}
		if len(events) > 0 && u.events != nil {
			if err := u.events.PublishWithTx(ctx, tx, events...); err != nil {
				return fmt.Errorf("record events: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, translateError("commit", err)
	}

	for _, c := range pending {
		c.aggregate.ClearDomainEvents()
	}
	u.changes = nil
	u.index = make(map[uuid.UUID]int)
	return affected, nil
}

func (u *GormUnitOfWork) apply(tx *gorm.DB, c *stagedChange) (int64, error) {
	switch c.kind {
	case changeInsert:
		res := tx.Omit(clause.Associations).Create(c.aggregate)
		return res.RowsAffected, res.Error
	case changeUpdate:
		return u.applyUpdate(tx, c)
	case changeDelete:
		res := tx.Scopes(tenant.Owned(u.tenantID)).Delete(c.aggregate)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			return 0, shared.ErrNotFound
		}
		return res.RowsAffected, nil
	}
	return 0, fmt.Errorf("unknown change kind %d", c.kind)
}

func (u *GormUnitOfWork) applyUpdate(tx *gorm.DB, c *stagedChange) (int64, error) {
	table, values, err := updateValues(tx, c.aggregate, c.fields)
	if err != nil {
		return 0, err
	}

	id := c.aggregate.GetID()
	q := tx.Table(table).Scopes(tenant.Row(u.tenantID, id))
	if c.checkVersion {
		q = q.Where("version = ?", c.expectedVersion)
	}
	res := q.Updates(values)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		return res.RowsAffected, nil
	}
	if !c.checkVersion {
		return 0, shared.ErrNotFound
	}

	var exists int64
	if err := tx.Table(table).Scopes(tenant.Row(u.tenantID, id)).Count(&exists).Error; err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, shared.ErrNotFound
	}
	return 0, shared.ErrConcurrencyConflict
}

// updateValues builds the column map of an explicit update: the whitelisted
// fields plus the bookkeeping columns. Unknown field names are rejected.
func updateValues(tx *gorm.DB, aggregate shared.TenantAggregate, fields []string) (string, map[string]any, error) {
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(aggregate); err != nil {
		return "", nil, fmt.Errorf("parse %T: %w", aggregate, err)
	}

	rv := reflect.Indirect(reflect.ValueOf(aggregate))
	values := make(map[string]any, len(fields)+2)
	for _, name := range fields {
		field := stmt.Schema.LookUpField(name)
		if field == nil || field.DBName == "" || field.PrimaryKey || field.DBName == tenant.Column {
			return "", nil, fmt.Errorf("column %q of %s cannot be updated", name, stmt.Schema.Table)
		}
		v, _ := field.ValueOf(tx.Statement.Context, rv)
		values[field.DBName] = v
	}
	values["updated_at"] = aggregate.GetUpdatedAt()
	values["version"] = gorm.Expr("version + 1")
	return stmt.Schema.Table, values, nil
}
