package shared

import (
	"time"

	"github.com/google/uuid"
)

// TenantAggregate is what the persistence context needs from an aggregate:
// identity, owner, the update timestamp it writes and the events it drains
// into the outbox at commit.
type TenantAggregate interface {
	GetID() uuid.UUID
	GetTenantID() uuid.UUID
	GetUpdatedAt() time.Time
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// TenantAggregateRoot carries the columns every payables table shares and the
// events raised since the aggregate was loaded
type TenantAggregateRoot struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	pending []DomainEvent `gorm:"-"`
}

// NewTenantAggregateRoot stamps a new id at version 1. Timestamps are UTC and
// truncated to microseconds, the precision Postgres stores.
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return TenantAggregateRoot{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (a *TenantAggregateRoot) GetID() uuid.UUID        { return a.ID }
func (a *TenantAggregateRoot) GetTenantID() uuid.UUID  { return a.TenantID }
func (a *TenantAggregateRoot) GetUpdatedAt() time.Time { return a.UpdatedAt }

// Touch moves UpdatedAt to now
func (a *TenantAggregateRoot) Touch() {
	a.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
}

// IncrementVersion bumps the optimistic locking version
func (a *TenantAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent queues an event for the next commit
func (a *TenantAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events in the order they were raised
func (a *TenantAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queued events once they are in the outbox
func (a *TenantAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
