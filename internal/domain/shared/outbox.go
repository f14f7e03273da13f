package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// RetryPolicy schedules redelivery of failed entries. The n-th failure waits
// BaseDelay * 2^(n-1), capped at MaxDelay. An entry that fails MaxAttempts
// times is dead.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy gives up after five attempts
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 10 * time.Minute}
}

// Delay returns the wait after the given failed attempt (1-based)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// OutboxEntry is a serialized payables event. It is inserted in the
// transaction that raised the event and delivered after that commits.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	MaxAttempts   int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps a serialized event as a pending entry
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now().UTC()
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxAttempts:   DefaultRetryPolicy().MaxAttempts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Claim moves a pending or failed entry to processing
func (e *OutboxEntry) Claim(now time.Time) error {
	switch e.Status {
	case OutboxStatusPending, OutboxStatusFailed:
		e.Status = OutboxStatusProcessing
		e.UpdatedAt = now
		return nil
	default:
		return fmt.Errorf("outbox entry %s is %s and cannot be claimed", e.ID, e.Status)
	}
}

// Delivered records a successful publish
func (e *OutboxEntry) Delivered(now time.Time) {
	e.Status = OutboxStatusSent
	e.NextRetryAt = nil
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// Failed records a failed publish and either schedules the next attempt or
// moves the entry to dead
func (e *OutboxEntry) Failed(cause string, now time.Time, policy RetryPolicy) {
	e.Attempts++
	e.LastError = cause
	e.UpdatedAt = now

	limit := e.MaxAttempts
	if policy.MaxAttempts > 0 {
		limit = policy.MaxAttempts
		e.MaxAttempts = limit
	}
	if e.Attempts >= limit {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	next := now.Add(policy.Delay(e.Attempts))
	e.Status = OutboxStatusFailed
	e.NextRetryAt = &next
}

// Due reports whether the entry should be attempted at now
func (e *OutboxEntry) Due(now time.Time) bool {
	switch e.Status {
	case OutboxStatusPending:
		return true
	case OutboxStatusFailed:
		return e.NextRetryAt != nil && !e.NextRetryAt.After(now)
	}
	return false
}

// OutboxRepository stores outbox entries. It reads across tenants.
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindDue returns pending entries and failed entries whose retry time
	// has passed, oldest first
	FindDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	// Claim moves the given entries to processing and returns the ones it won
	Claim(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// ReleaseStale returns entries claimed before the cutoff and never
	// settled to pending, so a crashed processor does not strand them
	ReleaseStale(ctx context.Context, before time.Time) (int64, error)
	// PurgeSent deletes sent entries processed before the cutoff
	PurgeSent(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
