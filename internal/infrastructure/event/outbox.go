package event

import (
	"context"
	"fmt"
	"time"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxRecord is a row of outbox_events
type OutboxRecord struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	EventID       uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string              `gorm:"type:varchar(100);not null"`
	AggregateID   uuid.UUID           `gorm:"type:uuid;not null"`
	AggregateType string              `gorm:"type:varchar(50);not null"`
	Payload       []byte              `gorm:"not null"`
	Status        shared.OutboxStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Attempts      int                 `gorm:"not null;default:0"`
	MaxAttempts   int                 `gorm:"not null;default:5"`
	LastError     string              `gorm:"type:text"`
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (OutboxRecord) TableName() string {
	return "outbox_events"
}

func (r OutboxRecord) entry() *shared.OutboxEntry {
	e := shared.OutboxEntry(r)
	return &e
}

func recordOf(e *shared.OutboxEntry) OutboxRecord {
	return OutboxRecord(*e)
}

// GormOutboxRepository keeps the outbox in outbox_events. It is not tenant
// scoped: the processor drains every tenant's entries.
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository wraps db, which may be an open transaction
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]OutboxRecord, len(entries))
	for i, e := range entries {
		rows[i] = recordOf(e)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindDue returns entries ready for delivery, oldest first
func (r *GormOutboxRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var rows []OutboxRecord
	err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND next_retry_at <= ?)",
			shared.OutboxStatusPending, shared.OutboxStatusFailed, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return entriesOf(rows), err
}

// Claim locks the still claimable rows among ids with SKIP LOCKED and moves
// them to processing, so two processors never publish the same entry
func (r *GormOutboxRepository) Claim(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var won []*shared.OutboxEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []OutboxRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("id IN ?", ids).
			Where("status IN ?", []shared.OutboxStatus{shared.OutboxStatusPending, shared.OutboxStatusFailed}).
			Find(&rows).Error
		if err != nil || len(rows) == 0 {
			return err
		}

		now := time.Now().UTC()
		locked := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			e := row.entry()
			if err := e.Claim(now); err != nil {
				return err
			}
			won = append(won, e)
			locked = append(locked, e.ID)
		}
		return tx.Model(&OutboxRecord{}).
			Where("id IN ?", locked).
			Updates(map[string]any{"status": shared.OutboxStatusProcessing, "updated_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return won, nil
}

// Update writes back the delivery columns of entry
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	return r.db.WithContext(ctx).Model(&OutboxRecord{}).
		Where("id = ?", entry.ID).
		Select("status", "attempts", "max_attempts", "last_error", "next_retry_at", "processed_at", "updated_at").
		Updates(recordOf(entry)).Error
}

func (r *GormOutboxRepository) ReleaseStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&OutboxRecord{}).
		Where("status = ? AND updated_at < ?", shared.OutboxStatusProcessing, before).
		Updates(map[string]any{"status": shared.OutboxStatusPending, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *GormOutboxRepository) PurgeSent(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&OutboxRecord{})
	return res.RowsAffected, res.Error
}

func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	var rows []struct {
		Status shared.OutboxStatus
		N      int64
	}
	if err := r.db.WithContext(ctx).Model(&OutboxRecord{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[shared.OutboxStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}

func entriesOf(rows []OutboxRecord) []*shared.OutboxEntry {
	out := make([]*shared.OutboxEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].entry()
	}
	return out
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)

// OutboxPublisher is the unit of work's event recorder: it serializes the
// events of a commit into outbox rows on the commit transaction
type OutboxPublisher struct {
	serializer *EventSerializer
}

func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	entries := make([]*shared.OutboxEntry, len(events))
	for i, ev := range events {
		payload, err := p.serializer.Serialize(ev)
		if err != nil {
			return fmt.Errorf("serialize %s %s: %w", ev.EventType(), ev.EventID(), err)
		}
		entries[i] = shared.NewOutboxEntry(ev, payload)
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}
