package event

import (
	"context"
	"testing"
	"time"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOutboxPublisher_WritesOnTransaction(t *testing.T) {
	db := outboxDB(t)
	ctx := context.Background()
	publisher := NewOutboxPublisher(NewPayablesSerializer())
	bill := testBill(t, testutil.TenantA)

	require.NoError(t, publisher.PublishWithTx(ctx, db, bill.GetDomainEvents()...))

	due, err := NewGormOutboxRepository(db).FindDue(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "BillCreated", due[0].EventType)
	assert.Equal(t, testutil.TenantA, due[0].TenantID)
	assert.Equal(t, bill.ID, due[0].AggregateID)
	assert.Equal(t, shared.OutboxStatusPending, due[0].Status)
	assert.JSONEq(t, string(mustSerialize(t, bill.GetDomainEvents()[0])), string(due[0].Payload))
}

func TestOutboxPublisher_RollsBackWithTransaction(t *testing.T) {
	db := outboxDB(t)
	ctx := context.Background()
	publisher := NewOutboxPublisher(NewPayablesSerializer())

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, publisher.PublishWithTx(ctx, tx, testBill(t, testutil.TenantA).GetDomainEvents()...))
		return assert.AnError
	})

	due, err := NewGormOutboxRepository(db).FindDue(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestGormOutboxRepository_Lifecycle(t *testing.T) {
	db := outboxDB(t)
	ctx := context.Background()
	repo := NewGormOutboxRepository(db)
	now := time.Now().UTC()

	sent := shared.NewOutboxEntry(testBill(t, testutil.TenantA).GetDomainEvents()[0], []byte(`{}`))
	failed := shared.NewOutboxEntry(testBill(t, testutil.TenantB).GetDomainEvents()[0], []byte(`{}`))
	require.NoError(t, repo.Save(ctx, sent, failed))

	claimed, err := repo.Claim(ctx, []uuid.UUID{sent.ID, failed.ID})
	require.NoError(t, err)
	assert.Len(t, claimed, 2)

	again, err := repo.Claim(ctx, []uuid.UUID{sent.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "processing entries cannot be claimed twice")

	due, err := repo.FindDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	sent.Delivered(now)
	require.NoError(t, repo.Update(ctx, sent))

	failed.Failed("boom", now, shared.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute})
	require.NoError(t, repo.Update(ctx, failed))

	due, err = repo.FindDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due, "failed entry is not due before its retry time")

	due, err = repo.FindDue(ctx, now.Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, failed.ID, due[0].ID)
	assert.Equal(t, "boom", due[0].LastError)
	assert.Equal(t, 1, due[0].Attempts)
	assert.Equal(t, 3, due[0].MaxAttempts)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])

	purged, err := repo.PurgeSent(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestGormOutboxRepository_EmptyInputs(t *testing.T) {
	repo := NewGormOutboxRepository(outboxDB(t))
	assert.NoError(t, repo.Save(context.Background()))
	claimed, err := repo.Claim(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, claimed)
}

func mustSerialize(t *testing.T, ev shared.DomainEvent) []byte {
	t.Helper()
	data, err := NewPayablesSerializer().Serialize(ev)
	require.NoError(t, err)
	return data
}
