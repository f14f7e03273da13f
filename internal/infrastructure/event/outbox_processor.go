package event

import (
	"context"
	"time"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// saveTimeout bounds the write of a delivery outcome, which runs even
// after the batch context is cancelled
const saveTimeout = 5 * time.Second

// OutboxProcessorConfig tunes outbox delivery
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	Retry        shared.RetryPolicy
	// ClaimTimeout is how long an entry may stay processing before another
	// batch takes it back. Zero disables the lease.
	ClaimTimeout time.Duration
	// Retention is how long sent entries are kept. Zero keeps them forever.
	Retention       time.Duration
	CleanupInterval time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:       100,
		PollInterval:    5 * time.Second,
		Retry:           shared.DefaultRetryPolicy(),
		ClaimTimeout:    5 * time.Minute,
		Retention:       7 * 24 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// OutboxProcessor polls the outbox and publishes due entries on the bus.
// Delivery is at least once.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	publisher  shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	publisher shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &OutboxProcessor{
		repo:       repo,
		publisher:  publisher,
		serializer: serializer,
		config:     config,
		logger:     logger.Named("outbox"),
	}
}

// Start runs delivery and cleanup on one goroutine until Stop or ctx ends
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx)

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Int("max_attempts", p.config.Retry.MaxAttempts),
	)
	return nil
}

// Stop waits for the current batch to finish, or for ctx to expire
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case <-p.done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) run(ctx context.Context) {
	defer close(p.done)

	poll := time.NewTicker(p.config.PollInterval)
	defer poll.Stop()

	var purge <-chan time.Time
	if p.config.Retention > 0 && p.config.CleanupInterval > 0 {
		t := time.NewTicker(p.config.CleanupInterval)
		defer t.Stop()
		purge = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			p.ProcessBatch(ctx)
		case <-purge:
			p.purge(ctx)
		}
	}
}

// ProcessBatch claims up to BatchSize due entries, publishes them and
// returns how many were delivered
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) int {
	now := time.Now().UTC()
	if p.config.ClaimTimeout > 0 {
		n, err := p.repo.ReleaseStale(ctx, now.Add(-p.config.ClaimTimeout))
		if err != nil {
			p.logger.Error("release stale outbox claims", zap.Error(err))
		} else if n > 0 {
			p.logger.Warn("released stale outbox claims", zap.Int64("entries", n))
		}
	}

	due, err := p.repo.FindDue(ctx, now, p.config.BatchSize)
	if err != nil {
		p.logger.Error("load due outbox entries", zap.Error(err))
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	ids := make([]uuid.UUID, len(due))
	for i, e := range due {
		ids[i] = e.ID
	}
	claimed, err := p.repo.Claim(ctx, ids)
	if err != nil {
		p.logger.Error("claim outbox entries", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, entry := range claimed {
		if p.publish(ctx, entry) {
			delivered++
		}
	}
	return delivered
}

func (p *OutboxProcessor) publish(ctx context.Context, entry *shared.OutboxEntry) bool {
	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("tenant_id", entry.TenantID.String()),
	)

	ev, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.publisher.Publish(ctx, ev)
	}

	now := time.Now().UTC()
	if err == nil {
		entry.Delivered(now)
	} else {
		entry.Failed(err.Error(), now, p.config.Retry)
		if entry.Status == shared.OutboxStatusDead {
			log.Warn("outbox entry is dead", zap.Int("attempts", entry.Attempts), zap.Error(err))
		} else {
			log.Warn("outbox delivery failed", zap.Int("attempts", entry.Attempts), zap.Timep("next_retry_at", entry.NextRetryAt), zap.Error(err))
		}
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if uerr := p.repo.Update(saveCtx, entry); uerr != nil {
		log.Error("save outbox delivery state", zap.String("status", string(entry.Status)), zap.Error(uerr))
	}
	return err == nil
}

func (p *OutboxProcessor) purge(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.config.Retention)
	n, err := p.repo.PurgeSent(ctx, cutoff)
	if err != nil {
		p.logger.Error("purge sent outbox entries", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Info("purged sent outbox entries", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
}
