// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	payablesapp "github.com/billpay/backend/internal/application/payables"
	"github.com/billpay/backend/internal/infrastructure/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultJobTimeout = 5 * time.Minute

var (
	ErrInvalidConfig  = errors.New("scheduler: invalid configuration")
	ErrAlreadyRunning = errors.New("scheduler: already running")
)

// Sweeper marks past-due bills overdue
type Sweeper interface {
	Sweep(ctx context.Context) (payablesapp.SweepResult, error)
}

// OverdueScheduler runs the overdue sweep on a cron schedule.
// A run that is still in progress when the next tick fires causes that tick to be skipped.
type OverdueScheduler struct {
	schedule   cron.Schedule
	expr       string
	jobTimeout time.Duration
	sweeper    Sweeper
	logger     *zap.Logger

	mu        sync.Mutex
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	lastRun   time.Time
	lastError error
}

// NewOverdueScheduler validates the schedule and creates a stopped scheduler
func NewOverdueScheduler(cfg config.SchedulerConfig, sweeper Sweeper, logger *zap.Logger) (*OverdueScheduler, error) {
	schedule, err := cron.ParseStandard(cfg.OverdueSchedule)
	if err != nil {
		return nil, fmt.Errorf("%w: overdue schedule %q: %v", ErrInvalidConfig, cfg.OverdueSchedule, err)
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueScheduler{
		schedule:   schedule,
		expr:       cfg.OverdueSchedule,
		jobTimeout: timeout,
		sweeper:    sweeper,
		logger:     logger.With(zap.String("job", "overdue_sweep")),
	}, nil
}

// Start registers the job and starts the cron runner. Jobs run under a
// context derived from ctx, so cancelling ctx aborts a sweep in progress.
func (s *OverdueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return ErrAlreadyRunning
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{s.logger}),
		cron.SkipIfStillRunning(cronLogger{s.logger}),
	))
	s.cron.Schedule(s.schedule, cron.FuncJob(s.run))
	s.cron.Start()

	s.logger.Info("Overdue scheduler started",
		zap.String("schedule", s.expr),
		zap.Duration("job_timeout", s.jobTimeout),
		zap.Time("next_run", s.schedule.Next(time.Now())),
	)
	return nil
}

// Stop stops scheduling and waits for a running sweep, bounded by ctx
func (s *OverdueScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop()
	select {
	case <-done.Done():
		cancel()
		s.logger.Info("Overdue scheduler stopped")
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// RunNow performs one sweep synchronously
func (s *OverdueScheduler) RunNow(ctx context.Context) (payablesapp.SweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.sweeper.Sweep(ctx)

	s.mu.Lock()
	s.lastRun = start
	s.lastError = err
	s.mu.Unlock()

	fields := []zap.Field{
		zap.Int("tenants", result.Tenants),
		zap.Int("marked", result.Marked),
		zap.Int("failed_tenants", result.Failed),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		s.logger.Error("Overdue sweep finished with errors", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("Overdue sweep finished", fields...)
	}
	return result, err
}

// LastRun returns when the last sweep started and its error
func (s *OverdueScheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastError
}

func (s *OverdueScheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	_, _ = s.RunNow(ctx)
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
