package payables

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// SweepResult summarizes one overdue sweep
type SweepResult struct {
	AsOf    time.Time
	Tenants int
	Marked  int
	Failed  int
}

// OverdueService moves open bills past their due date into Overdue
type OverdueService struct {
	uow    payables.UnitOfWorkFactory
	finder payables.OverdueTenantFinder
	logger *zap.Logger
	now    func() time.Time
}

// NewOverdueService creates a new OverdueService
func NewOverdueService(uow payables.UnitOfWorkFactory, finder payables.OverdueTenantFinder, logger *zap.Logger) *OverdueService {
	return &OverdueService{
		uow:    uow,
		finder: finder,
		logger: logger.Named("overdue"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Sweep marks overdue bills for every tenant that has some. A failing tenant is
// logged and skipped; the combined error of all failures is returned.
func (s *OverdueService) Sweep(ctx context.Context) (SweepResult, error) {
	asOf := payables.NormalizeDate(s.now())
	result := SweepResult{AsOf: asOf}

	tenants, err := s.finder.TenantsWithOverdueBills(ctx, asOf)
	if err != nil {
		return result, fmt.Errorf("find tenants with overdue bills: %w", err)
	}
	result.Tenants = len(tenants)

	var errs error
	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return result, multierr.Append(errs, err)
		}
		marked, err := s.SweepTenant(ctx, tenantID, asOf)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
			s.logger.Warn("overdue sweep failed for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Marked += marked
	}

	s.logger.Info("overdue sweep finished",
		zap.Time("as_of", asOf),
		zap.Int("tenants", result.Tenants),
		zap.Int("marked", result.Marked),
		zap.Int("failed", result.Failed),
	)
	return result, errs
}

// SweepTenant marks the tenant's open bills due before asOf. Each bill is
// written with a version check so a concurrent user edit wins over the sweep.
func (s *OverdueService) SweepTenant(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (int, error) {
	uow := s.uow.Begin(tenantID)
	bills, err := uow.Bills().Overdue(ctx, asOf)
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range bills {
		bill := &bills[i]
		loaded := bill.Version
		if bill.MarkOverdue(asOf) {
			uow.ModifyExpecting(bill, loaded, "status")
			marked++
		}
	}
	if marked == 0 {
		return 0, nil
	}

	if _, err := uow.Commit(ctx); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Info("bill changed during overdue sweep, retrying next run",
				zap.String("tenant_id", tenantID.String()),
			)
			return 0, nil
		}
		return 0, err
	}
	return marked, nil
}
