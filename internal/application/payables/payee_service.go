package payables

import (
	"context"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/google/uuid"
)

// PayeeService handles payee operations
type PayeeService struct {
	uow       payables.UnitOfWorkFactory
	validator Validator
}

// NewPayeeService creates a new PayeeService
func NewPayeeService(uow payables.UnitOfWorkFactory, validator Validator) *PayeeService {
	return &PayeeService{uow: uow, validator: validator}
}

// Create creates a payee
func (s *PayeeService) Create(ctx context.Context, tenantID uuid.UUID, cmd CreatePayeeCommand) (*PayeeResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(cmd); err != nil {
		return nil, err
	}

	payee, err := payables.NewPayee(tenantID, cmd.details())
	if err != nil {
		return nil, err
	}

	uow := s.uow.Begin(tenantID)
	uow.Add(payee)
	if _, err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	resp := ToPayeeResponse(payee)
	return &resp, nil
}

// GetByID returns the payee or shared.ErrNotFound
func (s *PayeeService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*PayeeResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	payee, err := s.uow.Begin(tenantID).Payees().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPayeeResponse(payee)
	return &resp, nil
}

// List returns the tenant's payees ordered by name
func (s *PayeeService) List(ctx context.Context, tenantID uuid.UUID, query PayeeListQuery) (*ListResult[PayeeResponse], error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	payees, total, err := s.uow.Begin(tenantID).Payees().List(ctx, query.filter())
	if err != nil {
		return nil, err
	}
	return &ListResult[PayeeResponse]{Items: toResponses(payees, ToPayeeResponse), Total: total}, nil
}

// Update replaces the assignable fields of an existing payee
func (s *PayeeService) Update(ctx context.Context, tenantID, id uuid.UUID, cmd UpdatePayeeCommand) (*PayeeResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := checkBodyID(id, cmd.ID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(cmd); err != nil {
		return nil, err
	}

	uow := s.uow.Begin(tenantID)
	payee, err := uow.Payees().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	loaded := payee.Version
	if err := payee.Update(cmd.details()); err != nil {
		return nil, err
	}
	if err := stageUpdate(uow, payee, loaded, cmd.Version, payables.PayeeMutableFields...); err != nil {
		return nil, err
	}
	if _, err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	resp := ToPayeeResponse(payee)
	return &resp, nil
}

// Delete removes a payee. Its bills stay and lose their payee reference.
func (s *PayeeService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	uow := s.uow.Begin(tenantID)
	payee, err := uow.Payees().Get(ctx, id)
	if err != nil {
		return err
	}
	payee.MarkDeleted()
	uow.Remove(payee)
	_, err = uow.Commit(ctx)
	return err
}
