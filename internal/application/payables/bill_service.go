package payables

import (
	"context"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/google/uuid"
)

// BillService handles bill operations
type BillService struct {
	uow       payables.UnitOfWorkFactory
	validator Validator
}

// NewBillService creates a new BillService
func NewBillService(uow payables.UnitOfWorkFactory, validator Validator) *BillService {
	return &BillService{uow: uow, validator: validator}
}

// Create creates a bill, optionally linked to a payee of the same tenant
func (s *BillService) Create(ctx context.Context, tenantID uuid.UUID, cmd CreateBillCommand) (*BillResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(cmd); err != nil {
		return nil, err
	}
	details, err := cmd.details()
	if err != nil {
		return nil, err
	}

	uow := s.uow.Begin(tenantID)
	payee, err := resolvePayee(ctx, uow, details.PayeeID)
	if err != nil {
		return nil, err
	}

	bill, err := payables.NewBill(tenantID, details)
	if err != nil {
		return nil, err
	}
	bill.Payee = payee

	uow.Add(bill)
	if _, err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	resp := ToBillResponse(bill)
	return &resp, nil
}

// GetByID returns the bill with its payee name, or shared.ErrNotFound
func (s *BillService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*BillResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	bill, err := s.uow.Begin(tenantID).Bills().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToBillResponse(bill)
	return &resp, nil
}

// List returns the tenant's bills by due date, newest first within a day
func (s *BillService) List(ctx context.Context, tenantID uuid.UUID, query BillListQuery) (*ListResult[BillResponse], error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	bills, total, err := s.uow.Begin(tenantID).Bills().List(ctx, query.filter())
	if err != nil {
		return nil, err
	}
	return &ListResult[BillResponse]{Items: toResponses(bills, ToBillResponse), Total: total}, nil
}

// Update replaces the assignable fields of an existing bill. Moving the bill
// into Paid records the payment time and raises BillPaid.
func (s *BillService) Update(ctx context.Context, tenantID, id uuid.UUID, cmd UpdateBillCommand) (*BillResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := checkBodyID(id, cmd.ID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(cmd); err != nil {
		return nil, err
	}
	details, err := cmd.details()
	if err != nil {
		return nil, err
	}

	uow := s.uow.Begin(tenantID)
	bill, err := uow.Bills().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	payee, err := resolvePayee(ctx, uow, details.PayeeID)
	if err != nil {
		return nil, err
	}

	loaded := bill.Version
	if err := bill.Update(details); err != nil {
		return nil, err
	}
	bill.Payee = payee
	if err := stageUpdate(uow, bill, loaded, cmd.Version, payables.BillMutableFields...); err != nil {
		return nil, err
	}
	if _, err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	resp := ToBillResponse(bill)
	return &resp, nil
}

// Delete removes a bill together with its payments
func (s *BillService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	uow := s.uow.Begin(tenantID)
	bill, err := uow.Bills().Get(ctx, id)
	if err != nil {
		return err
	}
	bill.MarkDeleted()
	uow.Remove(bill)
	_, err = uow.Commit(ctx)
	return err
}

func resolvePayee(ctx context.Context, uow payables.UnitOfWork, id *uuid.UUID) (*payables.Payee, error) {
	if id == nil || *id == uuid.Nil {
		return nil, nil
	}
	return reference(ctx, uow.Payees().Get, *id, "payee_id", "payee")
}
