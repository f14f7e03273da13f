package payables

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrReceiptNotFound is returned when a payment has no uploaded receipt
var ErrReceiptNotFound = shared.NewDomainError("NOT_FOUND", "No receipt has been uploaded for this payment")

// ErrReceiptsDisabled is returned when no object storage is configured
var ErrReceiptsDisabled = shared.NewDomainError("RECEIPTS_DISABLED", "Receipt storage is not configured")

// ReceiptConfig controls presigned URL lifetimes
type ReceiptConfig struct {
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
}

// DefaultReceiptConfig returns the default receipt configuration
func DefaultReceiptConfig() ReceiptConfig {
	return ReceiptConfig{
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: time.Hour,
	}
}

// PaymentService handles payment operations and payment receipts
type PaymentService struct {
	uow       payables.UnitOfWorkFactory
	validator Validator
	storage   ObjectStorage
	receipts  ReceiptConfig
	logger    *zap.Logger
}

// NewPaymentService creates a new PaymentService. storage may be nil, in which
// case receipt operations fail with ErrReceiptsDisabled.
func NewPaymentService(uow payables.UnitOfWorkFactory, validator Validator, storage ObjectStorage, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		uow:       uow,
		validator: validator,
		storage:   storage,
		receipts:  DefaultReceiptConfig(),
		logger:    logger,
	}
}

// SetReceiptConfig overrides the receipt URL lifetimes
func (s *PaymentService) SetReceiptConfig(cfg ReceiptConfig) {
	s.receipts = cfg
}

// Create records a payment against a bill of the same tenant
func (s *PaymentService) Create(ctx context.Context, tenantID uuid.UUID, cmd CreatePaymentCommand) (*PaymentResponse, error) {
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
	if _, err := reference(ctx, uow.Bills().Get, details.BillID, "bill_id", "bill"); err != nil {
		return nil, err
	}

	payment, err := payables.NewPayment(tenantID, details)
	if err != nil {
		return nil, err
	}
	uow.Add(payment)
	if _, err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// GetByID returns the payment or shared.ErrNotFound
func (s *PaymentService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*PaymentResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	payment, err := s.uow.Begin(tenantID).Payments().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// List returns the tenant's payments, most recent payment date first
func (s *PaymentService) List(ctx context.Context, tenantID uuid.UUID, query PaymentListQuery) (*ListResult[PaymentResponse], error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	payments, total, err := s.uow.Begin(tenantID).Payments().List(ctx, query.filter())
	if err != nil {
		return nil, err
	}
	return &ListResult[PaymentResponse]{Items: toResponses(payments, ToPaymentResponse), Total: total}, nil
}

// Update replaces the assignable fields of an existing payment
func (s *PaymentService) Update(ctx context.Context, tenantID, id uuid.UUID, cmd UpdatePaymentCommand) (*PaymentResponse, error) {
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
	payment, err := uow.Payments().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if details.BillID != payment.BillID {
		if _, err := reference(ctx, uow.Bills().Get, details.BillID, "bill_id", "bill"); err != nil {
			return nil, err
		}
	}

	loaded := payment.Version
	if err := payment.Update(details); err != nil {
		return nil, err
	}
	if err := stageUpdate(uow, payment, loaded, cmd.Version, payables.PaymentMutableFields...); err != nil {
		return nil, err
	}
	if _, err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// Delete removes a payment. A stored receipt object is removed best effort.
func (s *PaymentService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	uow := s.uow.Begin(tenantID)
	payment, err := uow.Payments().Get(ctx, id)
	if err != nil {
		return err
	}
	payment.MarkDeleted()
	uow.Remove(payment)
	if _, err := uow.Commit(ctx); err != nil {
		return err
	}

	if payment.ReceiptKey != nil {
		s.deleteReceipt(ctx, payment.ID, *payment.ReceiptKey)
	}
	return nil
}

// deleteReceipt removes a receipt object no payment references any more.
// Failures only leave an orphaned object behind, so they are logged.
func (s *PaymentService) deleteReceipt(ctx context.Context, paymentID uuid.UUID, key string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		s.logger.Warn("failed to delete receipt object",
			zap.String("payment_id", paymentID.String()),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// RequestReceiptUpload issues a presigned PUT URL and records the receipt key
// on the payment. A receipt it replaces is deleted best effort after commit.
func (s *PaymentService) RequestReceiptUpload(ctx context.Context, tenantID, id uuid.UUID, cmd ReceiptUploadCommand) (*ReceiptURLResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, ErrReceiptsDisabled
	}
	if err := s.validator.Struct(cmd); err != nil {
		return nil, err
	}

	uow := s.uow.Begin(tenantID)
	payment, err := uow.Payments().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := payment.ReceiptKey
	key := receiptKey(tenantID, payment.ID, cmd.FileName)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, cmd.ContentType, s.receipts.UploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate receipt upload url: %w", err)
	}

	if err := payment.AttachReceipt(key); err != nil {
		return nil, err
	}
	uow.Modify(payment, payables.PaymentReceiptFields...)
	if _, err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	if previous != nil && *previous != key {
		s.deleteReceipt(ctx, payment.ID, *previous)
	}

	return &ReceiptURLResponse{PaymentID: payment.ID, URL: url, Method: http.MethodPut, ExpiresAt: expiresAt.UTC()}, nil
}

// GetReceiptDownload issues a presigned GET URL for the payment's receipt
func (s *PaymentService) GetReceiptDownload(ctx context.Context, tenantID, id uuid.UUID) (*ReceiptURLResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, ErrReceiptsDisabled
	}

	payment, err := s.uow.Begin(tenantID).Payments().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.ReceiptKey == nil {
		return nil, ErrReceiptNotFound
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, *payment.ReceiptKey, s.receipts.DownloadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate receipt download url: %w", err)
	}
	return &ReceiptURLResponse{PaymentID: payment.ID, URL: url, Method: http.MethodGet, ExpiresAt: expiresAt.UTC()}, nil
}

// receiptKey builds tenants/{tenant}/payments/{payment}/receipts/{unique}{ext}
func receiptKey(tenantID, paymentID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("tenants/%s/payments/%s/receipts/%s%s", tenantID, paymentID, uuid.New(), ext)
}
