package payables_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	app "github.com/billpay/backend/internal/application/payables"
	"github.com/billpay/backend/internal/application/validation"
	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/internal/infrastructure/event"
	"github.com/billpay/backend/internal/infrastructure/persistence"
	"github.com/billpay/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	uow      *persistence.GormUnitOfWorkFactory
	storage  *fakeStorage
	payees   *app.PayeeService
	bills    *app.BillService
	payments *app.PaymentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t, &event.OutboxRecord{})
	uow := persistence.NewUnitOfWorkFactory(db, event.NewOutboxPublisher(event.NewPayablesSerializer()))
	v := validation.New()
	storage := newFakeStorage()
	return &fixture{
		db:       db,
		uow:      uow,
		storage:  storage,
		payees:   app.NewPayeeService(uow, v),
		bills:    app.NewBillService(uow, v),
		payments: app.NewPaymentService(uow, v, storage, zap.NewNop()),
	}
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) outboxTypes(t *testing.T) []string {
	t.Helper()
	var types []string
	require.NoError(t, f.db.Model(&event.OutboxRecord{}).Order("created_at ASC").Pluck("event_type", &types).Error)
	return types
}

func (f *fixture) createPayee(t *testing.T, tenantID uuid.UUID, name string) *app.PayeeResponse {
	t.Helper()
	p, err := f.payees.Create(context.Background(), tenantID, app.CreatePayeeCommand{
		PayeeFields: app.PayeeFields{Name: name, Category: string(payables.PayeeCategoryUtilities)},
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) createBill(t *testing.T, tenantID uuid.UUID, fields app.BillFields) *app.BillResponse {
	t.Helper()
	b, err := f.bills.Create(context.Background(), tenantID, app.CreateBillCommand{BillFields: fields})
	require.NoError(t, err)
	return b
}

func (f *fixture) createPayment(t *testing.T, tenantID, billID uuid.UUID, amount, date string) *app.PaymentResponse {
	t.Helper()
	p, err := f.payments.Create(context.Background(), tenantID, app.CreatePaymentCommand{
		PaymentFields: app.PaymentFields{BillID: billID, Amount: dec(amount), PaymentDate: date},
	})
	require.NoError(t, err)
	return p
}

func billFields(name, amount, due string) app.BillFields {
	return app.BillFields{Name: name, Amount: dec(amount), DueDate: due}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	verrs, ok := shared.AsValidationErrors(err)
	require.True(t, ok, "expected validation errors, got %v", err)
	for _, fe := range verrs {
		if fe.Field == field {
			return
		}
	}
	require.Failf(t, "missing field error", "no error for %q in %v", field, verrs)
}

// fakeStorage records presign requests
type fakeStorage struct {
	mu      sync.Mutex
	deleted []string
	fail    error
}

func newFakeStorage() *fakeStorage { return &fakeStorage{} }

func (s *fakeStorage) GenerateUploadURL(_ context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	if s.fail != nil {
		return "", time.Time{}, s.fail
	}
	return fmt.Sprintf("https://receipts.test/%s?put&type=%s", key, contentType), time.Now().Add(expiresIn), nil
}

func (s *fakeStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if s.fail != nil {
		return "", time.Time{}, s.fail
	}
	return "https://receipts.test/" + key + "?get", time.Now().Add(expiresIn), nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return s.fail
}

var errStorageDown = errors.New("storage down")
