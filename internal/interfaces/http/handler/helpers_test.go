package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	payablesapp "github.com/billpay/backend/internal/application/payables"
	"github.com/billpay/backend/internal/application/validation"
	"github.com/billpay/backend/internal/infrastructure/event"
	"github.com/billpay/backend/internal/infrastructure/persistence"
	"github.com/billpay/backend/internal/infrastructure/storage"
	"github.com/billpay/backend/internal/interfaces/http/middleware"
	"github.com/billpay/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	db      *gorm.DB
	router  *gin.Engine
	storage *storage.StubObjectStorage
}

// newAPI wires the payables handlers over an in-memory database.
// Receipts are disabled when withStorage is false.
func newAPI(t *testing.T, withStorage bool) *apiFixture {
	t.Helper()

	db := testutil.NewSQLiteDB(t, &event.OutboxRecord{})
	uow := persistence.NewUnitOfWorkFactory(db, event.NewOutboxPublisher(event.NewPayablesSerializer()))
	v := validation.New()

	f := &apiFixture{db: db}
	var objects payablesapp.ObjectStorage
	if withStorage {
		f.storage = storage.NewStubObjectStorage("")
		objects = f.storage
	}

	payees := NewPayeeHandler(payablesapp.NewPayeeService(uow, v))
	bills := NewBillHandler(payablesapp.NewBillService(uow, v))
	payments := NewPaymentHandler(payablesapp.NewPaymentService(uow, v, objects, zap.NewNop()))

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1/payables", middleware.TenantMiddleware())
	api.POST("/payees", payees.Create)
	api.GET("/payees", payees.List)
	api.GET("/payees/:id", payees.GetByID)
	api.PUT("/payees/:id", payees.Update)
	api.DELETE("/payees/:id", payees.Delete)
	api.POST("/bills", bills.Create)
	api.GET("/bills", bills.List)
	api.GET("/bills/:id", bills.GetByID)
	api.PUT("/bills/:id", bills.Update)
	api.DELETE("/bills/:id", bills.Delete)
	api.POST("/payments", payments.Create)
	api.GET("/payments", payments.List)
	api.GET("/payments/:id", payments.GetByID)
	api.PUT("/payments/:id", payments.Update)
	api.DELETE("/payments/:id", payments.Delete)
	api.POST("/payments/:id/receipt", payments.RequestReceiptUpload)
	api.GET("/payments/:id/receipt", payments.GetReceiptDownload)
	f.router = r
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, tenantID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.Do(t, f.router, testutil.Request{
		Method:   method,
		Path:     "/api/v1/payables" + path,
		Body:     body,
		TenantID: tenantID,
	})
}

func (f *apiFixture) createPayee(t *testing.T, tenantID uuid.UUID, name string) payablesapp.PayeeResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/payees", tenantID, map[string]any{"name": name, "category": "Utilities"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return testutil.Decode[payablesapp.PayeeResponse](t, w).Data
}

func (f *apiFixture) createBill(t *testing.T, tenantID uuid.UUID, body map[string]any) payablesapp.BillResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/bills", tenantID, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return testutil.Decode[payablesapp.BillResponse](t, w).Data
}

func (f *apiFixture) createPayment(t *testing.T, tenantID uuid.UUID, body map[string]any) payablesapp.PaymentResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/payments", tenantID, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return testutil.Decode[payablesapp.PaymentResponse](t, w).Data
}

func billBody(name, amount, due string) map[string]any {
	return map[string]any{"name": name, "amount": amount, "due_date": due}
}
