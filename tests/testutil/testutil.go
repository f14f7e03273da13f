// Package testutil provides shared helpers for the billpay test suites:
// in-memory and mocked databases, tenant fixtures and polling assertions.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/billpay/backend/internal/domain/payables"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MockDB wraps a GORM database backed by sqlmock with the postgres dialect
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a sqlmock-backed database that is closed when the test ends
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err, "create sqlmock")

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err, "open gorm over sqlmock")

	t.Cleanup(func() { _ = sqlDB.Close() })
	return &MockDB{DB: db, Mock: mock, SqlDB: sqlDB}
}

// ExpectationsWereMet fails the test when sqlmock expectations are pending
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "unmet database expectations")
}

// PayablesModels lists the payables tables in dependency order
func PayablesModels() []any {
	return []any{&payables.Payee{}, &payables.Bill{}, &payables.Payment{}}
}

// NewSQLiteDB opens a private in-memory SQLite database with foreign keys
// enforced and migrates the payables tables plus any extra models.
func NewSQLiteDB(t *testing.T, extra ...any) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(append(PayablesModels(), extra...)...), "migrate sqlite schema")
	require.NoError(t, db.Exec(uniqueConfirmationIndex).Error, "create confirmation index")
	return db
}

// uniqueConfirmationIndex mirrors the partial unique index of the SQL migrations
const uniqueConfirmationIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_tenant_confirmation
	ON payments (tenant_id, confirmation_number) WHERE confirmation_number IS NOT NULL`

// TenantA and TenantB are fixed tenants for isolation tests
var (
	TenantA = uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000001")
	TenantB = uuid.MustParse("bbbbbbbb-0000-4000-8000-000000000002")
)

// NewTestUUID derives a stable UUID from seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))
}

// Context returns a context cancelled when the test ends or after timeout
func Context(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// RequireEventually polls condition until it holds or timeout elapses
func RequireEventually(t *testing.T, condition func() bool, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	require.Eventually(t, condition, timeout, 10*time.Millisecond, msgAndArgs...)
}
