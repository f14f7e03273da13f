// Package integration runs the payables stack against a real PostgreSQL.
// One container serves the whole package: the migrations are applied once
// to a template database and every test gets its own clone of it.
package integration

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/billpay/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const templateDB = "billpay_template"

// server is the package-wide container, started on first use
var server struct {
	once      sync.Once
	container *tcpostgres.PostgresContainer
	admin     *sql.DB
	baseDSN   *url.URL
	err       error
}

// TestDB is a migrated database owned by one test
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	DSN   string
	Name  string
	t     *testing.T
}

// NewTestDB clones the migrated template into a fresh database that is
// dropped when the test ends
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration tests need Docker; skipped in short mode")
	}
	server.once.Do(startServer)
	require.NoError(t, server.err, "start PostgreSQL")

	name := "t_" + randomSuffix(t)
	_, err := server.admin.Exec(fmt.Sprintf(`CREATE DATABASE %q TEMPLATE %q`, name, templateDB))
	require.NoError(t, err, "clone template database")

	dsn := databaseDSN(name)
	db, sqlDB := open(t, dsn)
	tdb := &TestDB{DB: db, SqlDB: sqlDB, DSN: dsn, Name: name, t: t}
	t.Cleanup(tdb.drop)
	return tdb
}

func (tdb *TestDB) drop() {
	_ = tdb.SqlDB.Close()
	if _, err := server.admin.Exec(fmt.Sprintf(`DROP DATABASE IF EXISTS %q WITH (FORCE)`, tdb.Name)); err != nil {
		tdb.t.Logf("drop %s: %v", tdb.Name, err)
	}
}

// Count returns the number of rows of table, optionally filtered by tenant
func (tdb *TestDB) Count(table string, tenantID fmt.Stringer) int64 {
	tdb.t.Helper()
	q := tdb.DB.Table(table)
	if tenantID != nil {
		q = q.Where("tenant_id = ?", tenantID.String())
	}
	var n int64
	require.NoError(tdb.t, q.Count(&n).Error)
	return n
}

func startServer() {
	ctx := context.Background()
	server.container, server.err = tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("postgres"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if server.err != nil {
		return
	}

	raw, err := server.container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		server.err = err
		return
	}
	if server.baseDSN, server.err = url.Parse(raw); server.err != nil {
		return
	}
	if server.admin, server.err = sql.Open("postgres", raw); server.err != nil {
		return
	}
	if _, server.err = server.admin.Exec(fmt.Sprintf(`CREATE DATABASE %q`, templateDB)); server.err != nil {
		return
	}

	tmpl, err := sql.Open("postgres", databaseDSN(templateDB))
	if err != nil {
		server.err = err
		return
	}
	defer tmpl.Close()

	dir, err := migrationsDir()
	if err != nil {
		server.err = err
		return
	}
	m, err := migration.New(tmpl, dir, zap.NewNop())
	if err != nil {
		server.err = err
		return
	}
	server.err = m.Up()
	_ = m.Close()
}

func stopServer() {
	if server.admin != nil {
		_ = server.admin.Close()
	}
	if server.container != nil {
		_ = server.container.Terminate(context.Background())
	}
}

func databaseDSN(name string) string {
	u := *server.baseDSN
	u.Path = "/" + name
	return u.String()
}

func open(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()
	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(level),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "connect to %s", dsn)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)
	return db, sqlDB
}

func randomSuffix(t *testing.T) string {
	b := make([]byte, 6)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

// MigrationsPath locates the repository migrations directory
func MigrationsPath(t *testing.T) string {
	t.Helper()
	dir, err := migrationsDir()
	require.NoError(t, err)
	return dir
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("cannot locate test source")
	}
	for dir := filepath.Dir(file); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("migrations directory not found")
}
