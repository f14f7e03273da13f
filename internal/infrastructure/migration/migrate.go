// Package migration applies the versioned SQL files in migrations/ with
// golang-migrate and scaffolds new ones.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// Table records the applied version
	Table       = "schema_migrations"
	lockTimeout = 30 * time.Second
)

// Migrator applies the numbered up/down SQL pairs of one directory
type Migrator struct {
	migrate *migrate.Migrate
	dir     string
	logger  *zap.Logger
}

// New creates a Migrator over an open postgres connection
func New(db *sql.DB, migrationsDir string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: Table})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL(migrationsDir), "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return newMigrator(m, migrationsDir, logger), nil
}

// NewFromURL creates a Migrator from a database URL such as postgres://...
func NewFromURL(databaseURL, migrationsDir string, logger *zap.Logger) (*Migrator, error) {
	m, err := migrate.New(sourceURL(migrationsDir), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return newMigrator(m, migrationsDir, logger), nil
}

func newMigrator(m *migrate.Migrate, dir string, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	m.Log = migrateLog{logger.Named("migrate").Sugar()}
	m.LockTimeout = lockTimeout
	return &Migrator{migrate: m, dir: dir, logger: logger}
}

// migrateLog reports each applied file through zap
type migrateLog struct{ s *zap.SugaredLogger }

func (l migrateLog) Printf(format string, v ...any) {
	l.s.Infof(strings.TrimSuffix(format, "\n"), v...)
}

func (l migrateLog) Verbose() bool {
	return l.s.Desugar().Core().Enabled(zap.DebugLevel)
}

func sourceURL(dir string) string {
	return "file://" + dir
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	return m.run("up", m.migrate.Up)
}

// Down rolls back all migrations
func (m *Migrator) Down() error {
	return m.run("down", m.migrate.Down)
}

// Steps applies n migrations (positive = up, negative = down)
func (m *Migrator) Steps(n int) error {
	return m.run(fmt.Sprintf("steps %d", n), func() error { return m.migrate.Steps(n) })
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	return m.run(fmt.Sprintf("goto %d", version), func() error { return m.migrate.Migrate(version) })
}

// run treats ErrNoChange as success
func (m *Migrator) run(op string, fn func() error) error {
	from, _, err := m.Version()
	if err != nil {
		return err
	}
	start := time.Now()

	switch err := fn(); {
	case errors.Is(err, migrate.ErrNoChange):
		m.logger.Info("Schema already at target", zap.String("op", op), zap.Uint("version", from))
		return nil
	case err != nil:
		return fmt.Errorf("migrate %s from version %d: %w", op, from, err)
	}

	to, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Schema migrated",
		zap.String("op", op),
		zap.Uint("from", from),
		zap.Uint("to", to),
		zap.Bool("dirty", dirty),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Version returns the current migration version. A database without
// migrations reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the migration version without running migrations.
// It is the way out of a dirty state after a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Status lists every migration in the directory and whether it is applied
func (m *Migrator) Status() ([]Status, error) {
	files, err := ListMigrations(m.dir)
	if err != nil {
		return nil, err
	}
	current, dirty, err := m.Version()
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(files))
	for _, f := range files {
		s := Status{Migration: f, Applied: f.Version <= current}
		if dirty && f.Version == current {
			s.Dirty = true
		}
		out = append(out, s)
	}
	return out, nil
}

// Close releases the source and the database connection
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return multierr.Combine(sourceErr, dbErr)
}
