package integration

import (
	"testing"

	"github.com/billpay/backend/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMigrations_RoundTrip(t *testing.T) {
	tdb := NewTestDB(t)
	dir := MigrationsPath(t)

	files, err := migration.ListMigrations(dir)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	latest := files[len(files)-1].Version

	m, err := migration.NewFromURL(tdb.DSN, dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)

	// Up on an up-to-date schema is a no-op
	require.NoError(t, m.Up())

	statuses, err := m.Status()
	require.NoError(t, err)
	require.Len(t, statuses, len(files))
	for _, s := range statuses {
		assert.True(t, s.Applied, "migration %d", s.Version)
	}

	require.NoError(t, m.Steps(-1))
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, latest-1, version)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)

	var tables int64
	require.NoError(t, tdb.DB.Raw(`SELECT COUNT(*) FROM pg_tables
		WHERE schemaname = 'public' AND tablename IN ('payees', 'bills', 'payments', 'outbox_events')`).Scan(&tables).Error)
	assert.Zero(t, tables)

	require.NoError(t, m.GoTo(latest))
	assert.Equal(t, int64(0), tdb.Count("payees", nil))
}
