package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDSN(t *testing.T) {
	dsn := DSN(Config{Path: "data/approvals.db"})
	assert.Contains(t, dsn, "file:data/approvals.db?")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_busy_timeout=5000")
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"010_add_index.sql":    {Data: []byte("CREATE INDEX i ON t(a);")},
		"002_create_table.sql": {Data: []byte("CREATE TABLE t (a INTEGER);")},
		"README.md":            {Data: []byte("ignored")},
		"nested/003_seed.sql":  {Data: []byte("INSERT INTO t VALUES (1);")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	assert.Equal(t, 2, migrations[0].Version)
	assert.Equal(t, "create_table", migrations[0].Name)
	assert.Equal(t, 3, migrations[1].Version)
	assert.Equal(t, 10, migrations[2].Version)
}

func TestLoadMigrations_Invalid(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{"initial.sql": {Data: []byte("")}})
	assert.Error(t, err)

	_, err = LoadMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("")},
		"1_b.sql":   {Data: []byte("")},
	})
	assert.Error(t, err)
}

func TestMigrator_EmbeddedSchema(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := NewMigrator(db, zap.NewNop())

	applied, err := m.RunMigrations(ctx, EmbeddedMigrations())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, applied, 2)

	again, err := m.RunMigrations(ctx, EmbeddedMigrations())
	require.NoError(t, err)
	assert.Zero(t, again)

	for _, table := range []string{"users", "requests", "request_stages", "request_history", "notifications", "leave_entitlements"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, table)
	}

	var index string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_request_stages_pending'").Scan(&index)
	assert.NoError(t, err)
}

func TestMigrator_StageConstraints(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := NewMigrator(db, zap.NewNop()).RunMigrations(ctx, EmbeddedMigrations())
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO requests (requester_id, type, requester_role, created_at, updated_at)
		VALUES ('emp-1', 'Travel request', 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO request_stages (request_id, stage, state) VALUES (1, 'board', 'pending')`)
	assert.Error(t, err, "unknown stage must be rejected")

	_, err = db.ExecContext(ctx, `INSERT INTO request_stages (request_id, stage, state) VALUES (1, 'ed', 'skipped')`)
	assert.Error(t, err, "unknown state must be rejected")

	_, err = db.ExecContext(ctx, `INSERT INTO request_stages (request_id, stage, state) VALUES (2, 'ed', 'pending')`)
	assert.Error(t, err, "stage of a missing request must be rejected")
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := NewMigrator(db, zap.NewNop())

	fsys := fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE ok (a INTEGER);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE broken (;")},
	}
	applied, err := m.RunMigrations(ctx, fsys)
	assert.Error(t, err)
	assert.Equal(t, 1, applied)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}
