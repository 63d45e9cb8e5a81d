package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMigrationsUpDown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("migrations")
	require.NoError(t, err)

	require.NoError(t, RunMigrations(dbPath, migrations))
	// second run is a no-op
	require.NoError(t, RunMigrations(dbPath, migrations))

	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='bank_transactions'`).Scan(&n))
	require.Equal(t, 1, n)

	require.NoError(t, Rollback(dbPath, migrations))
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='bank_transactions'`).Scan(&n))
	require.Equal(t, 0, n)
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db, err := Open(filepath.Join(t.TempDir(), "tx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE items(id TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items(id) VALUES('a')`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO items(id) VALUES('a')`)
		return err
	})
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n))
	require.Equal(t, 0, n)
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db, err := Open(filepath.Join(t.TempDir(), "unique.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE refs(id INTEGER PRIMARY KEY, ref TEXT NOT NULL UNIQUE, amount INTEGER CHECK (amount > 0))`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO refs(ref, amount) VALUES('r1', 1)`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO refs(ref, amount) VALUES('r1', 2)`)
	require.True(t, IsUniqueViolation(err))
	require.True(t, IsUniqueViolation(fmt.Errorf("insert ref: %w", err)))

	_, err = db.ExecContext(ctx, `INSERT INTO refs(ref, amount) VALUES(NULL, 2)`)
	require.Error(t, err)
	require.False(t, IsUniqueViolation(err))

	_, err = db.ExecContext(ctx, `INSERT INTO refs(ref, amount) VALUES('r2', -1)`)
	require.Error(t, err)
	require.False(t, IsUniqueViolation(err))

	require.False(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: refs.ref")))
	require.False(t, IsUniqueViolation(nil))
}
