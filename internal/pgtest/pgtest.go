//go:build integration

// Package pgtest gives integration tests a throwaway Postgres schema with the
// migrations applied. Tests skip unless TEST_DATABASE_URL is set to a
// postgres:// URL.
package pgtest

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"voice-receptionist/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Open creates a fresh schema, applies the migrations to it and returns a pool
// whose connections use it as their search_path. The schema is dropped when
// the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	require.Contains(t, []string{"postgres", "postgresql"}, u.Scheme, "TEST_DATABASE_URL must be a postgres:// URL")

	ctx := context.Background()
	admin, err := utils.OpenPostgres(ctx, dsn, utils.PostgresPoolConfig{MaxOpenConns: 1})
	require.NoError(t, err)

	schema := "it_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.ExecContext(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)

	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	db, err := utils.OpenPostgres(ctx, u.String(), utils.PostgresPoolConfig{})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
		_, _ = admin.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		_ = admin.Close()
	})

	migration, err := os.ReadFile(migrationFile())
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, string(migration))
	require.NoError(t, err)
	return db
}

// SeedTenant inserts a bare tenant and returns its id.
func SeedTenant(t testing.TB, db *sql.DB) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO tenants (id, name, slug, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		id, "Tenant "+id[:8], "tenant-"+id, now,
	)
	require.NoError(t, err)
	return id
}

// SeedAgent inserts a draft agent for tenantID and returns its id.
func SeedAgent(t testing.TB, db *sql.DB, tenantID, greeting string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO agents (id, tenant_id, name, template, greeting, status, created_at, updated_at)
		 VALUES ($1, $2, $3, 'custom', $4, 'draft', $5, $5)`,
		id, tenantID, "Agent "+id[:8], greeting, now,
	)
	require.NoError(t, err)
	return id
}

func migrationFile() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations", "0001_init.sql")
}
