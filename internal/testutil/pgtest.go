// Package testutil opens throwaway Postgres schemas for integration tests.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/iceymoss/kilovolt/pkg/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// DSNEnv names the variable holding the test database URL. Integration
// tests skip when it is unset.
const DSNEnv = "KILOVOLT_TEST_DATABASE_URL"

// OpenPostgres returns a pool whose search_path points at a fresh schema
// that is dropped when the test ends, so packages can run in parallel
// against one database.
func OpenPostgres(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping postgres integration test", DSNEnv)
	}
	ctx := context.Background()

	admin, err := db.OpenPostgres(ctx, db.Options{DSN: dsn, LogLevel: "silent"})
	require.NoError(t, err)

	schema := "kv_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	require.NoError(t, admin.Exec(fmt.Sprintf("CREATE SCHEMA %s", schema)).Error)

	scoped, err := db.OpenPostgres(ctx, db.Options{DSN: withSearchPath(dsn, schema), LogLevel: "silent", MaxOpenConns: 4})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close(scoped)
		_ = admin.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema)).Error
		_ = db.Close(admin)
	})
	return scoped
}

func withSearchPath(dsn, schema string) string {
	if u, err := url.Parse(dsn); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return dsn + " search_path=" + schema
}
