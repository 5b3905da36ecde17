package repotest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/cody-community/cody-backend/pkg/config"
	"github.com/cody-community/cody-backend/pkg/db"
	"github.com/cody-community/cody-backend/pkg/migrate"
)

// PostgresDSNEnv names the variable holding the integration database DSN.
const PostgresDSNEnv = "CODY_TEST_POSTGRES_DSN"

// NewPostgres returns a client bound to a fresh schema on the database named by
// CODY_TEST_POSTGRES_DSN, migrated and dropped on cleanup. The pool holds
// several connections, so concurrent transactions really overlap and row locks
// are what keeps them apart. The test is skipped when the variable is unset.
func NewPostgres(t testing.TB) *db.Client {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv(PostgresDSNEnv))
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	ctx := context.Background()
	schema := "cody_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	admin, err := db.New(ctx, config.DBConfig{DSN: dsn, Driver: config.DBDriverPostgres, MaxOpenConns: 1}, nil)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := admin.DB().Exec("CREATE SCHEMA " + schema).Error; err != nil {
		_ = admin.Close()
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_ = admin.DB().Exec("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Error
		_ = admin.Close()
	})

	client, err := db.New(ctx, config.DBConfig{
		DSN:          withSearchPath(dsn, schema),
		Driver:       config.DBDriverPostgres,
		MaxOpenConns: 8,
	}, nil)
	if err != nil {
		t.Fatalf("open postgres schema: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.DB().DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if _, err := migrate.Up(ctx, sqlDB, migrate.Dialect(config.DBDriverPostgres)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

// withSearchPath appends search_path to a URL or keyword/value DSN.
func withSearchPath(dsn, schema string) string {
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return fmt.Sprintf("%s%ssearch_path=%s", dsn, sep, schema)
	}
	return fmt.Sprintf("%s search_path=%s", dsn, schema)
}
