// internal/db/test_helpers.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"fanplatform.dk/internal/config"
)

// OpenTestDB connects to TEST_DATABASE_DSN and applies migrations. Tests are
// skipped when the variable is not set.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping MySQL tests")
	}
	conn, err := InitDB(context.Background(), &config.Config{Database: config.DatabaseConfig{DSN: dsn}})
	if err != nil {
		t.Fatalf("Failed to init test database: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// ClearTestDBTables deletes all rows; children first so foreign keys hold.
func ClearTestDBTables(t *testing.T, conn *sql.DB, tableNames ...string) {
	t.Helper()
	if len(tableNames) == 0 {
		tableNames = []string{"activity_rsvps", "activities", "profiles", "accounts", "club_settings", "payment_intents", "payments", "members", "fees"}
	}
	for _, table := range tableNames {
		if _, err := conn.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Fatalf("Failed to clear table %s: %v", table, err)
		}
	}
}
