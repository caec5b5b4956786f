// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fanplatform.dk/internal/config"
	"fanplatform.dk/internal/store"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MySQLStore implements store.Store on top of MySQL/MariaDB.
type MySQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the pool, e.g. for the session store.
func (s *MySQLStore) DB() *sql.DB { return s.db }

var _ store.Store = (*MySQLStore)(nil)

func RunMigrations(dbConn *sql.DB, dbName string) error {
	driverInstance, err := mysql.WithInstance(dbConn, &mysql.Config{
		DatabaseName: dbName,
	})
	if err != nil {
		return fmt.Errorf("failed to create mysql migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "mysql", driverInstance)
	if err != nil {
		slog.Error("Failed to create migrate instance", "dbName", dbName, "error", err)
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	slog.Info("Applying migrations...")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, verr := m.Version()
		if verr != nil {
			slog.Error("Failed to read migration status after failed Up", "migration_error", err, "status_error", verr)
		} else {
			slog.Error("Failed to apply migrations", "current_version", version, "dirty_state", dirty, "error_up", err)
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("Migrations: no change.")
	} else {
		slog.Info("Migrations applied.")
	}
	return nil
}

// BuildDSN prefers an explicit DSN and otherwise assembles one from the parts.
// parseTime and multiStatements are always enabled.
func BuildDSN(dbCfg config.DatabaseConfig) (string, error) {
	if dbCfg.DSN != "" {
		dsn := dbCfg.DSN
		for _, opt := range []string{"parseTime=true", "multiStatements=true"} {
			if strings.Contains(dsn, opt) {
				continue
			}
			if strings.Contains(dsn, "?") {
				dsn += "&" + opt
			} else {
				dsn += "?" + opt
			}
		}
		return dsn, nil
	}
	if dbCfg.Host == "" || dbCfg.User == "" || dbCfg.DBName == "" {
		return "", fmt.Errorf("database: either DSN or host, user and dbname must be set")
	}
	port := dbCfg.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&multiStatements=true",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		port,
		dbCfg.DBName,
	), nil
}

// InitDB opens the pool, pings it and applies migrations.
func InitDB(ctx context.Context, appConfig *config.Config) (*sql.DB, error) {
	dbCfg := appConfig.Database

	dsn, err := BuildDSN(dbCfg)
	if err != nil {
		return nil, err
	}
	dbName := dbCfg.DBName
	if parsed, perr := mysqldriver.ParseDSN(dsn); perr == nil {
		dbName = parsed.DBName
		slog.Info("Connecting to MySQL", "addr", parsed.Addr, "db", parsed.DBName, "user", parsed.User)
	}

	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	conn.SetConnMaxLifetime(time.Minute * 3)
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(10)

	if err = conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to MySQL (ping failed): %w", err)
	}
	slog.Info("Connected to MySQL.")

	if err = RunMigrations(conn, dbName); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return conn, nil
}

const (
	errDuplicateEntry  = 1062
	errNoReferencedRow = 1452
)

func mysqlErrNumber(err error) uint16 {
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool {
	return mysqlErrNumber(err) == errDuplicateEntry
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
