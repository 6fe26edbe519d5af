// Package store is the SQL-backed auth and profile-document backend. Queries
// are built with goqu for the configured dialect and executed through sqlx,
// so the same code runs on Postgres (lib/pq) and embedded SQLite (modernc).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite" // sqlite driver

	"myshop/internal/apperr"
	"myshop/internal/config"
)

const (
	tablePrincipals     = "principals"
	tableProfiles       = "profiles"
	tablePasswordResets = "password_resets"

	colID           = "id"
	colEmail        = "email"
	colDisplayName  = "display_name"
	colPasswordHash = "password_hash"
	colCreatedAt    = "created_at"
	colPrincipalID  = "principal_id"
	colName         = "name"
	colPhone        = "phone"
	colAddress      = "address"
	colToken        = "token"
	colExpiresAt    = "expires_at"

	minPasswordLength = 6
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS principals (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		principal_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS password_resets (
		token TEXT PRIMARY KEY,
		principal_id TEXT NOT NULL,
		expires_at BIGINT NOT NULL
	)`,
}

type Store struct {
	db       *sqlx.DB
	dialect  goqu.DialectWrapper
	hashCost int
	now      func() time.Time
}

type Option func(*Store)

// WithHashCost sets the bcrypt cost for new password hashes.
func WithHashCost(cost int) Option {
	return func(s *Store) { s.hashCost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open connects with the named driver (config.DriverSQLite or
// config.DriverPostgres) and verifies the connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	var sqlDriver string
	switch driver {
	case config.DriverSQLite:
		sqlDriver = "sqlite"
	case config.DriverPostgres:
		sqlDriver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == config.DriverSQLite {
		// One writer at a time; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	return New(db, driver, opts...), nil
}

// New wraps an already opened database.
func New(db *sqlx.DB, driver string, opts ...Option) *Store {
	dialect := "postgres"
	if driver == config.DriverSQLite {
		dialect = "sqlite3"
	}

	s := &Store{
		db:       db,
		dialect:  goqu.Dialect(dialect),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func dbError(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, err, op+": not found")
	}
	return apperr.Wrap(apperr.KindTransport, err, op)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
