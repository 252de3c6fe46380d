// Package store is the SQL repository behind the dashboard grids.
//
// It pages resources with server-side sorting, applies cell edits (nested
// payloads are merged into JSON columns) and broadcasts every write so open
// grids can drop their shadow copy and refetch.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/ifilter/ifadmin/internal/notifier"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

var (
	// ErrNotFound is returned when no row has the requested id.
	ErrNotFound = errors.New("row not found")
	// ErrUnknownResource is returned for a resource name outside the schema.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrUnknownColumn is returned when a sort or payload key names no column.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrUnsupportedDriver is returned by Open for drivers other than sqlite and pgx.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Config configures Open.
type Config struct {
	// Driver is "sqlite" (default) or "pgx".
	Driver string
	// DSN is a file path or ":memory:" for sqlite, a connection URL for pgx.
	DSN string
	// Logger receives debug logs for writes. Nil discards.
	Logger *slog.Logger
	// Notifier receives a Change after every committed write. May be nil.
	Notifier *notifier.Notifier
}

// Store is a resource repository over database/sql.
type Store struct {
	db       *sql.DB
	dialect  Dialect
	logger   *slog.Logger
	notifier *notifier.Notifier
}

// Open connects to the configured database and pings it.
// Migrations are not applied; call Migrate.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if dialect.Name == SQLite.Name {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(dialect.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name, err)
	}

	// Every connection to ":memory:" is a distinct database.
	if dialect.Name == SQLite.Name && isMemory(cfg.DSN) {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect.Name, err)
	}

	return New(db, dialect, cfg), nil
}

// New wraps an open connection. Driver and DSN in cfg are ignored.
func New(db *sql.DB, dialect Dialect, cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, dialect: dialect, logger: logger, notifier: cfg.Notifier}
}

func isMemory(dsn string) bool {
	return dsn == "" || dsn == ":memory:"
}

func sqliteDSN(path string) string {
	if isMemory(path) {
		return ":memory:?_pragma=foreign_keys(1)"
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// DB exposes the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports the SQL dialect in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Notifier returns the notifier writes are broadcast on, possibly nil.
func (s *Store) Notifier() *notifier.Notifier {
	return s.notifier
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs all pending embedded migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.setupGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, s.dialect.Dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the current migration version.
func (s *Store) MigrationVersion(ctx context.Context) (int64, error) {
	if err := s.setupGoose(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, s.db)
}

func (s *Store) setupGoose() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(s.dialect.Goose); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

func (s *Store) resource(name string) (Resource, error) {
	r, ok := Lookup(name)
	if !ok {
		return Resource{}, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return r, nil
}

func (s *Store) broadcast(ctx context.Context, resource, id string) {
	s.notifier.Broadcast(notifier.Change{Resource: resource, RowID: id, Origin: notifier.OriginFrom(ctx)})
}
