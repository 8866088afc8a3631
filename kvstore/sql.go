package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DefaultTable is the table SQL stores read and write.
const DefaultTable = "ubigeo_kv"

// dialect holds the statements that differ between SQL engines.
type dialect struct {
	name   string
	schema string
	get    string
	put    string
	delete string
}

func sqliteDialect(table string) dialect {
	return dialect{
		name: "sqlite",
		schema: `CREATE TABLE IF NOT EXISTS ` + table + ` (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		get: `SELECT value FROM ` + table + ` WHERE key = ?`,
		put: `INSERT INTO ` + table + ` (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		delete: `DELETE FROM ` + table + ` WHERE key = ?`,
	}
}

func postgresDialect(table string) dialect {
	t := pq.QuoteIdentifier(table)
	return dialect{
		name: "postgres",
		schema: `CREATE TABLE IF NOT EXISTS ` + t + ` (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		get: `SELECT value FROM ` + t + ` WHERE key = $1`,
		put: `INSERT INTO ` + t + ` (key, value, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		delete: `DELETE FROM ` + t + ` WHERE key = $1`,
	}
}

// SQLStore keeps keys in a single table of a SQL database.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	clock   func() time.Time
}

// SQLOption configures a SQLStore.
type SQLOption func(*sqlConfig)

type sqlConfig struct {
	table string
	clock func() time.Time
}

// WithTable overrides DefaultTable.
func WithTable(name string) SQLOption {
	return func(c *sqlConfig) {
		if name != "" {
			c.table = name
		}
	}
}

// WithClock sets the time source for updated_at.
func WithClock(clock func() time.Time) SQLOption {
	return func(c *sqlConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

func newSQLConfig(opts []SQLOption) (sqlConfig, error) {
	cfg := sqlConfig{table: DefaultTable, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if !tablePattern.MatchString(cfg.table) {
		return cfg, fmt.Errorf("invalid table name %q", cfg.table)
	}
	return cfg, nil
}

// OpenSQLite opens or creates a SQLite database at path. This is the default
// durable store used by the CLI.
func OpenSQLite(ctx context.Context, path string, opts ...SQLOption) (*SQLStore, error) {
	cfg, err := newSQLConfig(opts)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection avoids SQLITE_BUSY between pooled writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return newSQLStore(ctx, db, sqliteDialect(cfg.table), cfg)
}

// OpenPostgres connects to PostgreSQL using a lib/pq DSN and ensures the
// table exists.
func OpenPostgres(ctx context.Context, dsn string, opts ...SQLOption) (*SQLStore, error) {
	cfg, err := newSQLConfig(opts)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return newSQLStore(ctx, db, postgresDialect(cfg.table), cfg)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, cfg sqlConfig) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize %s schema: %w", d.name, err)
	}
	return &SQLStore{db: db, dialect: d, clock: cfg.clock}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, s.dialect.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.wrap("get", key, err)
	}
	return clone(value), nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	var updatedAt any = s.clock().UTC()
	if s.dialect.name == "sqlite" {
		updatedAt = s.clock().UTC().Format(time.RFC3339Nano)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.put, key, value, updatedAt); err != nil {
		return s.wrap("put", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.delete, key); err != nil {
		return s.wrap("delete", key, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) wrap(op, key string, err error) error {
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s %s: %w", op, key, ErrClosed)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s %s: postgres %s: %w", op, key, pqErr.Code.Name(), err)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}
