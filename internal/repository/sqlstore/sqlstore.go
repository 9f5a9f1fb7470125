// Package sqlstore implements the repository interfaces on top of database/sql.
//
// ONE STORE, TWO DIALECTS:
// The same *DB type talks to SQLite (modernc.org/sqlite, pure Go, no CGo) for
// development and tests, and to Postgres (pgx through its database/sql
// adapter) in production. Queries are written once with `?` placeholders and
// rebound to `$1, $2, ...` when the dialect is Postgres. Everything else is
// kept portable on purpose:
//   - case-insensitive search is LOWER(col) LIKE LOWER(?), not ILIKE
//   - timestamps come from Go (UTC, microsecond precision), never NOW()
//   - idempotent inserts use INSERT ... ON CONFLICT DO NOTHING, which both speak
//
// ZERO ROWS MEANS NOT FOUND:
// Ownership-scoped mutations put the owner id in the WHERE clause. When
// RowsAffected() is 0 we return apperror.NotFound, whether the row is missing
// or belongs to someone else. Callers cannot tell the two apart, and that is
// the contract.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	// Drivers register themselves with database/sql in init():
	// modernc as "sqlite", pgx as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/sakif/socialhub/internal/observability"
	"github.com/sakif/socialhub/internal/repository"
)

// Dialect selects the SQL flavour the store speaks.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Pagination bounds applied to every List call.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Options configures Open.
type Options struct {
	Driver       string // "sqlite" or "postgres"
	DSN          string // file path / ":memory:" for sqlite, URL for postgres
	MaxOpenConns int
}

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	logger  *slog.Logger
	now     func() time.Time
}

// querier is the subset shared by *sql.DB and *sql.Tx, so helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ repository.UserRepository    = (*DB)(nil)
	_ repository.PostRepository    = (*DB)(nil)
	_ repository.CommentRepository = (*DB)(nil)
	_ repository.LikeRepository    = (*DB)(nil)
	_ repository.FollowRepository  = (*DB)(nil)
)

// ParseDialect maps a driver name from config to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("sqlstore: unsupported driver %q", driver)
}

// Open creates the connection pool, verifies it and runs migrations.
//
// SQLITE POOL SIZE:
// SQLite allows a single writer, and every ":memory:" connection is its own
// private database. The pool is therefore pinned to one connection for the
// sqlite dialect.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*DB, error) {
	dialect, err := ParseDialect(opts.Driver)
	if err != nil {
		return nil, err
	}

	driverName := "sqlite"
	if dialect == DialectPostgres {
		driverName = "pgx"
	} else if err := ensureDir(opts.DSN); err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening database: %w", err)
	}

	if dialect == DialectSQLite {
		conn.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(opts.MaxOpenConns)
		conn.SetMaxIdleConns(opts.MaxOpenConns)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging database: %w", err)
	}

	if dialect == DialectSQLite {
		// WAL lets readers proceed while a write is in flight.
		// Foreign keys are OFF by default in SQLite.
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
			if _, err := conn.ExecContext(ctx, pragma); err != nil {
				conn.Close()
				return nil, fmt.Errorf("sqlstore: %s: %w", pragma, err)
			}
		}
	}

	db := NewWithConn(conn, dialect, logger)
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: running migrations: %w", err)
	}

	return db, nil
}

// ensureDir creates the parent directory of a sqlite database file.
// ":memory:" and "file:" URIs are left alone.
func ensureDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlstore: creating database directory %s: %w", dir, err)
	}
	return nil
}

// NewWithConn wraps an existing pool without touching the schema.
// Used by tests (sqlmock) and by callers that manage migrations themselves.
func NewWithConn(conn *sql.DB, dialect Dialect, logger *slog.Logger) *DB {
	return &DB{
		conn:    conn,
		dialect: dialect,
		logger:  logger,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// Dialect reports which SQL flavour the store speaks.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Ping checks that the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// rebind rewrites `?` placeholders to `$n` for Postgres.
// None of our queries contain a literal question mark.
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (db *DB) exec(ctx context.Context, q querier, op, table, query string, args ...any) (sql.Result, error) {
	defer observability.TrackQuery(op, table)()
	return q.ExecContext(ctx, db.rebind(query), args...)
}

func (db *DB) query(ctx context.Context, q querier, op, table, query string, args ...any) (*sql.Rows, error) {
	defer observability.TrackQuery(op, table)()
	return q.QueryContext(ctx, db.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, q querier, op, table, query string, args ...any) *sql.Row {
	defer observability.TrackQuery(op, table)()
	return q.QueryRowContext(ctx, db.rebind(query), args...)
}

// withTx runs fn inside a transaction, committing on success.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing transaction: %w", err)
	}
	return nil
}

// window clamps pagination and returns the LIMIT to query with: one row more
// than the page, so hasMore can be answered exactly.
func window(opts repository.ListOptions) (limit, offset, fetch int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset, limit + 1
}

// trimPage drops the look-ahead row, if present, and reports whether it was there.
func trimPage[T any](rows []T, limit int) ([]T, bool) {
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}

// likePattern turns user input into a substring pattern with LIKE wildcards escaped.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// uniqueViolation reports whether err is a unique-constraint failure and
// returns a detail string (constraint name or driver message) naming the column.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	if msg := err.Error(); strings.Contains(msg, "UNIQUE constraint failed") {
		return msg, true
	}
	return "", false
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	return n, nil
}
