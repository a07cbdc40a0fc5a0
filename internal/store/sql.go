package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"  // MySQL driver ("mysql")
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver ("pgx")
	_ "modernc.org/sqlite"             // Pure Go SQLite driver ("sqlite")

	"github.com/ashureev/partnerdesk/internal/domain"
	"github.com/ashureev/partnerdesk/internal/shared"
)

// Supported values for Options.Driver.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects and configures the data store connection.
type Options struct {
	Driver string
	DSN    string // MySQL/PostgreSQL data source name
	Path   string // SQLite file path, or ":memory:"
	Policy Policy
}

// SQLStore implements Repository on database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
	policy Policy
}

// Open connects to the configured data store and verifies it with a ping.
func Open(opts Options) (*SQLStore, error) {
	var (
		db  *sql.DB
		err error
	)
	switch opts.Driver {
	case DriverMySQL:
		db, err = openNetwork("mysql", opts.DSN)
	case DriverPostgres:
		db, err = openNetwork("pgx", opts.DSN)
	case DriverSQLite:
		db, err = openSQLite(opts.Path)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	policy := opts.Policy
	if policy == "" {
		policy = PolicyUnrestricted
	}
	return &SQLStore{db: db, driver: opts.Driver, policy: policy}, nil
}

func openNetwork(driverName, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for %s driver", driverName)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}
	return db, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("DB_PATH is required for sqlite driver")
	}

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite single-writer: cap pool. This also keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// Driver returns the configured driver name.
func (s *SQLStore) Driver() string {
	return s.driver
}

// Ping verifies database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Execute runs statement verbatim in a single non-transactional call.
// Row-returning statements yield their columns and rows; anything else yields
// one row with affected_rows (and last_insert_id when the driver reports it).
func (s *SQLStore) Execute(ctx context.Context, statement string) (*domain.QueryResult, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, &StatementError{Statement: statement, Err: ErrEmptyStatement}
	}

	if s.policy == PolicyReadOnly && !IsRead(statement) {
		return nil, &StatementError{Statement: statement, Err: ErrStatementNotAllowed}
	}

	var (
		result *domain.QueryResult
		err    error
	)
	if ReturnsRows(statement) {
		result, err = s.query(ctx, statement)
	} else {
		result, err = s.exec(ctx, statement)
	}
	if err != nil {
		if shared.IsConflictError(err) {
			slog.Warn("statement hit a store concurrency conflict", "driver", s.driver, "error", err)
		}
		return nil, &StatementError{Statement: statement, Err: err}
	}
	return result, nil
}

func (s *SQLStore) query(ctx context.Context, statement string) (*domain.QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Debug("failed to close result rows", "error", closeErr)
		}
	}()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &domain.QueryResult{
		Columns: uniqueColumns(names),
		Rows:    []map[string]any{},
	}
	values := make([]any, len(names))
	dest := make([]any, len(names))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		record := make(map[string]any, len(names))
		for i, name := range names {
			record[name] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLStore) exec(ctx context.Context, statement string) (*domain.QueryResult, error) {
	res, err := s.db.ExecContext(ctx, statement)
	if err != nil {
		return nil, err
	}

	result := &domain.QueryResult{Columns: []string{}, Rows: []map[string]any{}}
	record := map[string]any{}
	if n, err := res.RowsAffected(); err == nil {
		result.Columns = append(result.Columns, "affected_rows")
		record["affected_rows"] = n
	}
	// pgx reports LastInsertId as unsupported; omit the column in that case.
	if id, err := res.LastInsertId(); err == nil {
		result.Columns = append(result.Columns, "last_insert_id")
		record["last_insert_id"] = id
	}
	if len(record) > 0 {
		result.Rows = append(result.Rows, record)
	}
	return result, nil
}

// uniqueColumns keeps the first occurrence of each name, matching the keys
// produced when rows are folded into maps.
func uniqueColumns(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return val
	}
}

var _ Repository = (*SQLStore)(nil)
