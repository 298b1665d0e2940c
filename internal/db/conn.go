// Package db wraps the native client library of each supported backend
// behind a single Conn interface. Every Conn pins exactly one server
// session, so the monitoring queries issued by the collectors are scoped to
// the same session as the benchmarked query.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sqlbench/internal/target"
)

const connectTimeout = 30 * time.Second

// Conn is the uniform connection surface over the four backends.
type Conn interface {
	// Connect opens the network connection and pins one session.
	Connect(ctx context.Context) error
	// Execute runs the benchmark query on the pinned session.
	Execute(ctx context.Context, query string) error
	// FetchOne returns the first result row, or (nil, false, nil) for an
	// empty result set. It only errors if the preceding Execute failed.
	FetchOne() ([]string, bool, error)
	// QueryAll runs an independent statement over the same session and
	// returns all rows as strings. Collectors use it so monitoring never
	// touches the primary result state.
	QueryAll(ctx context.Context, query string, args ...any) ([][]string, error)
	// SessionID returns the backend's session identifier, or "unavailable".
	SessionID(ctx context.Context) string
	// RowCount reports how many rows the last FetchOne consumed.
	RowCount() (int, bool)
	// Close releases the result set, the session and the connection.
	// Idempotent; errors on already-closed handles are swallowed.
	Close() error
}

// ConnectionError means the target could not be reached at all; the engine
// skips the whole target when it sees one.
type ConnectionError struct {
	Target string
	DBType target.DBType
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s (%s): %v", e.Target, e.DBType, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError means a single execution failed; the run is recorded as failed
// and the target continues.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// New builds the backend-specific connection for cfg.
func New(cfg target.Config) (Conn, error) {
	switch cfg.DBType {
	case target.Firebird:
		return newFirebird(cfg), nil
	case target.MySQL:
		return newMySQL(cfg), nil
	case target.PostgreSQL:
		return newPostgres(cfg), nil
	case target.MariaDB:
		return newMariaDB(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported db_type: %s", cfg.DBType)
	}
}

// session is the shared pinned-session implementation. The per-backend
// types only differ in driver name, DSN and session-id query.
type session struct {
	cfg        target.Config
	driverName string
	dsn        string
	idQuery    string

	db   *sql.DB
	conn *sql.Conn

	rows    *sql.Rows
	execErr error
	fetched int
	didExec bool
}

func (s *session) Connect(ctx context.Context) error {
	db, err := sql.Open(s.driverName, s.dsn)
	if err != nil {
		return &ConnectionError{Target: s.cfg.Name, DBType: s.cfg.DBType, Err: err}
	}
	// One physical connection: monitoring counters are session-scoped.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return &ConnectionError{Target: s.cfg.Name, DBType: s.cfg.DBType, Err: err}
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return &ConnectionError{Target: s.cfg.Name, DBType: s.cfg.DBType, Err: err}
	}

	s.db = db
	s.conn = conn
	return nil
}

func (s *session) Execute(ctx context.Context, query string) error {
	s.closeRows()
	s.didExec = true
	s.fetched = 0

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		s.execErr = &QueryError{Query: query, Err: err}
		return s.execErr
	}
	s.rows = rows
	s.execErr = nil
	return nil
}

func (s *session) FetchOne() ([]string, bool, error) {
	if s.execErr != nil {
		return nil, false, s.execErr
	}
	if s.rows == nil {
		return nil, false, nil
	}
	defer s.closeRows()

	if !s.rows.Next() {
		// Empty result sets are a valid outcome, not an error.
		return nil, false, s.rows.Err()
	}
	row, err := scanStrings(s.rows)
	if err != nil {
		return nil, false, err
	}
	s.fetched = 1
	return row, true, nil
}

func (s *session) QueryAll(ctx context.Context, query string, args ...any) ([][]string, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", query, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		row, err := scanStrings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *session) SessionID(ctx context.Context) string {
	rows, err := s.QueryAll(ctx, s.idQuery)
	if err != nil || len(rows) == 0 || len(rows[0]) == 0 {
		return "unavailable"
	}
	return rows[0][0]
}

func (s *session) RowCount() (int, bool) {
	if !s.didExec {
		return 0, false
	}
	return s.fetched, true
}

func (s *session) Close() error {
	s.closeRows()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

func (s *session) closeRows() {
	if s.rows != nil {
		s.rows.Close()
		s.rows = nil
	}
}

// scanStrings reads the current row into strings, with NULLs as "".
func scanStrings(rows *sql.Rows) ([]string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]sql.RawBytes, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make([]string, len(cols))
	for i, v := range values {
		row[i] = string(v)
	}
	return row, nil
}
