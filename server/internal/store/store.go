package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/pspwatch/pspwatch/server/internal/compute"
)

// Supported backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// ErrDuplicate is returned by Insert when a transaction with the same id
// already exists.
var ErrDuplicate = errors.New("store: duplicate transaction id")

// Store is the transaction repository.
type Store struct {
	db      *sql.DB
	backend string
	now     func() time.Time // injectable for deterministic tests
}

// Open connects to the backend, verifies the connection and applies pending
// migrations. For sqlite, dsn is a file path or file: URI, optionally with
// query parameters; the parent directory is created if missing.
func Open(ctx context.Context, backend, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch backend {
	case BackendSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, fmt.Errorf("store: open %s: %w", backend, err)
		}
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			db.SetMaxOpenConns(1) // SQLite single-writer
		}
	case BackendPostgres:
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			db.SetMaxOpenConns(10)
			db.SetConnMaxIdleTime(5 * time.Minute)
		}
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", backend, err)
	}

	s := &Store{db: db, backend: backend, now: time.Now}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: connect %s: %w", backend, err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrations: %w", err)
	}
	return s, nil
}

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// sqliteDSN appends the connection pragmas to dsn, keeping any query
// parameters it already carries.
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + sqlitePragmas
}

// ensureDir creates the directory holding the sqlite database file.
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Backend returns the name of the backend in use.
func (s *Store) Backend() string { return s.backend }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *Store) rebind(query string) string {
	if s.backend != BackendPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(compute.TimeLayout)
}
