package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// busyTimeoutMS mirrors the original source's get_connection pragma
// (task_storage.py sets "PRAGMA busy_timeout = 5000").
const busyTimeoutMS = 5000

// Store is the Persistent Store (spec.md §4.A). It owns the single SQLite
// connection pool and every table operation. A Store is safe for
// concurrent use from any number of goroutines.
type Store struct {
	db   *sql.DB
	path string

	debounce debounceConfig

	mu      sync.Mutex
	handles map[string]*LiveHandle // keyed by "active_task:<task_id>" / "log:<run_id>:<agent_type>"
}

type debounceConfig struct {
	interval int64 // milliseconds
}

// Open opens (and, if needed, creates) the SQLite database at path, enables
// WAL mode and a busy timeout, runs migrations, and returns a ready Store.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, busyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapErr("open", err)
	}
	// A pure-Go SQLite driver multiplexes all connections onto one file
	// handle; keep a single connection to avoid "database is locked"
	// surprises under WAL with concurrent writers from the same process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, wrapErr("pragma journal_mode", err)
	}
	if _, err := db.Exec(fmt.Sprintf(`PRAGMA busy_timeout=%d`, busyTimeoutMS)); err != nil {
		db.Close()
		return nil, wrapErr("pragma busy_timeout", err)
	}

	s := &Store{
		db:       db,
		path:     path,
		debounce: debounceConfig{interval: 100},
		handles:  make(map[string]*LiveHandle),
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, wrapErr("migrate", err)
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	for _, h := range s.handles {
		h.ForceFlush()
	}
	s.mu.Unlock()
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for callers (e.g. cmd/doctor) that
// need to run ad hoc sanity checks.
func (s *Store) DB() *sql.DB { return s.db }
