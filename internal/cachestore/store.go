// Package cachestore is the SQLite-backed task cache database: task
// details, task run history, output fingerprints, and the running-tasks
// registry, guarded by a lock file so only one process at a time opens the
// connection that creates/migrates the schema.
package cachestore

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/nrwl-labs/nxcore/internal/machineid"
	"github.com/nrwl-labs/nxcore/internal/nxerrors"
)

const (
	busyRetries = 5
	busyDelay   = 25 * time.Millisecond
)

// Options configures Open.
type Options struct {
	// CacheDir is the directory the database file (and its lock file)
	// live in. Created if absent.
	CacheDir string
	// NxVersion stamps the metadata table; a mismatch against an existing
	// database triggers a delete-and-recreate rather than a migration.
	NxVersion string
	// DBName overrides the default "<machine-id>.db" file name.
	DBName string
	// UseDotfileVFS opts into SQLite's unix-dotfile VFS, which avoids
	// POSIX advisory locks that some CI/container filesystems don't
	// support. Left for the caller to set from its own CI detection
	// rather than sniffed here (see the open-question decision in
	// SPEC_FULL.md §13.2).
	UseDotfileVFS bool
	// Logger receives debug-level records for each SQLITE_BUSY retry.
	// A nil Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store is an open handle on the task cache database. The advisory lock
// that guards its creation/migration is held only for the duration of
// Open; once it returns, concurrent processes share the database through
// WAL mode rather than being serialized against each other.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// CacheHits returns the number of output-fingerprint lookups that found a
// recorded fingerprint, satisfying observability.CacheStatsProvider.
func (s *Store) CacheHits() int64 {
	return s.cacheHits.Load()
}

// CacheMisses returns the number of output-fingerprint lookups that found
// nothing, satisfying observability.CacheStatsProvider.
func (s *Store) CacheMisses() int64 {
	return s.cacheMisses.Load()
}

// MachineID returns the stable per-machine identifier Open uses to derive
// the default database file name, persisting its seed under stateDir.
func MachineID(stateDir string) (string, error) {
	return machineid.ID(stateDir)
}

// Open acquires the cache directory's lock file for the duration of
// creating/opening and schema-reconciling the SQLite database, releasing it
// before returning the connection: the lock only serializes the database's
// creation and migration against concurrent processes, not its ongoing use,
// which is shared safely through WAL mode. An incompatible existing
// database is closed and deleted, then recreated from scratch.
func Open(opts Options) (*Store, error) {
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, &nxerrors.IOError{Op: "mkdir cache dir", Err: err}
	}

	dbName := opts.DBName
	if dbName == "" {
		id, err := machineid.ID(opts.CacheDir)
		if err != nil {
			return nil, &nxerrors.IOError{Op: "resolve machine id", Err: err}
		}
		dbName = id + ".db"
	}

	dbPath := filepath.Join(opts.CacheDir, dbName)

	lock, err := acquireLock(dbPath)
	if err != nil {
		return nil, err
	}
	defer releaseLock(lock)

	return openAndReconcile(dbPath, opts)
}

func acquireLock(dbPath string) (*flock.Flock, error) {
	lockPath := dbPath + ".lock"
	lock := flock.New(lockPath)

	if err := lock.Lock(); err != nil {
		return nil, &nxerrors.IOError{Op: "lock cache db", Err: err}
	}

	return lock, nil
}

func releaseLock(lock *flock.Flock) {
	if lock == nil {
		return
	}
	_ = lock.Unlock()
	_ = os.Remove(lock.Path())
}

func openAndReconcile(dbPath string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := createConnection(dbPath, opts.UseDotfileVFS)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db, path: dbPath, logger: logger}

	if err := store.ensureMetadataTable(); err != nil {
		_ = db.Close()
		return nil, err
	}

	existingVersion, found, err := store.readVersion()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	switch {
	case !found:
		if err := store.writeVersion(opts.NxVersion); err != nil {
			_ = db.Close()
			return nil, err
		}
	case existingVersion != opts.NxVersion:
		_ = db.Close()
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return nil, &nxerrors.IOError{Op: "remove incompatible cache db", Err: err}
		}

		db, err = createConnection(dbPath, opts.UseDotfileVFS)
		if err != nil {
			return nil, err
		}
		store = &Store{db: db, path: dbPath, logger: logger}

		if err := store.ensureMetadataTable(); err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := store.writeVersion(opts.NxVersion); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func createConnection(dbPath string, useDotfileVFS bool) (*sql.DB, error) {
	dsn := dbPath
	if useDotfileVFS {
		dsn = fmt.Sprintf("file:%s?vfs=unix-dotfile", dbPath)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &nxerrors.IOError{Op: "open cache db", Err: err}
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, &nxerrors.IOError{Op: "configure cache db", Err: err}
		}
	}

	return db, nil
}

func (s *Store) ensureMetadataTable() error {
	_, err := s.exec(`CREATE TABLE IF NOT EXISTS metadata (
		key   TEXT NOT NULL PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	return err
}

func (s *Store) readVersion() (version string, found bool, err error) {
	row := s.db.QueryRow(`SELECT value FROM metadata WHERE key = 'NX_VERSION'`)
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, &nxerrors.IOError{Op: "read cache db version", Err: err}
	}
	return version, true, nil
}

func (s *Store) writeVersion(version string) error {
	_, err := s.exec(`INSERT OR REPLACE INTO metadata (key, value) VALUES ('NX_VERSION', ?)`, version)
	return err
}

func (s *Store) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS task_details (
			hash          TEXT PRIMARY KEY NOT NULL,
			project       TEXT NOT NULL,
			target        TEXT NOT NULL,
			configuration TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS task_history (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			hash   TEXT NOT NULL,
			status TEXT NOT NULL,
			code   INTEGER NOT NULL,
			start  INTEGER NOT NULL,
			end    INTEGER NOT NULL,
			FOREIGN KEY (hash) REFERENCES task_details (hash)
		)`,
		`CREATE INDEX IF NOT EXISTS task_history_hash_idx ON task_history (hash)`,
		`CREATE TABLE IF NOT EXISTS output_fingerprints (
			task_hash   TEXT PRIMARY KEY NOT NULL,
			fingerprint TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS running_tasks (
			task_id TEXT PRIMARY KEY NOT NULL,
			pid     INTEGER NOT NULL,
			args    TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the database connection. Safe to call once; the Store
// must not be used afterward.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &nxerrors.IOError{Op: "close cache db", Err: err}
	}
	return nil
}

// exec runs a write statement, retrying on SQLITE_BUSY up to busyRetries
// times with a busyDelay pause between attempts, matching the native
// layer's retry_on_busy. A non-busy failure returns immediately.
func (s *Store) exec(query string, args ...any) (sql.Result, error) {
	var lastErr error

	for attempt := 0; attempt < busyRetries; attempt++ {
		result, err := s.db.Exec(query, args...)
		if err == nil {
			return result, nil
		}
		if !isBusy(err) {
			return nil, &nxerrors.IOError{Op: fmt.Sprintf("db execute: %q", query), Err: err}
		}

		lastErr = err
		s.logger.Debug("cache db busy, retrying", "attempt", attempt+1, "max_attempts", busyRetries)
		time.Sleep(busyDelay)
	}

	return nil, &nxerrors.IOError{Op: fmt.Sprintf("db execute (busy): %q", query), Err: lastErr}
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
