// Package storage wraps a single SQLite database file with the
// projects/sessions/messages/FTS schema the Agent owns exclusively. All
// mutations are funneled through one writer goroutine so the rest of the
// process can treat Store as safe for concurrent use despite SQLite's single
// writer limitation; reads are served directly off the shared *sql.DB,
// which is limited to one open connection, so an in-process read waits
// while a write transaction holds it. WAL mode lets readers in other
// processes proceed alongside the writer.
package storage

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema/init.sql
var initSQL string

// currentSchemaVersion is bumped whenever init.sql gains an additive
// migration. Connect refuses to open a database stamped with a version
// higher than this build knows about.
const currentSchemaVersion = 1

// busyTimeout satisfies the >=5s requirement on lock contention with other
// connections (in this or other processes) that open the same file.
const busyTimeout = 5 * time.Second

// Store owns one SQLite database file and serializes all writes through a
// single background goroutine.
type Store struct {
	db      *sql.DB
	path    string
	writeCh chan writeJob
	done    chan struct{}
}

type writeJob struct {
	fn   func(*sql.Tx) error
	resp chan error
}

// Connect opens or creates the database at path, applies pragmas and
// migrations, and starts the writer goroutine. An empty path is rejected;
// callers resolve the default location (config.DatabasePath) themselves.
func Connect(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: empty database path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, wrapErr("connect", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapErr("open", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, wrapErr("journal_mode", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, wrapErr("foreign_keys", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, wrapErr("busy_timeout", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:      db,
		path:    path,
		writeCh: make(chan writeJob),
		done:    make(chan struct{}),
	}
	go s.writeLoop()
	return s, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(initSQL); err != nil {
		return wrapErr("migrate", err)
	}

	row := db.QueryRow("SELECT schema_version FROM meta LIMIT 1")
	var version int
	switch err := row.Scan(&version); err {
	case sql.ErrNoRows:
		if _, err := db.Exec("INSERT INTO meta(schema_version) VALUES (?)", currentSchemaVersion); err != nil {
			return wrapErr("migrate", err)
		}
	case nil:
		if version > currentSchemaVersion {
			return ErrSchemaMismatch
		}
	default:
		return wrapErr("migrate", err)
	}
	return nil
}

// Path returns the filesystem path backing this Store.
func (s *Store) Path() string { return s.path }

// Close stops the writer goroutine and closes the underlying connection.
func (s *Store) Close() error {
	close(s.done)
	return s.db.Close()
}

func (s *Store) writeLoop() {
	for {
		select {
		case job := <-s.writeCh:
			job.resp <- s.runInTx(job.fn)
		case <-s.done:
			return
		}
	}
}

// write submits fn to the single writer goroutine and blocks for its
// result. fn runs inside one transaction; any error rolls it back.
func (s *Store) write(fn func(*sql.Tx) error) error {
	resp := make(chan error, 1)
	select {
	case s.writeCh <- writeJob{fn: fn, resp: resp}:
	case <-s.done:
		return fmt.Errorf("storage: closed")
	}
	return <-resp
}

func (s *Store) runInTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return wrapErr("begin", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("commit", err)
	}
	return nil
}
