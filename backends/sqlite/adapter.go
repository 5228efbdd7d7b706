// Package sqlite implements the blocking branch of the dualfs contract on a
// single SQLite table. Paths are cleaned slash paths; the root directory is
// created with the schema.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/fserr"
)

// SQLiteAdapter stores files and directories as rows of the entries table
type SQLiteAdapter struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	_ backends.Backend  = (*SQLiteAdapter)(nil)
	_ backends.Blocking = (*SQLiteAdapter)(nil)
)

// NewSQLiteAdapter opens (or creates) the database at dbPath
func NewSQLiteAdapter(dbPath string, logger *zap.Logger) (*SQLiteAdapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one writer at a time; check-then-write transactions must not interleave
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	adapter := &SQLiteAdapter{db: db, logger: logger}
	if err := adapter.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return adapter, nil
}

func (a *SQLiteAdapter) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS entries (
    path TEXT PRIMARY KEY,
    parent TEXT NOT NULL,
    is_dir INTEGER NOT NULL CHECK (is_dir IN (0, 1)),
    data BLOB,
    mtime INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_parent ON entries(parent);
`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	if _, err := a.db.Exec(
		`INSERT OR IGNORE INTO entries (path, parent, is_dir, mtime) VALUES ('/', '', 1, ?)`,
		time.Now().UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to create root entry: %w", err)
	}
	return nil
}

// Name returns "sqlite"
func (a *SQLiteAdapter) Name() string { return "sqlite" }

// Close closes the database
func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}

// entry is one row of the entries table, without its data
type entry struct {
	isDir bool
	mtime time.Time
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// lookup returns the entry at p; found is false when no row exists
func lookup(ctx context.Context, q querier, p string) (e entry, found bool, err error) {
	var (
		isDir int
		mtime int64
	)
	err = q.QueryRowContext(ctx, `SELECT is_dir, mtime FROM entries WHERE path = ?`, p).Scan(&isDir, &mtime)
	if errors.Is(err, sql.ErrNoRows) {
		return entry{}, false, nil
	}
	if err != nil {
		return entry{}, false, err
	}
	return entry{isDir: isDir == 1, mtime: time.Unix(0, mtime)}, true, nil
}

// checkParent verifies that the directory holding p exists
func checkParent(ctx context.Context, q querier, op, p string) error {
	parent, found, err := lookup(ctx, q, path.Dir(p))
	if err != nil {
		return fserr.IO(op, p, err)
	}
	if !found {
		if op == "mkDir" {
			return fserr.IO(op, p, posixError("mkdir", p, syscall.ENOENT))
		}
		return fserr.NoEntry(op, p, posixError("open", p, syscall.ENOENT))
	}
	if !parent.isDir {
		return fserr.IO(op, p, posixError("open", p, syscall.ENOTDIR))
	}
	return nil
}

// cleanPath converts p to the key used in the table
func cleanPath(p string) string {
	return path.Clean("/" + p)
}

func posixError(op, p string, errno syscall.Errno) error {
	return &os.PathError{Op: op, Path: p, Err: errno}
}

func notFound(op, p string) error {
	return fserr.NoEntry(op, p, posixError("open", p, syscall.ENOENT))
}
