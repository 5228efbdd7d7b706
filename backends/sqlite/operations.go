package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/fserr"
)

// ReadFile returns the contents of a file row
func (a *SQLiteAdapter) ReadFile(ctx context.Context, filePath string) (string, error) {
	data, err := a.read(ctx, "readFile", filePath, -1)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBytes returns up to n bytes from the start of a file row
func (a *SQLiteAdapter) ReadBytes(ctx context.Context, filePath string, n int) ([]byte, error) {
	return a.read(ctx, "readBytes", filePath, n)
}

// read fetches the data of a file row; n < 0 reads everything
func (a *SQLiteAdapter) read(ctx context.Context, op, filePath string, n int) ([]byte, error) {
	p := cleanPath(filePath)

	var (
		isDir int
		data  []byte
		err   error
	)
	if n < 0 {
		err = a.db.QueryRowContext(ctx,
			`SELECT is_dir, COALESCE(data, X'') FROM entries WHERE path = ?`, p).Scan(&isDir, &data)
	} else {
		err = a.db.QueryRowContext(ctx,
			`SELECT is_dir, substr(COALESCE(data, X''), 1, ?) FROM entries WHERE path = ?`, n, p).Scan(&isDir, &data)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, filePath)
	}
	if err != nil {
		return nil, fserr.IO(op, filePath, err)
	}
	if isDir == 1 {
		return nil, fserr.IO(op, filePath, posixError("read", filePath, syscall.EISDIR))
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// WriteFile creates or replaces a file row. The parent directory must exist.
func (a *SQLiteAdapter) WriteFile(ctx context.Context, filePath, data string) error {
	p := cleanPath(filePath)

	err := a.inTx(ctx, "writeFile", filePath, func(tx *sql.Tx) error {
		if err := checkParent(ctx, tx, "writeFile", p); err != nil {
			return err
		}
		existing, found, err := lookup(ctx, tx, p)
		if err != nil {
			return fserr.IO("writeFile", filePath, err)
		}
		if found && existing.isDir {
			return fserr.IO("writeFile", filePath, posixError("open", filePath, syscall.EISDIR))
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO entries (path, parent, is_dir, data, mtime) VALUES (?, ?, 0, ?, ?)
			ON CONFLICT(path) DO UPDATE SET data = excluded.data, mtime = excluded.mtime`,
			p, path.Dir(p), []byte(data), time.Now().UnixNano())
		if err != nil {
			return fserr.IO("writeFile", filePath, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.logger.Debug("File row written", zap.String("path", p), zap.Int("size", len(data)))
	return nil
}

// Unlink deletes a file row
func (a *SQLiteAdapter) Unlink(ctx context.Context, filename string) error {
	p := cleanPath(filename)

	return a.inTx(ctx, "unlink", filename, func(tx *sql.Tx) error {
		existing, found, err := lookup(ctx, tx, p)
		if err != nil {
			return fserr.IO("unlink", filename, err)
		}
		if !found {
			return notFound("unlink", filename)
		}
		if existing.isDir {
			return fserr.IO("unlink", filename, posixError("unlink", filename, syscall.EISDIR))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE path = ?`, p); err != nil {
			return fserr.IO("unlink", filename, err)
		}
		return nil
	})
}

// PathExists reports whether a row exists for path
func (a *SQLiteAdapter) PathExists(ctx context.Context, filePath string) (bool, error) {
	_, found, err := lookup(ctx, a.db, cleanPath(filePath))
	if err != nil {
		a.logger.Debug("Existence check failed", zap.String("path", filePath), zap.Error(err))
		return false, nil
	}
	return found, nil
}

// GetMtime returns the stored modification time
func (a *SQLiteAdapter) GetMtime(ctx context.Context, filePath string) (time.Time, error) {
	existing, found, err := lookup(ctx, a.db, cleanPath(filePath))
	if err != nil {
		return time.Time{}, fserr.IO("getMtime", filePath, err)
	}
	if !found {
		return time.Time{}, notFound("getMtime", filePath)
	}
	return existing.mtime, nil
}

// MkDir creates a directory row. An existing entry is success.
func (a *SQLiteAdapter) MkDir(ctx context.Context, dirPath string) error {
	p := cleanPath(dirPath)

	return a.inTx(ctx, "mkDir", dirPath, func(tx *sql.Tx) error {
		_, found, err := lookup(ctx, tx, p)
		if err != nil {
			return fserr.IO("mkDir", dirPath, err)
		}
		if found {
			return nil
		}
		if err := checkParent(ctx, tx, "mkDir", p); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO entries (path, parent, is_dir, mtime) VALUES (?, ?, 1, ?)`,
			p, path.Dir(p), time.Now().UnixNano())
		if err != nil {
			return fserr.IO("mkDir", dirPath, err)
		}
		return nil
	})
}

// RmDir deletes an empty directory row. An absent entry is success.
func (a *SQLiteAdapter) RmDir(ctx context.Context, dirPath string) error {
	p := cleanPath(dirPath)
	if p == "/" {
		return fserr.IO("rmDir", dirPath, posixError("rmdir", dirPath, syscall.EBUSY))
	}

	return a.inTx(ctx, "rmDir", dirPath, func(tx *sql.Tx) error {
		existing, found, err := lookup(ctx, tx, p)
		if err != nil {
			return fserr.IO("rmDir", dirPath, err)
		}
		if !found {
			return nil
		}
		if !existing.isDir {
			return fserr.IO("rmDir", dirPath, posixError("rmdir", dirPath, syscall.ENOTDIR))
		}

		var children int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM entries WHERE parent = ?`, p).Scan(&children); err != nil {
			return fserr.IO("rmDir", dirPath, err)
		}
		if children > 0 {
			return fserr.IO("rmDir", dirPath, posixError("rmdir", dirPath, syscall.ENOTEMPTY))
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE path = ?`, p); err != nil {
			return fserr.IO("rmDir", dirPath, err)
		}
		return nil
	})
}

// inTx runs fn in a transaction and commits when it succeeds
func (a *SQLiteAdapter) inTx(ctx context.Context, op, p string, fn func(tx *sql.Tx) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fserr.IO(op, p, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fserr.IO(op, p, err)
	}
	return nil
}
