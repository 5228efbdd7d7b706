package redis

import (
	"context"
	"path"
	"strconv"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/fserr"
)

// ReadFile returns the data field of a file entry
func (a *RedisAdapter) ReadFile(ctx context.Context, filePath string) (string, error) {
	data, err := a.read(ctx, "readFile", filePath)
	if err != nil {
		return "", err
	}
	return data, nil
}

// ReadBytes returns up to n bytes from the start of a file entry
func (a *RedisAdapter) ReadBytes(ctx context.Context, filePath string, n int) ([]byte, error) {
	data, err := a.read(ctx, "readBytes", filePath)
	if err != nil {
		return nil, err
	}
	if n < len(data) {
		data = data[:n]
	}
	return []byte(data), nil
}

func (a *RedisAdapter) read(ctx context.Context, op, filePath string) (string, error) {
	vals, err := a.client.HMGet(ctx, a.entryKey(cleanPath(filePath)), fieldDir, fieldData).Result()
	if err != nil {
		return "", fserr.IO(op, filePath, err)
	}
	dir, ok := vals[0].(string)
	if !ok {
		return "", notFound(op, filePath)
	}
	if dir == "1" {
		return "", fserr.IO(op, filePath, posixError("read", filePath, syscall.EISDIR))
	}
	data, _ := vals[1].(string)
	return data, nil
}

// WriteFile creates or replaces a file entry. The parent directory must exist.
func (a *RedisAdapter) WriteFile(ctx context.Context, filePath, data string) error {
	p := cleanPath(filePath)
	parent := path.Dir(p)

	err := a.watch(ctx, "writeFile", filePath, func(tx *goredis.Tx) error {
		if err := a.checkParent(ctx, tx, "writeFile", p); err != nil {
			return err
		}
		existing, found, err := a.lookup(ctx, tx, p)
		if err != nil {
			return fserr.IO("writeFile", filePath, err)
		}
		if found && existing.isDir {
			return fserr.IO("writeFile", filePath, posixError("open", filePath, syscall.EISDIR))
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, a.entryKey(p),
				fieldDir, "0",
				fieldData, data,
				fieldMtime, strconv.FormatInt(time.Now().UnixNano(), 10))
			pipe.SAdd(ctx, a.childrenKey(parent), p)
			return nil
		})
		return err
	}, a.entryKey(p), a.entryKey(parent))
	if err != nil {
		return err
	}

	a.logger.Debug("File entry written", zap.String("path", p), zap.Int("size", len(data)))
	return nil
}

// Unlink deletes a file entry
func (a *RedisAdapter) Unlink(ctx context.Context, filename string) error {
	p := cleanPath(filename)

	return a.watch(ctx, "unlink", filename, func(tx *goredis.Tx) error {
		existing, found, err := a.lookup(ctx, tx, p)
		if err != nil {
			return fserr.IO("unlink", filename, err)
		}
		if !found {
			return notFound("unlink", filename)
		}
		if existing.isDir {
			return fserr.IO("unlink", filename, posixError("unlink", filename, syscall.EISDIR))
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, a.entryKey(p))
			pipe.SRem(ctx, a.childrenKey(path.Dir(p)), p)
			return nil
		})
		return err
	}, a.entryKey(p))
}

// PathExists reports whether an entry exists for path
func (a *RedisAdapter) PathExists(ctx context.Context, filePath string) (bool, error) {
	n, err := a.client.Exists(ctx, a.entryKey(cleanPath(filePath))).Result()
	if err != nil {
		a.logger.Debug("Existence check failed", zap.String("path", filePath), zap.Error(err))
		return false, nil
	}
	return n == 1, nil
}

// GetMtime returns the stored modification time
func (a *RedisAdapter) GetMtime(ctx context.Context, filePath string) (time.Time, error) {
	existing, found, err := a.lookup(ctx, a.client, cleanPath(filePath))
	if err != nil {
		return time.Time{}, fserr.IO("getMtime", filePath, err)
	}
	if !found {
		return time.Time{}, notFound("getMtime", filePath)
	}
	return existing.mtime, nil
}

// MkDir creates a directory entry. An existing entry is success.
func (a *RedisAdapter) MkDir(ctx context.Context, dirPath string) error {
	p := cleanPath(dirPath)
	parent := path.Dir(p)

	return a.watch(ctx, "mkDir", dirPath, func(tx *goredis.Tx) error {
		_, found, err := a.lookup(ctx, tx, p)
		if err != nil {
			return fserr.IO("mkDir", dirPath, err)
		}
		if found {
			return nil
		}
		if err := a.checkParent(ctx, tx, "mkDir", p); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, a.entryKey(p),
				fieldDir, "1",
				fieldMtime, strconv.FormatInt(time.Now().UnixNano(), 10))
			pipe.SAdd(ctx, a.childrenKey(parent), p)
			return nil
		})
		return err
	}, a.entryKey(p), a.entryKey(parent))
}

// RmDir deletes an empty directory entry. An absent entry is success.
func (a *RedisAdapter) RmDir(ctx context.Context, dirPath string) error {
	p := cleanPath(dirPath)
	if p == "/" {
		return fserr.IO("rmDir", dirPath, posixError("rmdir", dirPath, syscall.EBUSY))
	}

	return a.watch(ctx, "rmDir", dirPath, func(tx *goredis.Tx) error {
		existing, found, err := a.lookup(ctx, tx, p)
		if err != nil {
			return fserr.IO("rmDir", dirPath, err)
		}
		if !found {
			return nil
		}
		if !existing.isDir {
			return fserr.IO("rmDir", dirPath, posixError("rmdir", dirPath, syscall.ENOTDIR))
		}

		children, err := tx.SCard(ctx, a.childrenKey(p)).Result()
		if err != nil {
			return fserr.IO("rmDir", dirPath, err)
		}
		if children > 0 {
			return fserr.IO("rmDir", dirPath, posixError("rmdir", dirPath, syscall.ENOTEMPTY))
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, a.entryKey(p), a.childrenKey(p))
			pipe.SRem(ctx, a.childrenKey(path.Dir(p)), p)
			return nil
		})
		return err
	}, a.entryKey(p), a.childrenKey(p))
}
