// Package redis implements the blocking branch of the dualfs contract on
// Redis. Every entry is a hash holding its kind, data and mtime; every
// directory has a set of child paths. Writes use WATCH and MULTI/EXEC so the
// parent checks and the write commit together.
package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/config"
	"github.com/ebogdum/dualfs/fserr"
)

// maxTxRetries bounds optimistic transaction retries when a watched key changes
const maxTxRetries = 8

// Hash fields of an entry
const (
	fieldDir   = "dir"
	fieldData  = "data"
	fieldMtime = "mtime"
)

// RedisAdapter stores the tree in a Redis database
type RedisAdapter struct {
	client *goredis.Client
	prefix string
	logger *zap.Logger
}

var (
	_ backends.Backend  = (*RedisAdapter)(nil)
	_ backends.Blocking = (*RedisAdapter)(nil)
)

// NewRedisAdapter connects to the configured Redis server
func NewRedisAdapter(cfg config.BackendConfig, logger *zap.Logger) (*RedisAdapter, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	adapter, err := NewRedisAdapterWithClient(client, cfg.RedisKeyPrefix, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return adapter, nil
}

// NewRedisAdapterWithClient uses an existing client and creates the root
// directory entry if it is missing
func NewRedisAdapterWithClient(client *goredis.Client, prefix string, logger *zap.Logger) (*RedisAdapter, error) {
	if prefix == "" {
		prefix = "dualfs:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &RedisAdapter{client: client, prefix: prefix, logger: logger}

	ctx := context.Background()
	root := a.entryKey("/")
	_, err := client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSetNX(ctx, root, fieldDir, "1")
		pipe.HSetNX(ctx, root, fieldMtime, strconv.FormatInt(time.Now().UnixNano(), 10))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create root entry: %w", err)
	}
	return a, nil
}

// Name returns "redis"
func (a *RedisAdapter) Name() string { return "redis" }

// Close closes the client
func (a *RedisAdapter) Close() error {
	return a.client.Close()
}

func (a *RedisAdapter) entryKey(p string) string {
	return a.prefix + "e:" + p
}

func (a *RedisAdapter) childrenKey(p string) string {
	return a.prefix + "c:" + p
}

// entry is the decoded hash of one path, without its data
type entry struct {
	isDir bool
	mtime time.Time
}

// hashReader is satisfied by *goredis.Client and *goredis.Tx
type hashReader interface {
	HMGet(ctx context.Context, key string, fields ...string) *goredis.SliceCmd
}

// lookup reads the entry at p; found is false when no hash exists
func (a *RedisAdapter) lookup(ctx context.Context, c hashReader, p string) (e entry, found bool, err error) {
	vals, err := c.HMGet(ctx, a.entryKey(p), fieldDir, fieldMtime).Result()
	if err != nil {
		return entry{}, false, err
	}
	dir, ok := vals[0].(string)
	if !ok {
		return entry{}, false, nil
	}
	e.isDir = dir == "1"
	if raw, ok := vals[1].(string); ok {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return entry{}, false, fmt.Errorf("corrupt mtime %q: %w", raw, err)
		}
		e.mtime = time.Unix(0, nanos)
	}
	return e, true, nil
}

// checkParent verifies that the directory holding p exists
func (a *RedisAdapter) checkParent(ctx context.Context, c hashReader, op, p string) error {
	parent, found, err := a.lookup(ctx, c, path.Dir(p))
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

// watch runs fn under WATCH on keys, retrying when another client modified
// them before EXEC
func (a *RedisAdapter) watch(ctx context.Context, op, p string, fn func(tx *goredis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := a.client.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			a.logger.Debug("Redis transaction conflict, retrying",
				zap.String("operation", op),
				zap.Int("attempt", attempt+1))
			continue
		}
		return fserr.Translate(op, p, err)
	}
	return fserr.IO(op, p, goredis.TxFailedErr)
}

// cleanPath converts p to the path used in keys
func cleanPath(p string) string {
	return path.Clean("/" + p)
}

func posixError(op, p string, errno syscall.Errno) error {
	return &os.PathError{Op: op, Path: p, Err: errno}
}

func notFound(op, p string) error {
	return fserr.NoEntry(op, p, posixError("open", p, syscall.ENOENT))
}
