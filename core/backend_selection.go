package core

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/backends/localfs"
	"github.com/ebogdum/dualfs/backends/noop"
	redisbackend "github.com/ebogdum/dualfs/backends/redis"
	s3backend "github.com/ebogdum/dualfs/backends/s3"
	sqlitebackend "github.com/ebogdum/dualfs/backends/sqlite"
	"github.com/ebogdum/dualfs/config"
)

// NewBackend builds the backend selected by cfg.Type
func NewBackend(cfg config.BackendConfig, logger *zap.Logger) (backends.Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Type {
	case config.BackendLocalFS:
		adapter, err := localfs.NewLocalFSAdapter(cfg.LocalFSRootPath, cfg.CallbackWorkers, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local filesystem backend: %w", err)
		}
		logger.Info("Local filesystem backend initialized",
			zap.String("root_path", cfg.LocalFSRootPath),
			zap.Int64("callback_workers", cfg.CallbackWorkers))
		return adapter, nil

	case config.BackendS3:
		adapter, err := s3backend.NewS3Adapter(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 backend: %w", err)
		}
		logger.Info("S3 backend initialized",
			zap.String("bucket", cfg.S3BucketName),
			zap.String("region", cfg.S3Region))
		return adapter, nil

	case config.BackendSQLite:
		adapter, err := sqlitebackend.NewSQLiteAdapter(cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
		}
		logger.Info("SQLite backend initialized", zap.String("path", cfg.SQLitePath))
		return adapter, nil

	case config.BackendRedis:
		adapter, err := redisbackend.NewRedisAdapter(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis backend: %w", err)
		}
		logger.Info("Redis backend initialized",
			zap.String("addr", cfg.RedisAddr),
			zap.Int("db", cfg.RedisDB))
		return adapter, nil

	case config.BackendNoop:
		return noop.NewNoopAdapter(), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
