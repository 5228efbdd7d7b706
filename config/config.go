// Package config provides configuration management for dualfs.
// It handles loading and validating configuration from YAML or JSON files and environment variables.
package config

// AppConfig represents the complete application configuration
type AppConfig struct {
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Backend BackendConfig `koanf:"backend"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig holds metrics server configuration
type MetricsConfig struct {
	ListenAddr string  `koanf:"listen_addr"`
	RateLimit  float64 `koanf:"rate_limit"` // requests per second
	RateBurst  int     `koanf:"rate_burst"`
}

// Backend types
const (
	BackendLocalFS = "localfs"
	BackendS3      = "s3"
	BackendSQLite  = "sqlite"
	BackendRedis   = "redis"
	BackendNoop    = "noop"
)

// BackendConfig holds backend storage configuration
type BackendConfig struct {
	Type            string `koanf:"type"`              // localfs, s3, sqlite, redis or noop
	LocalFSRootPath string `koanf:"localfs_root_path"` // Empty: host paths are used as given
	CallbackWorkers int64  `koanf:"callback_workers"`  // Concurrent callback-mode operations (localfs)

	S3AccessKey            string `koanf:"s3_access_key"`
	S3SecretKey            string `koanf:"s3_secret_key"`
	S3Region               string `koanf:"s3_region"`
	S3BucketName           string `koanf:"s3_bucket_name"`
	S3Endpoint             string `koanf:"s3_endpoint"`               // Custom S3 endpoint (e.g., for MinIO)
	S3ServerSideEncryption string `koanf:"s3_server_side_encryption"` // SSE algorithm (AES256, aws:kms)

	SQLitePath string `koanf:"sqlite_path"`

	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`
}
