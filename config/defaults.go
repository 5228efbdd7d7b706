package config

// DefaultAppConfig returns an AppConfig struct with sensible default values
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9090",
			RateLimit:  10,
			RateBurst:  20,
		},
		Backend: BackendConfig{
			Type:                   BackendLocalFS,
			LocalFSRootPath:        "",
			CallbackWorkers:        16,
			S3Region:               "us-east-1",
			S3ServerSideEncryption: "AES256", // Default to AES256 for security
			SQLitePath:             "./dualfs.sqlite3",
			RedisAddr:              "localhost:6379",
			RedisDB:                0,
			RedisKeyPrefix:         "dualfs:",
		},
	}
}
