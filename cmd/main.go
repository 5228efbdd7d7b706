package main

// dualfs runs filesystem operations against a configured backend, in either
// calling convention, from the command line or from YAML scripts.
//
// Usage:
//   dualfs readFile /etc/hostname
//   dualfs writeFile --callback /tmp/x.txt hello
//   dualfs run smoke.yaml --metrics
//   dualfs serve
//   dualfs config validate

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/config"
	"github.com/ebogdum/dualfs/core"
	"github.com/ebogdum/dualfs/core/log"
	"github.com/ebogdum/dualfs/server"
)

var rootCmd = &cobra.Command{
	Use:   "dualfs",
	Short: "dualfs - filesystem operations in blocking and callback form",
	Long: `dualfs exposes a small set of filesystem operations (read, write, unlink,
partial read, existence, mtime, mkdir, rmdir) over pluggable backends, each
callable as a blocking call or with a completion callback.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve health, capabilities and metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the dualfs configuration and display the loaded settings",
	Args:  cobra.NoArgs,
	RunE:  validateConfig,
}

var configFilePath string

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "", "Path to configuration file")

	configCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd, configCmd, newRunCmd())
	for _, cmd := range operationCommands() {
		rootCmd.AddCommand(cmd)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime holds what every operational command needs
type runtime struct {
	cfg        config.AppConfig
	logger     *zap.Logger
	dispatcher *core.Dispatcher
	close      func()
}

// setup loads configuration and builds the logger, backend and dispatcher
func setup() (*runtime, error) {
	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := log.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	backend, err := core.NewBackend(cfg.Backend, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &runtime{
		cfg:        cfg,
		logger:     logger,
		dispatcher: core.NewDispatcher(backend, logger),
		close: func() {
			if err := backend.Close(); err != nil {
				logger.Warn("Failed to close backend", zap.Error(err))
			}
			// stderr sync fails on some platforms; nothing to report
			_ = logger.Sync()
		},
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := signalContext()
	defer cancel()

	router := server.NewRouter(rt.dispatcher, rt.cfg.Metrics, rt.logger)
	return server.Serve(ctx, rt.cfg.Metrics.ListenAddr, router, rt.logger)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Validating configuration...")

	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		fmt.Fprintf(out, "Configuration validation failed: %v\n", err)
		return err
	}

	fmt.Fprintln(out, "Configuration is valid")
	fmt.Fprintf(out, "Log: level=%s format=%s\n", cfg.Log.Level, cfg.Log.Format)
	fmt.Fprintf(out, "Metrics Address: %s\n", cfg.Metrics.ListenAddr)
	fmt.Fprintf(out, "Backend: %s\n", cfg.Backend.Type)
	fmt.Fprintf(out, "Callback Workers: %d\n", cfg.Backend.CallbackWorkers)
	switch cfg.Backend.Type {
	case config.BackendLocalFS:
		fmt.Fprintf(out, "Local FS Root: %q\n", cfg.Backend.LocalFSRootPath)
	case config.BackendS3:
		fmt.Fprintf(out, "S3 Bucket: %s\n", cfg.Backend.S3BucketName)
		fmt.Fprintf(out, "S3 Region: %s\n", cfg.Backend.S3Region)
		if cfg.Backend.S3Endpoint != "" {
			fmt.Fprintf(out, "S3 Endpoint: %s\n", cfg.Backend.S3Endpoint)
		}
		fmt.Fprintf(out, "S3 Access Key: %s\n", maskSecret(cfg.Backend.S3AccessKey))
	case config.BackendSQLite:
		fmt.Fprintf(out, "SQLite Path: %s\n", cfg.Backend.SQLitePath)
	case config.BackendRedis:
		fmt.Fprintf(out, "Redis Address: %s (db %d)\n", cfg.Backend.RedisAddr, cfg.Backend.RedisDB)
		fmt.Fprintf(out, "Redis Key Prefix: %s\n", cfg.Backend.RedisKeyPrefix)
	}

	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > 8 {
		return s[:4] + "***"
	}
	return "***"
}
