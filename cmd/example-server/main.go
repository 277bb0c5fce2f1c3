// Package main is an example server wired with the request hook.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/requesthook"
	"github.com/vyrodovalexey/requesthook/internal/config"
	"github.com/vyrodovalexey/requesthook/observers"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	cfg := loadConfig(flags.configPath)
	logger := initLogger(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	hook := buildHook(cfg, logger)
	srv := buildServer(cfg, logger, hook)

	run(srv, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("REQUESTHOOK_CONFIG_PATH", ""),
		"Path to configuration file (optional)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("example-server version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// loadConfig loads the configuration, falling back to defaults when no
// path is given.
func loadConfig(path string) *config.Config {
	if path == "" {
		return config.Default()
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// initLogger initializes the logger.
func initLogger(cfg config.LoggingConfig) *zap.Logger {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", cfg.Level, err)
		os.Exit(1)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = cfg.Format
	if cfg.Format == "console" {
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return logger
}

// buildHook builds the request hook with the bundled observers.
func buildHook(cfg *config.Config, logger *zap.Logger) *requesthook.Hook {
	builder := requesthook.New().
		WithLogger(logger).
		Register(observers.NewLogging(logger)).
		Register(observers.NewMetrics(prometheus.DefaultRegisterer)).
		Register(observers.NewTracing(nil))

	for _, path := range cfg.Hook.ExcludePaths {
		builder.Exclude(path)
	}
	for _, pattern := range cfg.Hook.ExcludePatterns {
		builder.ExcludeRegex(pattern)
	}

	hook, err := builder.Build()
	if err != nil {
		logger.Fatal("failed to build request hook", zap.Error(err))
	}

	return hook
}

// buildServer builds the HTTP server with the demo routes.
func buildServer(cfg *config.Config, logger *zap.Logger, hook *requesthook.Hook) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/hey", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Hi there!")
	})
	mux.HandleFunc("/bye", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Goodbye!")
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	logger.Info("configured request hook",
		zap.Strings("exclude_paths", cfg.Hook.ExcludePaths),
		zap.Strings("exclude_patterns", cfg.Hook.ExcludePatterns),
	)

	return &http.Server{
		Addr:              cfg.Listen,
		Handler:           hook.Wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// run starts the server and blocks until shutdown.
func run(srv *http.Server, logger *zap.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("version", version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
