// Command vector-spaced serves the conversion pipeline over HTTP with
// Prometheus metrics, optional bearer auth and a bounded on-disk archive of
// converted outputs.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/bybunni/vector-space/internal/api"
	"github.com/bybunni/vector-space/internal/archive"
	"github.com/bybunni/vector-space/internal/auth"
	"github.com/bybunni/vector-space/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("VECTOR_SPACE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	srvCfg := loadServerConfig(logger)
	arch := loadArchive(logger)

	if err := arch.Check(); err != nil {
		logger.Warn("archive directory not writable, archiving disabled until fixed", "dir", arch.Dir(), "error", err)
	}

	srv := api.NewServer(addr, logger, authCfg, srvCfg, arch, web.Content)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "archive_dir", arch.Dir())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("VECTOR_SPACE_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("VECTOR_SPACE_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("VECTOR_SPACE_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("VECTOR_SPACE_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadServerConfig(logger *slog.Logger) api.Config {
	cfg := api.Config{
		Workers:          runtime.NumCPU(),
		MaxUploadBytes:   64 << 20,
		MaxConcurrentPer: 4,
	}

	if v := os.Getenv("VECTOR_SPACE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid VECTOR_SPACE_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	if v := os.Getenv("VECTOR_SPACE_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			logger.Warn("invalid VECTOR_SPACE_MAX_UPLOAD_BYTES value, using default", "value", v, "default", cfg.MaxUploadBytes)
		} else {
			cfg.MaxUploadBytes = n
		}
	}

	if v := os.Getenv("VECTOR_SPACE_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid VECTOR_SPACE_MAX_CONCURRENT value, using default", "value", v, "default", cfg.MaxConcurrentPer)
		} else {
			cfg.MaxConcurrentPer = n
		}
	}

	if v := os.Getenv("VECTOR_SPACE_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid VECTOR_SPACE_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("server config",
		"workers", cfg.Workers,
		"max_upload_bytes", cfg.MaxUploadBytes,
		"max_concurrent_per_ip", cfg.MaxConcurrentPer,
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}

func loadArchive(logger *slog.Logger) *archive.Archive {
	dir := "/tmp/vector-space/archive"
	maxFiles := 10

	if v := os.Getenv("VECTOR_SPACE_ARCHIVE_DIR"); v != "" {
		dir = v
	}

	if v := os.Getenv("VECTOR_SPACE_ARCHIVE_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid VECTOR_SPACE_ARCHIVE_MAX_FILES value, using default", "value", v, "default", maxFiles)
		} else {
			maxFiles = n
		}
	}

	logger.Info("archive config", "dir", dir, "max_files", maxFiles)
	return archive.New(dir, maxFiles)
}
