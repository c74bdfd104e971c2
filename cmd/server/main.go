package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/hrdata/internal/config"
	"github.com/JonMunkholm/hrdata/internal/core"
	"github.com/JonMunkholm/hrdata/internal/database"
	"github.com/JonMunkholm/hrdata/internal/database/memory"
	"github.com/JonMunkholm/hrdata/internal/logging"
	"github.com/JonMunkholm/hrdata/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Overload so a local .env wins over stale shell exports.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"max_file_size", cfg.Upload.MaxFileSize,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	records, audits, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer closeStores()

	service, err := core.NewService(records, audits, cfg)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, cfg)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.ActiveUploads(); active > 0 {
			slog.Info("waiting for uploads to complete", "active", active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		closeStores()
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

// openStores returns the record and audit stores for the configured driver
// and a func releasing their resources.
func openStores(ctx context.Context, cfg *config.Config) (core.RecordStore, core.AuditStore, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		slog.Warn("using in-memory stores; data is lost on restart")
		return memory.NewRecordStore(), memory.NewAuditStore(), func() {}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.URL); err != nil {
			return nil, nil, nil, err
		}
		slog.Info("database migrations applied")
	}

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	return database.NewRecordStore(pool), database.NewAuditStore(pool), pool.Close, nil
}
