package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/cuiles/internal/config"
	"github.com/JonMunkholm/cuiles/internal/core"
	_ "github.com/JonMunkholm/cuiles/internal/core/tables" // Register destination tables
	"github.com/JonMunkholm/cuiles/internal/dialect"
	"github.com/JonMunkholm/cuiles/internal/logging"
	"github.com/JonMunkholm/cuiles/internal/pipeline"
	"github.com/JonMunkholm/cuiles/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
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
	slog.Info("configuration loaded", "config", cfg.String())
	if !cfg.Security.RequireAPIKey && cfg.Server.Host != "127.0.0.1" && cfg.Server.Host != "localhost" {
		slog.Warn("conversion API reachable without an API key", "host", cfg.Server.Host)
	}

	service, err := pipeline.NewServiceFromConfig(cfg)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	d, _ := dialect.ByName(cfg.Destination.Dialect)
	if !dialect.DriverRegistered(d.DriverName()) {
		slog.Warn("destination driver not compiled in; conversions will fail",
			"dialect", d.Name(),
			"driver", d.DriverName(),
		)
	}
	slog.Info("tables registered", "count", core.TableCount())

	server := web.NewServer(service, cfg)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Running conversions cannot be cancelled, so wait for them.
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for conversions to complete", "active", status.Active)
			if err := service.Drain(shutdownCtx); err != nil {
				slog.Warn("conversions did not complete in time", "error", err)
			} else {
				slog.Info("all conversions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
