package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/richway/internal/config"
	"github.com/JonMunkholm/richway/internal/core"
	"github.com/JonMunkholm/richway/internal/logging"
	"github.com/JonMunkholm/richway/internal/mailer"
	"github.com/JonMunkholm/richway/internal/store"
	"github.com/JonMunkholm/richway/internal/web"
)

// storeOpenTimeout bounds connecting to a remote store at startup.
const storeOpenTimeout = 30 * time.Second

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
	slog.Debug("configuration loaded", "config", cfg.String())
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"mail_enabled", cfg.Mail.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	openCtx, cancelOpen := context.WithTimeout(context.Background(), storeOpenTimeout)
	st, err := store.Open(openCtx, cfg)
	cancelOpen()
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	slog.Info("store ready", "backend", st.Backend())

	if !cfg.Mail.Enabled() {
		slog.Warn("EMAIL_USER not set, welcome emails will only be logged")
	}
	tasks := core.NewDispatcher(cfg.Mail.MaxConcurrent, cfg.Mail.SendTimeout)
	submit := core.NewSubmissionService(st, mailer.New(&cfg.Mail), mailer.Compose, tasks)

	server := web.NewServer(cfg, st, submit)
	if server.AdminEnabled() && !cfg.Admin.RequireAPIKey {
		slog.Warn("admin endpoints are unauthenticated; set ADMIN_REQUIRE_API_KEY and ADMIN_API_KEYS to protect them")
	}

	// Graceful shutdown: stop HTTP, let queued emails finish, then close the store.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if pending := tasks.Pending(); pending > 0 {
			slog.Info("waiting for background emails", "pending", pending)
		}
		if err := tasks.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("background emails did not finish in time", "pending", tasks.Pending(), "error", err)
		}

		if err := st.Close(shutdownCtx); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
