// Command devbackend serves the Eventora REST API for local development
// and end-to-end tests of the client. It keeps data in memory unless
// DB_HOST is set, in which case it migrates and uses PostgreSQL.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Shivanand-hulikatti/eventora/internal/backend/database"
	"github.com/Shivanand-hulikatti/eventora/internal/backend/handler"
	"github.com/Shivanand-hulikatti/eventora/internal/backend/repository"
	"github.com/Shivanand-hulikatti/eventora/internal/backend/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("devbackend_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ────────────────────────────────────────────────────────
	var repo repository.Repository
	if os.Getenv("DB_HOST") != "" {
		cfg := database.ConfigFromEnv()
		if err := database.Migrate(cfg.DSN(), logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pool, err := database.NewPool(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		repo = repository.NewPostgres(pool)
		logger.Info("storage_ready", "kind", "postgres", "host", cfg.Host)
	} else {
		repo = repository.NewMemory()
		logger.Info("storage_ready", "kind", "memory")
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	secret := getEnv("JWT_SECRET", "dev-secret-change-me")
	events := service.NewEventService(repo, logger)
	auth := service.NewAuthService(repo, []byte(secret), logger)
	h := handler.New(events, auth, handler.Options{
		RedirectLists: getBool("REDIRECT_LISTS"),
		DevAuthorize:  !getBool("DISABLE_DEV_OAUTH"),
		AllowOrigin:   os.Getenv("ALLOW_ORIGIN"),
		Logger:        logger,
	})

	// ── 3. Start server with graceful shutdown ────────────────────────────
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "addr", "http://localhost:"+port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server_stopped")
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
