package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crucial707/hci-inventory/internal/config"
	"github.com/crucial707/hci-inventory/internal/db"
	"github.com/crucial707/hci-inventory/internal/inventory"
	"github.com/crucial707/hci-inventory/internal/logging"
	"github.com/crucial707/hci-inventory/internal/repo"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; real env vars win over the file.
	envErr := godotenv.Load()

	// Load configuration
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if envErr == nil {
		slog.Info("loaded .env file")
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, database, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open inventory store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	if database != nil {
		defer database.Close()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(store, cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	slog.Info("starting server",
		"port", cfg.Port,
		"env", cfg.Env,
		"store", cfg.StoreDriver,
		"tls", cfg.TLSCertFile != "")

	if cfg.TLSCertFile != "" {
		err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore returns the configured record store. For postgres it also returns
// the connection so main can close it.
func openStore(ctx context.Context, cfg config.Config) (inventory.Store, *sql.DB, error) {
	if cfg.StoreDriver != "postgres" {
		slog.Info("using JSON file store", "path", cfg.DataFile)
		return repo.NewJSONStore(cfg.DataFile), nil, nil
	}

	if err := db.Run(cfg.PostgresURL()); err != nil {
		return nil, nil, err
	}
	database, err := db.Connect(ctx,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBUser,
		cfg.DBPass,
		db.Options{MaxOpenConns: cfg.DBMaxOpenConns, MaxIdleConns: cfg.DBMaxIdleConns},
	)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("successfully connected to the database", "host", cfg.DBHost, "name", cfg.DBName)
	return repo.NewInventoryRepo(database), database, nil
}
