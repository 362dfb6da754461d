package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/SscSPs/ledgerbook/internal/core/services"
	"github.com/SscSPs/ledgerbook/internal/handlers"
	"github.com/SscSPs/ledgerbook/internal/middleware"
	"github.com/SscSPs/ledgerbook/internal/outbox"
	"github.com/SscSPs/ledgerbook/internal/platform/config"
	"github.com/SscSPs/ledgerbook/internal/platform/logging"
	"github.com/SscSPs/ledgerbook/internal/platform/messaging"
	"github.com/SscSPs/ledgerbook/internal/repositories/database/pgsql"
	"github.com/SscSPs/ledgerbook/pkg/database"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Running database migrations...")
	applied, err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
	if err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if applied {
		logger.Info("Database migrations applied successfully.")
	} else {
		logger.Info("No new migrations to apply.")
	}

	dbPool, err := database.NewPgxPool(appCtx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	repos := pgsql.NewRepositoryProvider(dbPool)
	serviceContainer := services.NewServiceContainer(repos)

	var wg sync.WaitGroup
	var poller *outbox.Poller
	var producer *messaging.LedgerEventProducer
	if cfg.Kafka.Enabled {
		producer, err = messaging.NewLedgerEventProducer(logger, cfg.Kafka)
		if err != nil {
			logger.Error("Failed to initialize ledger event producer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		poller, err = outbox.NewPoller(cfg.Outbox, repos.TxManager, repos.OutboxRepo, producer, logger)
		if err != nil {
			logger.Error("Failed to initialize outbox poller", slog.String("error", err.Error()))
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Start(appCtx)
		}()
	} else {
		logger.Warn("Kafka disabled, ledger events stay pending in the outbox")
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := handlers.RegisterRoutes(r, cfg, serviceContainer, dbPool); err != nil {
		logger.Error("Failed to register routes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	exitCode := 0
	select {
	case <-appCtx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		exitCode = 1
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	wg.Wait()
	if poller != nil {
		poller.Stop()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("Error closing ledger event producer", slog.String("error", err.Error()))
		}
	}

	logger.Info("Shutdown complete")
	if exitCode != 0 {
		database.ClosePgxPool(dbPool)
		os.Exit(exitCode)
	}
}
