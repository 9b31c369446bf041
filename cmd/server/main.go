package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rpattn/versionaudit/internal/config"
	"github.com/rpattn/versionaudit/internal/db"
	"github.com/rpattn/versionaudit/internal/httpapi"
	"github.com/rpattn/versionaudit/internal/middleware"
	"github.com/rpattn/versionaudit/internal/observability"
	"github.com/rpattn/versionaudit/internal/report"
	"github.com/rpattn/versionaudit/internal/repository"
)

func main() {
	configPath := os.Getenv("VERSIONAUDIT_CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}
	cfg, loaded, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if !loaded {
		logger.Info("no config file found, using defaults and environment", zap.String("path", configPath))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	service := report.NewService(
		repository.NewSchemaRepository(conn.Pool),
		repository.NewDocumentRepository(conn.Pool),
		repository.NewChangeLogRepository(conn.Pool),
		report.WithLogger(logger.Named("report")),
		report.WithWorkers(cfg.Report.Workers),
		report.WithMaxDocuments(cfg.Report.MaxDocuments),
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", middleware.RequestIDHeader},
	})

	api := httpapi.NewHandler(service, logger.Named("http"))
	handler := middleware.RequestID(
		middleware.Logging(logger.Named("access"))(corsHandler.Handler(api)),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting version audit server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server exited")
}
