package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/transaction-manager/internal/config"
	"github.com/Dan9191/transaction-manager/internal/db"
	"github.com/Dan9191/transaction-manager/internal/db/migrate"
	"github.com/Dan9191/transaction-manager/internal/geotz"
	"github.com/Dan9191/transaction-manager/internal/handler"
	"github.com/Dan9191/transaction-manager/internal/middleware"
	"github.com/Dan9191/transaction-manager/internal/models"
	"github.com/Dan9191/transaction-manager/internal/notify"
	"github.com/Dan9191/transaction-manager/internal/repository"
	"github.com/Dan9191/transaction-manager/internal/scheduler"
	"github.com/Dan9191/transaction-manager/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if cfg.MigrateOnStart {
		if err := migrate.Run(cfg.DBConn, "up"); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	conn, err := db.Open(ctx, cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	resolver, err := geotz.NewBoundaryResolver()
	if err != nil {
		logger.Fatalf("Failed to load time zone boundaries: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(conn)
	svc := service.NewService(repo, resolver, models.TransactionFields, logger)
	h := handler.NewHandler(svc, repo, logger, cfg.MaxUploadBytes)

	var reports *cron.Cron
	if cfg.ReportCron != "" {
		if err := svc.ValidateFields(cfg.ReportFields); err != nil {
			logger.Fatalf("Invalid REPORT_FIELDS: %v", err)
		}
		var mailer scheduler.Mailer
		if cfg.MailEnabled() {
			mailer = notify.NewSender(cfg, logger)
		}
		job, err := scheduler.NewDailyReport(svc, mailer, cfg.ReportTimeZone, cfg.ReportFields, cfg.ReportDir, cfg.ReportRecipients, logger)
		if err != nil {
			logger.Fatalf("Failed to configure daily report: %v", err)
		}
		if reports, err = scheduler.Start(cfg.ReportCron, job); err != nil {
			logger.Fatalf("Failed to schedule daily report: %v", err)
		}
	}

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Logger(logger))
	h.RegisterHealth(r)
	api := r.NewRoute().Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	h.Register(api, middleware.RateLimit(cfg.UploadRatePerMinute))
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; authentication is disabled")
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      http.TimeoutHandler(r, cfg.RequestTimeout, "request timed out"),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	if reports != nil {
		<-reports.Stop().Done()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}
