package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/edupulse/result-notify-service/environments"
	"github.com/edupulse/result-notify-service/handlers"
	"github.com/edupulse/result-notify-service/internal/repository"
	"github.com/edupulse/result-notify-service/internal/scheduler"
	"github.com/edupulse/result-notify-service/internal/service"
	"github.com/edupulse/result-notify-service/pkg/database"
	"github.com/edupulse/result-notify-service/pkg/gateway"
	"github.com/edupulse/result-notify-service/pkg/logger"
	"github.com/edupulse/result-notify-service/pkg/redis"
	"github.com/edupulse/result-notify-service/pkg/validator"
	"github.com/edupulse/result-notify-service/routes"

	_ "github.com/edupulse/result-notify-service/docs" // swagger docs
)

// @title Result Notify Service API
// @version 1.0
// @description Exam-results SMS notification service

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	logger.Init()

	cfg := environments.Load()

	// Hard-fail if required secrets are missing
	if cfg.Gateway.APIKey == "" {
		logger.Fatalf("SMS_GATEWAY_API_KEY is required but not set")
	}
	if cfg.Auth.NotifyAPIKey == "" {
		logger.Fatalf("NOTIFY_API_KEY is required but not set")
	}
	if cfg.Auth.AdminAPIKey == "" {
		logger.Fatalf("ADMIN_API_KEY is required but not set")
	}

	logger.Infof("Starting Result Notify Service...")

	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Cache is best-effort; the service runs without it.
	var cacheClient *redis.Client
	cacheClient, err = redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Redis not available, delivery caching disabled: %v", err)
		cacheClient = nil
	}

	gatewayClient := gateway.NewClient(cfg.Gateway)
	logger.Infof("SMS gateway configured: %s (sender: %s, route: %s)",
		cfg.Gateway.BaseURL, cfg.Gateway.SenderName, cfg.Gateway.Route)

	deliveryRepo := repository.NewDeliveryRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	var notifyService *service.NotifyService
	if cacheClient != nil {
		notifyService = service.NewNotifyService(deliveryRepo, gatewayClient, cacheClient, cfg.Dispatch)
	} else {
		notifyService = service.NewNotifyService(deliveryRepo, gatewayClient, nil, cfg.Dispatch)
	}

	coordinator := service.NewRetryCoordinator(deliveryRepo, gatewayClient, cfg.Dispatch.RetryDelay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := scheduler.NewSweeper(coordinator, cfg.Sweeper.Interval)

	healthHandler := handlers.NewHealthHandler(db, cacheClient, cfg.Gateway)
	notifyHandler := handlers.NewNotifyHandler(notifyService, studentRepo, cfg.Dispatch)
	deliveryHandler := handlers.NewDeliveryHandler(notifyService, coordinator)
	sweeperHandler := handlers.NewSweeperHandler(sweeper, ctx, cfg)

	if os.Getenv("AUTO_START_SWEEPER") != "false" {
		logger.Infof("Auto-starting retry sweeper...")
		if err := sweeper.StartWithParams(ctx, cfg.Sweeper.Interval, cfg.Sweeper.AlertWebhookURL, cfg.Sweeper.AlertThreshold); err != nil {
			logger.Warnf("Failed to auto-start retry sweeper: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"x-api-key",
		},
	}))

	routes.RegisterRoutes(e, healthHandler, notifyHandler, deliveryHandler, sweeperHandler, cfg)

	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	cancel()

	if sweeper.IsRunning() {
		logger.Infof("Stopping retry sweeper...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- sweeper.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping retry sweeper: %v", err)
			}
		case <-stopCtx.Done():
			logger.Warnf("Retry sweeper stop timeout, forcing shutdown")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	if cacheClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := cacheClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
