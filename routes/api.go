package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/edupulse/result-notify-service/environments"
	"github.com/edupulse/result-notify-service/handlers"
	"github.com/edupulse/result-notify-service/internal/middlewares"
)

// RegisterRoutes wires all endpoints and their API-key groups.
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	notifyHandler *handlers.NotifyHandler,
	deliveryHandler *handlers.DeliveryHandler,
	sweeperHandler *handlers.SweeperHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Dispatch endpoints used by the admin backend.
	notify := e.Group("", middlewares.APIKeyAuth(cfg.Auth.NotifyAPIKey))
	notify.POST("/notify-results", notifyHandler.NotifyResults)
	notify.POST("/notify-custom", notifyHandler.NotifyCustom)
	notify.POST("/test-sms", notifyHandler.TestSMS)
	notify.POST("/broadcast", notifyHandler.Broadcast)

	v1 := e.Group("/api/v1", middlewares.APIKeyAuth(cfg.Auth.AdminAPIKey))

	deliveries := v1.Group("/deliveries")
	deliveries.GET("", deliveryHandler.ListDeliveries)
	deliveries.GET("/stats", deliveryHandler.GetStats)
	deliveries.GET("/cached", deliveryHandler.GetCachedDeliveries)
	deliveries.GET("/recipient/:id", deliveryHandler.ListByRecipient)
	deliveries.POST("/retry", deliveryHandler.RetryAllFailed)
	deliveries.GET("/:id", deliveryHandler.GetDelivery)
	deliveries.POST("/:id/retry", deliveryHandler.RetryDelivery)

	sweeper := v1.Group("/sweeper")
	sweeper.POST("/start", sweeperHandler.StartSweeper)
	sweeper.POST("/stop", sweeperHandler.StopSweeper)
	sweeper.GET("/status", sweeperHandler.GetSweeperStatus)
}
