package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/edupulse/result-notify-service/environments"
	"github.com/edupulse/result-notify-service/pkg/redis"
)

type HealthHandler struct {
	db           *sqlx.DB
	cache        *redis.Client
	gatewayCfg   environments.GatewayConfig
	checkTimeout time.Duration
}

func NewHealthHandler(db *sqlx.DB, cache *redis.Client, gatewayCfg environments.GatewayConfig) *HealthHandler {
	return &HealthHandler{
		db:           db,
		cache:        cache,
		gatewayCfg:   gatewayCfg,
		checkTimeout: 2 * time.Second,
	}
}

// Health godoc
// @Summary Health check
// @Description Overall status plus configuration/connectivity of each external dependency
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"

	dbStatus := "up"
	if h.db == nil {
		dbStatus = "down"
		overallStatus = "down"
	} else if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "down"
		overallStatus = "down"
	}

	cacheStatus := "disabled"
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			cacheStatus = "down"
			overallStatus = "degraded"
		} else {
			cacheStatus = "up"
		}
	}

	gatewayConfigured := h.gatewayCfg.APIKey != "" && h.gatewayCfg.BaseURL != ""
	if !gatewayConfigured && overallStatus == "ok" {
		overallStatus = "degraded"
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"database": map[string]any{
				"configured": h.db != nil,
				"status":     dbStatus,
			},
			"cache": map[string]any{
				"configured": h.cache != nil,
				"status":     cacheStatus,
			},
			"smsGateway": map[string]any{
				"configured": gatewayConfigured,
				"senderName": h.gatewayCfg.SenderName,
			},
		},
	})
}
