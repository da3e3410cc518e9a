package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edupulse/result-notify-service/environments"
	"github.com/edupulse/result-notify-service/internal/scheduler"
	"github.com/edupulse/result-notify-service/pkg/response"
	"github.com/edupulse/result-notify-service/pkg/validator"
)

type SweeperHandler struct {
	sweeper *scheduler.Sweeper
	ctx     context.Context
	config  *environments.Config
}

type StartSweeperRequest struct {
	IntervalMinutes *int `json:"intervalMinutes,omitempty" validate:"omitempty,min=1"`
}

func NewSweeperHandler(
	sweeper *scheduler.Sweeper,
	ctx context.Context,
	cfg *environments.Config,
) *SweeperHandler {
	return &SweeperHandler{
		sweeper: sweeper,
		ctx:     ctx,
		config:  cfg,
	}
}

// StartSweeper godoc
// @Summary Start the retry sweeper
// @Description Starts the background sweep of failed deliveries with an optional interval override
// @Tags sweeper
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param request body StartSweeperRequest false "Sweeper parameters (optional)"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sweeper/start [post]
func (h *SweeperHandler) StartSweeper(c echo.Context) error {
	if h.sweeper.IsRunning() {
		return response.OkWithMessage(c, "Retry sweeper is already running", h.sweeper.GetStatus())
	}

	var req StartSweeperRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	interval := h.config.Sweeper.Interval
	if req.IntervalMinutes != nil {
		interval = time.Duration(*req.IntervalMinutes) * time.Minute
	}

	if err := h.sweeper.StartWithParams(
		h.ctx,
		interval,
		h.config.Sweeper.AlertWebhookURL,
		h.config.Sweeper.AlertThreshold,
	); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Retry sweeper started successfully", h.sweeper.GetStatus())
}

// StopSweeper godoc
// @Summary Stop the retry sweeper
// @Tags sweeper
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sweeper/stop [post]
func (h *SweeperHandler) StopSweeper(c echo.Context) error {
	if !h.sweeper.IsRunning() {
		return response.OkWithMessage(c, "Retry sweeper is already stopped", h.sweeper.GetStatus())
	}

	if err := h.sweeper.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Retry sweeper stopped successfully", h.sweeper.GetStatus())
}

// GetSweeperStatus godoc
// @Summary Retry sweeper status
// @Tags sweeper
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/sweeper/status [get]
func (h *SweeperHandler) GetSweeperStatus(c echo.Context) error {
	return response.Ok(c, h.sweeper.GetStatus())
}
