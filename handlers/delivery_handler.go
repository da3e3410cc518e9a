package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/edupulse/result-notify-service/internal/domain"
	"github.com/edupulse/result-notify-service/internal/service"
	"github.com/edupulse/result-notify-service/pkg/response"
)

type DeliveryHandler struct {
	service     *service.NotifyService
	coordinator *service.RetryCoordinator
}

func NewDeliveryHandler(svc *service.NotifyService, coordinator *service.RetryCoordinator) *DeliveryHandler {
	return &DeliveryHandler{
		service:     svc,
		coordinator: coordinator,
	}
}

// ListDeliveries godoc
// @Summary List delivery records
// @Description Paginated delivery records with an optional status filter
// @Tags deliveries
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param status query string false "Filter by status (pending, sent, failed, retry)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/deliveries [get]
func (h *DeliveryHandler) ListDeliveries(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	var status *domain.DeliveryStatus
	if statusStr := c.QueryParam("status"); statusStr != "" {
		parsed := domain.DeliveryStatus(statusStr)
		status = &parsed
	}

	records, totalCount, err := h.service.ListDeliveries(c.Request().Context(), status, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, records, page, pageSize, totalCount)
}

// GetDelivery godoc
// @Summary Get one delivery record
// @Tags deliveries
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path string true "Delivery record ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/deliveries/{id} [get]
func (h *DeliveryHandler) GetDelivery(c echo.Context) error {
	rec, err := h.service.GetDelivery(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.InternalServerError(c, err)
	}
	if rec == nil {
		return response.NotFound(c, "delivery record not found")
	}

	return response.Ok(c, rec)
}

// ListByRecipient godoc
// @Summary List delivery records for one recipient
// @Tags deliveries
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path string true "Recipient ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/deliveries/recipient/{id} [get]
func (h *DeliveryHandler) ListByRecipient(c echo.Context) error {
	records, err := h.service.ListDeliveriesByRecipient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, records)
}

// GetStats godoc
// @Summary Delivery record counts by status
// @Tags deliveries
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/deliveries/stats [get]
func (h *DeliveryHandler) GetStats(c echo.Context) error {
	pending, sent, failed, retry, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"pending": pending,
		"sent":    sent,
		"failed":  failed,
		"retry":   retry,
		"total":   pending + sent + failed + retry,
	})
}

// GetCachedDeliveries godoc
// @Summary Recently delivered messages from the cache
// @Tags deliveries
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/deliveries/cached [get]
func (h *DeliveryHandler) GetCachedDeliveries(c echo.Context) error {
	cached, err := h.service.GetCachedDeliveries(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, cached)
}

// RetryDelivery godoc
// @Summary Retry one failed delivery
// @Description Resubmits the record through the gateway unless it is at the attempt ceiling
// @Tags deliveries
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path string true "Delivery record ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/deliveries/{id}/retry [post]
func (h *DeliveryHandler) RetryDelivery(c echo.Context) error {
	result, err := h.coordinator.RetryOne(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.BadRequest(c, err)
	}

	if !result.Success {
		return c.JSON(http.StatusOK, map[string]any{
			"success": false,
			"error":   result.Error,
		})
	}

	return response.OkWithMessage(c, "Delivery retried successfully", map[string]any{
		"gatewayMessageId": result.GatewayMessageID,
	})
}

// RetryAllFailed godoc
// @Summary Retry every eligible failed delivery
// @Description Sweeps failed records under the attempt ceiling, optionally scoped to one recipient
// @Tags deliveries
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param recipientId query string false "Limit the sweep to one recipient"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/deliveries/retry [post]
func (h *DeliveryHandler) RetryAllFailed(c echo.Context) error {
	var recipientID *string
	if id := c.QueryParam("recipientId"); id != "" {
		recipientID = &id
	}

	summary, err := h.coordinator.RetryAllFailed(c.Request().Context(), recipientID)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, summary)
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	page := defaultPage
	if pageStr := c.QueryParam("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	pageSize := defaultPageSize
	if pageSizeStr := c.QueryParam("pageSize"); pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}
		pageSize = ps
	}

	return page, pageSize, nil
}
