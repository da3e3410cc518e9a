package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/edupulse/result-notify-service/environments"
	"github.com/edupulse/result-notify-service/internal/domain"
	"github.com/edupulse/result-notify-service/internal/service"
	"github.com/edupulse/result-notify-service/pkg/logger"
	"github.com/edupulse/result-notify-service/pkg/response"
	"github.com/edupulse/result-notify-service/pkg/validator"
)

// studentRegistry is the slice of StudentRepository the notify endpoints
// need.
type studentRegistry interface {
	GetWithUnpublishedResults(ctx context.Context) ([]domain.StudentWithResult, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Student, error)
	MarkResultsPublished(ctx context.Context, resultIDs []int64) (int64, error)
}

type NotifyHandler struct {
	service  *service.NotifyService
	students studentRegistry
	config   environments.DispatchConfig
}

func NewNotifyHandler(
	svc *service.NotifyService,
	students studentRegistry,
	config environments.DispatchConfig,
) *NotifyHandler {
	return &NotifyHandler{
		service:  svc,
		students: students,
		config:   config,
	}
}

type NotifyCustomRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,dive,required"`
	Title      string   `json:"title" validate:"required,max=60"`
	Message    string   `json:"message" validate:"required,max=160"`
}

type TestSMSRequest struct {
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message" validate:"required,max=160"`
}

type BroadcastRequest struct {
	Phones  []string `json:"phones" validate:"required,min=1,dive,required"`
	Message string   `json:"message" validate:"required,max=160"`
}

type NotifyResponse struct {
	Success          bool                      `json:"success"`
	ResultsPublished int64                     `json:"resultsPublished,omitempty"`
	StudentsNotified int                       `json:"studentsNotified"`
	SMSSent          int                       `json:"smsSent"`
	SMSFailed        int                       `json:"smsFailed"`
	Total            int                       `json:"total"`
	SuccessDetails   []domain.RecipientOutcome `json:"successDetails"`
	FailureDetails   []domain.RecipientOutcome `json:"failureDetails"`
	PersistErrors    []string                  `json:"persistErrors,omitempty"`
}

// NotifyResults godoc
// @Summary Publish pending results and notify students by SMS
// @Description Finds students with unpublished results, marks the results published and dispatches result SMS to each
// @Tags notify
// @Accept json
// @Produce json
// @Param x-api-key header string true "Notify API key"
// @Success 200 {object} NotifyResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /notify-results [post]
func (h *NotifyHandler) NotifyResults(c echo.Context) error {
	ctx := c.Request().Context()

	rows, err := h.students.GetWithUnpublishedResults(ctx)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	if len(rows) == 0 {
		return c.JSON(http.StatusOK, NotifyResponse{
			Success:        true,
			SuccessDetails: []domain.RecipientOutcome{},
			FailureDetails: []domain.RecipientOutcome{},
		})
	}

	session := rows[0].Session
	recipients := make([]domain.Recipient, 0, len(rows))
	resultIDs := make([]int64, 0, len(rows))

	for _, row := range rows {
		recipients = append(recipients, domain.Recipient{
			ID:          row.Student.ID,
			FirstName:   row.FirstName,
			LastName:    row.LastName,
			PhoneNumber: row.PhoneNumber,
			Fields: map[string]string{
				"session": row.Session,
				"score":   strconv.FormatFloat(row.Score, 'f', 2, 64),
				"cgpa":    strconv.FormatFloat(row.CGPA, 'f', 2, 64),
			},
		})
		resultIDs = append(resultIDs, row.ResultID)
	}

	// Publish first; the results become visible whether or not every SMS
	// lands. Failed sends stay retryable through the delivery records.
	published, err := h.students.MarkResultsPublished(ctx, resultIDs)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	contextRef := "results:" + session
	batch, err := h.service.DispatchBatch(ctx, recipients, h.config.ResultsTemplate, contextRef, h.logProgress)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	resp := buildNotifyResponse(batch)
	resp.ResultsPublished = published

	return c.JSON(http.StatusOK, resp)
}

// NotifyCustom godoc
// @Summary Send a custom SMS to selected students
// @Description Dispatches "<title>: <message>" to each listed student
// @Tags notify
// @Accept json
// @Produce json
// @Param x-api-key header string true "Notify API key"
// @Param request body NotifyCustomRequest true "Announcement to send"
// @Success 200 {object} NotifyResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /notify-custom [post]
func (h *NotifyHandler) NotifyCustom(c echo.Context) error {
	var req NotifyCustomRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	ctx := c.Request().Context()

	students, err := h.students.GetByIDs(ctx, req.StudentIDs)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	if len(students) == 0 {
		return response.BadRequestWithMessage(c, "none of the given student ids exist")
	}

	recipients := make([]domain.Recipient, 0, len(students))
	for _, s := range students {
		recipients = append(recipients, domain.Recipient{
			ID:          s.ID,
			FirstName:   s.FirstName,
			LastName:    s.LastName,
			PhoneNumber: s.PhoneNumber,
			Fields: map[string]string{
				"title":   req.Title,
				"message": req.Message,
			},
		})
	}

	contextRef := "custom:" + req.Title
	batch, err := h.service.DispatchBatch(ctx, recipients, "{title}: {message}", contextRef, h.logProgress)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return c.JSON(http.StatusOK, buildNotifyResponse(batch))
}

// TestSMS godoc
// @Summary Send a single test SMS
// @Tags notify
// @Accept json
// @Produce json
// @Param x-api-key header string true "Notify API key"
// @Param request body TestSMSRequest true "Test message"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /test-sms [post]
func (h *NotifyHandler) TestSMS(c echo.Context) error {
	var req TestSMSRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	outcome, err := h.service.TestSend(c.Request().Context(), req.Phone, req.Message)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if !outcome.Sent {
		return c.JSON(http.StatusOK, map[string]any{
			"success": false,
			"error":   outcome.Error,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Test SMS sent to %s", outcome.Phone),
	})
}

// Broadcast godoc
// @Summary Send one SMS to many numbers in a single gateway call
// @Description No per-recipient delivery tracking on this path
// @Tags notify
// @Accept json
// @Produce json
// @Param x-api-key header string true "Notify API key"
// @Param request body BroadcastRequest true "Broadcast message"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /broadcast [post]
func (h *NotifyHandler) Broadcast(c echo.Context) error {
	var req BroadcastRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	result, err := h.service.Broadcast(c.Request().Context(), req.Phones, req.Message)
	if err != nil {
		return response.BadRequest(c, err)
	}

	return response.Ok(c, result)
}

func (h *NotifyHandler) logProgress(p domain.Progress) {
	logger.Debugf("Dispatch progress %d/%d (%s)", p.Current, p.Total, p.RecipientLabel)
}

func buildNotifyResponse(batch *domain.BatchResult) NotifyResponse {
	resp := NotifyResponse{
		Success:          true,
		StudentsNotified: batch.Sent,
		SMSSent:          batch.Sent,
		SMSFailed:        batch.Failed,
		Total:            batch.Total,
		SuccessDetails:   []domain.RecipientOutcome{},
		FailureDetails:   []domain.RecipientOutcome{},
		PersistErrors:    batch.PersistErrors,
	}

	for _, outcome := range batch.PerRecipient {
		if outcome.Sent {
			resp.SuccessDetails = append(resp.SuccessDetails, outcome)
		} else {
			resp.FailureDetails = append(resp.FailureDetails, outcome)
		}
	}

	return resp
}
