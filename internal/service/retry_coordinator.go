package service

import (
	"context"
	"fmt"
	"time"

	"github.com/edupulse/result-notify-service/internal/domain"
	"github.com/edupulse/result-notify-service/pkg/logger"
)

// RetryCoordinator resubmits failed deliveries that are still under the
// attempt ceiling. It works off persisted records only and never touches
// in-flight batches.
type RetryCoordinator struct {
	repo       deliveryRepository
	gateway    smsGateway
	retryDelay time.Duration
}

func NewRetryCoordinator(repo deliveryRepository, gateway smsGateway, retryDelay time.Duration) *RetryCoordinator {
	return &RetryCoordinator{
		repo:       repo,
		gateway:    gateway,
		retryDelay: retryDelay,
	}
}

// RetryOne resubmits a single record. Records at the attempt ceiling are
// rejected before any gateway contact.
func (c *RetryCoordinator) RetryOne(ctx context.Context, recordID string) (domain.SendResult, error) {
	rec, err := c.repo.GetByID(ctx, recordID)
	if err != nil {
		return domain.SendResult{}, err
	}
	if rec == nil {
		return domain.SendResult{}, fmt.Errorf("no delivery record found with id %s", recordID)
	}

	if rec.Attempts >= domain.MaxAttempts {
		return domain.SendResult{
			Success: false,
			Error:   "Maximum retry attempts reached",
		}, nil
	}

	if err := c.repo.MarkRetrying(ctx, recordID); err != nil {
		logger.Warnf("Failed to mark record %s as retrying: %v", recordID, err)
	}

	sendResult := c.gateway.Send(ctx, rec.PhoneNumber, rec.Message)

	status := domain.StatusSent
	var gatewayMessageID, errorMessage *string
	if sendResult.Success {
		if sendResult.GatewayMessageID != "" {
			gatewayMessageID = &sendResult.GatewayMessageID
		}
	} else {
		status = domain.StatusFailed
		errorMessage = &sendResult.Error
	}

	if err := c.repo.Update(ctx, recordID, status, gatewayMessageID, errorMessage); err != nil {
		// The send outcome stands; the store is an audit trail.
		logger.Errorf("Failed to update delivery record %s after retry: %v", recordID, err)
	}

	return sendResult, nil
}

// RetryAllFailed sweeps retry-eligible failed records, optionally scoped to
// one recipient. Retries run sequentially with a fixed pause between them;
// individual failures are collected, never raised.
func (c *RetryCoordinator) RetryAllFailed(ctx context.Context, recipientID *string) (*domain.RetrySummary, error) {
	records, err := c.repo.ListRetryable(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable records: %w", err)
	}

	summary := &domain.RetrySummary{Total: len(records)}

	if len(records) == 0 {
		return summary, nil
	}

	logger.Infof("Retrying %d failed delivery record(s)", len(records))

	for i, rec := range records {
		if ctx.Err() != nil {
			logger.Warnf("Retry sweep cancelled after %d of %d records", i, len(records))
			break
		}

		sendResult, err := c.RetryOne(ctx, rec.ID)
		switch {
		case err != nil:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("record %s: %v", rec.ID, err))
		case !sendResult.Success:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("record %s: %s", rec.ID, sendResult.Error))
		default:
			summary.Successful++
		}

		if i < len(records)-1 {
			if err := sleepCtx(ctx, c.retryDelay); err != nil {
				break
			}
		}
	}

	logger.Infof("Retry sweep complete: %d successful, %d failed of %d",
		summary.Successful, summary.Failed, summary.Total)

	return summary, nil
}
