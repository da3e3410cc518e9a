package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edupulse/result-notify-service/environments"
	"github.com/edupulse/result-notify-service/internal/domain"
	"github.com/edupulse/result-notify-service/pkg/logger"
	"github.com/edupulse/result-notify-service/pkg/phone"
)

// Small internal interfaces so we can test without a real DB/gateway/cache.
type deliveryRepository interface {
	Create(ctx context.Context, rec *domain.DeliveryRecord) (string, error)
	Update(ctx context.Context, id string, status domain.DeliveryStatus, gatewayMessageID, errorMessage *string) error
	MarkRetrying(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.DeliveryRecord, error)
	FindByRecipientAndContext(ctx context.Context, recipientID, contextRef string) (*domain.DeliveryRecord, error)
	ListByStatus(ctx context.Context, status *domain.DeliveryStatus, page, pageSize int) ([]domain.DeliveryRecord, int64, error)
	ListByRecipient(ctx context.Context, recipientID string) ([]domain.DeliveryRecord, error)
	ListRetryable(ctx context.Context, recipientID *string) ([]domain.DeliveryRecord, error)
	Stats(ctx context.Context) (pending, sent, failed, retry int64, err error)
}

type smsGateway interface {
	Send(ctx context.Context, phoneNumber, message string) domain.SendResult
	SendBatch(ctx context.Context, phoneNumbers []string, message string) domain.SendResult
}

type cacheClient interface {
	CacheDelivery(ctx context.Context, recordID, gatewayMessageID string, sentAt time.Time) error
	GetAllCachedDeliveries(ctx context.Context) (map[string]*domain.DeliveryCache, error)
}

var ErrNoRecipients = errors.New("recipient list is empty")

// ProgressFunc is invoked after each recipient in a batch is processed.
// It runs synchronously on the dispatch goroutine.
type ProgressFunc func(domain.Progress)

// NotifyService drives bulk SMS dispatch: render, normalize, send, record.
type NotifyService struct {
	repo    deliveryRepository
	gateway smsGateway
	cache   cacheClient // nil when the cache is unavailable
	config  environments.DispatchConfig
}

func NewNotifyService(
	repo deliveryRepository,
	gateway smsGateway,
	cache cacheClient,
	config environments.DispatchConfig,
) *NotifyService {
	return &NotifyService{
		repo:    repo,
		gateway: gateway,
		cache:   cache,
		config:  config,
	}
}

// DispatchBatch sends the rendered template to each recipient in order.
// One recipient's failure never aborts the batch; outcomes are aggregated.
// Sends are deliberately sequential with a fixed delay between recipients
// to stay under the gateway's rate limits.
func (s *NotifyService) DispatchBatch(
	ctx context.Context,
	recipients []domain.Recipient,
	template string,
	contextRef string,
	onProgress ProgressFunc,
) (*domain.BatchResult, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	result := &domain.BatchResult{
		Total:        len(recipients),
		PerRecipient: make([]domain.RecipientOutcome, 0, len(recipients)),
	}

	logger.Infof("Dispatching batch of %d recipient(s) (context: %s)", len(recipients), contextRef)

	for i, recipient := range recipients {
		if ctx.Err() != nil {
			logger.Warnf("Batch dispatch cancelled after %d of %d recipients", i, len(recipients))
			break
		}

		outcome := s.dispatchOne(ctx, recipient, template, contextRef, result)
		result.PerRecipient = append(result.PerRecipient, outcome)

		if outcome.Sent {
			result.Sent++
		} else {
			result.Failed++
		}

		if onProgress != nil {
			onProgress(domain.Progress{
				Current:        i + 1,
				Total:          len(recipients),
				RecipientLabel: recipient.Label(),
			})
		}

		if i < len(recipients)-1 {
			if err := sleepCtx(ctx, s.config.InterMessageDelay); err != nil {
				break
			}
		}
	}

	logger.Infof("Batch complete: %d sent, %d failed of %d", result.Sent, result.Failed, result.Total)

	return result, nil
}

func (s *NotifyService) dispatchOne(
	ctx context.Context,
	recipient domain.Recipient,
	template, contextRef string,
	batch *domain.BatchResult,
) domain.RecipientOutcome {
	message := TruncateSMS(RenderTemplate(template, recipient))

	normalized, err := phone.Normalize(recipient.PhoneNumber)
	if err != nil {
		// No gateway call and no delivery record for an unusable number.
		return domain.RecipientOutcome{
			Label: recipient.Label(),
			Phone: recipient.PhoneNumber,
			Sent:  false,
			Error: "invalid phone number format",
		}
	}

	sendResult := s.gateway.Send(ctx, normalized, message)

	recordID, persistErr := s.recordOutcome(ctx, recipient.ID, normalized, message, contextRef, sendResult)
	if persistErr != nil {
		logger.Errorf("Failed to persist delivery record for %s: %v", recipient.ID, persistErr)
		batch.PersistErrors = append(batch.PersistErrors, persistErr.Error())
	}

	if !sendResult.Success {
		return domain.RecipientOutcome{
			Label: recipient.Label(),
			Phone: normalized,
			Sent:  false,
			Error: sendResult.Error,
		}
	}

	if s.cache != nil && recordID != "" {
		if err := s.cache.CacheDelivery(ctx, recordID, sendResult.GatewayMessageID, time.Now()); err != nil {
			logger.Warnf("Failed to cache delivery %s: %v", recordID, err)
		}
	}

	return domain.RecipientOutcome{
		Label: recipient.Label(),
		Phone: normalized,
		Sent:  true,
	}
}

// recordOutcome creates or updates the delivery record for this
// recipient+context. The send already happened; a write failure here is
// bookkeeping loss, not a delivery failure.
func (s *NotifyService) recordOutcome(
	ctx context.Context,
	recipientID, phoneNumber, message, contextRef string,
	sendResult domain.SendResult,
) (string, error) {
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

	existing, err := s.repo.FindByRecipientAndContext(ctx, recipientID, contextRef)
	if err != nil {
		return "", err
	}

	if existing != nil {
		if err := s.repo.Update(ctx, existing.ID, status, gatewayMessageID, errorMessage); err != nil {
			return existing.ID, err
		}
		return existing.ID, nil
	}

	rec := &domain.DeliveryRecord{
		RecipientID:      recipientID,
		PhoneNumber:      phoneNumber,
		Message:          message,
		ContextRef:       contextRef,
		Status:           status,
		GatewayMessageID: gatewayMessageID,
		ErrorMessage:     errorMessage,
	}

	return s.repo.Create(ctx, rec)
}

// TestSend dispatches a single ad-hoc message, recording it like any other
// delivery so the audit trail stays complete.
func (s *NotifyService) TestSend(ctx context.Context, rawPhone, message string) (*domain.RecipientOutcome, error) {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, fmt.Errorf("invalid phone number format: %q", rawPhone)
	}

	message = TruncateSMS(message)
	sendResult := s.gateway.Send(ctx, normalized, message)

	contextRef := "test:" + normalized
	if _, persistErr := s.recordOutcome(ctx, "test", normalized, message, contextRef, sendResult); persistErr != nil {
		logger.Errorf("Failed to persist test delivery record: %v", persistErr)
	}

	outcome := &domain.RecipientOutcome{
		Label: "test",
		Phone: normalized,
		Sent:  sendResult.Success,
		Error: sendResult.Error,
	}

	return outcome, nil
}

// Broadcast pushes one message to many numbers in a single gateway call.
// Invalid numbers are dropped up front; no delivery records are written on
// this path since the gateway reports no per-recipient outcome.
func (s *NotifyService) Broadcast(ctx context.Context, rawPhones []string, message string) (*domain.BroadcastResult, error) {
	if len(rawPhones) == 0 {
		return nil, ErrNoRecipients
	}

	normalized := make([]string, 0, len(rawPhones))
	skipped := 0
	for _, raw := range rawPhones {
		p, err := phone.Normalize(raw)
		if err != nil {
			skipped++
			continue
		}
		normalized = append(normalized, p)
	}

	if len(normalized) == 0 {
		return nil, errors.New("no valid phone numbers in broadcast list")
	}

	sendResult := s.gateway.SendBatch(ctx, normalized, TruncateSMS(message))

	return &domain.BroadcastResult{
		Requested:        len(rawPhones),
		Delivered:        len(normalized),
		Skipped:          skipped,
		Success:          sendResult.Success,
		GatewayMessageID: sendResult.GatewayMessageID,
		Error:            sendResult.Error,
	}, nil
}

func (s *NotifyService) GetDelivery(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *NotifyService) ListDeliveries(
	ctx context.Context,
	status *domain.DeliveryStatus,
	page, pageSize int,
) ([]domain.DeliveryRecord, int64, error) {
	return s.repo.ListByStatus(ctx, status, page, pageSize)
}

func (s *NotifyService) ListDeliveriesByRecipient(ctx context.Context, recipientID string) ([]domain.DeliveryRecord, error) {
	return s.repo.ListByRecipient(ctx, recipientID)
}

func (s *NotifyService) Stats(ctx context.Context) (pending, sent, failed, retry int64, err error) {
	return s.repo.Stats(ctx)
}

func (s *NotifyService) GetCachedDeliveries(ctx context.Context) (map[string]*domain.DeliveryCache, error) {
	if s.cache == nil {
		return nil, errors.New("cache client not configured")
	}
	return s.cache.GetAllCachedDeliveries(ctx)
}

// sleepCtx pauses for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
