package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupulse/result-notify-service/internal/domain"
)

// DeliveryRepository is the durable store of per-recipient send attempts.
type DeliveryRepository struct {
	db *sqlx.DB
}

func NewDeliveryRepository(db *sqlx.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

const deliveryColumns = `id, recipient_id, phone_number, message, context_ref, status,
	attempts, last_attempt_at, error_message, gateway_message_id, created_at, updated_at`

// Create inserts a record reflecting a first attempt and returns its id.
// Attempts starts at 1; the creating dispatch is itself an attempt.
func (r *DeliveryRepository) Create(ctx context.Context, rec *domain.DeliveryRecord) (string, error) {
	id := uuid.NewString()

	query := `
		INSERT INTO delivery_records
			(id, recipient_id, phone_number, message, context_ref, status,
			 attempts, last_attempt_at, error_message, gateway_message_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, CURRENT_TIMESTAMP, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	_, err := r.db.ExecContext(ctx, query,
		id, rec.RecipientID, rec.PhoneNumber, rec.Message, rec.ContextRef,
		rec.Status, rec.ErrorMessage, rec.GatewayMessageID,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create delivery record: %w", err)
	}

	return id, nil
}

// Update records the outcome of one more attempt. The attempt counter is
// bumped inside the UPDATE so concurrent retries on the same record cannot
// lose increments.
func (r *DeliveryRepository) Update(
	ctx context.Context,
	id string,
	status domain.DeliveryStatus,
	gatewayMessageID, errorMessage *string,
) error {
	query := `
		UPDATE delivery_records
		SET status = ?,
		    gateway_message_id = ?,
		    error_message = ?,
		    attempts = attempts + 1,
		    last_attempt_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, status, gatewayMessageID, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update delivery record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no delivery record found with id %s", id)
	}

	return nil
}

// MarkRetrying flags a record as in-flight for a manual retry without
// consuming an attempt; the outcome Update does the bump.
func (r *DeliveryRepository) MarkRetrying(ctx context.Context, id string) error {
	query := `
		UPDATE delivery_records
		SET status = 'retry', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark delivery record as retrying: %w", err)
	}
	return nil
}

func (r *DeliveryRepository) GetByID(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM delivery_records WHERE id = ?", deliveryColumns)

	var rec domain.DeliveryRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get delivery record: %w", err)
	}

	return &rec, nil
}

// FindByRecipientAndContext returns the existing record for a
// recipient+context pair, or nil. Dispatch updates it in place instead of
// creating a second row per retry.
func (r *DeliveryRepository) FindByRecipientAndContext(
	ctx context.Context,
	recipientID, contextRef string,
) (*domain.DeliveryRecord, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM delivery_records WHERE recipient_id = ? AND context_ref = ?",
		deliveryColumns,
	)

	var rec domain.DeliveryRecord
	if err := r.db.GetContext(ctx, &rec, query, recipientID, contextRef); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find delivery record: %w", err)
	}

	return &rec, nil
}

func (r *DeliveryRepository) ListByStatus(
	ctx context.Context,
	status *domain.DeliveryStatus,
	page, pageSize int,
) ([]domain.DeliveryRecord, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	var records []domain.DeliveryRecord

	if status != nil {
		countQuery := "SELECT COUNT(*) FROM delivery_records WHERE status = ?"
		if err := r.db.GetContext(ctx, &totalCount, countQuery, *status); err != nil {
			return nil, 0, fmt.Errorf("failed to count delivery records: %w", err)
		}

		query := fmt.Sprintf(`
			SELECT %s FROM delivery_records
			WHERE status = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`, deliveryColumns)
		if err := r.db.SelectContext(ctx, &records, query, *status, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to list delivery records: %w", err)
		}
	} else {
		countQuery := "SELECT COUNT(*) FROM delivery_records"
		if err := r.db.GetContext(ctx, &totalCount, countQuery); err != nil {
			return nil, 0, fmt.Errorf("failed to count delivery records: %w", err)
		}

		query := fmt.Sprintf(`
			SELECT %s FROM delivery_records
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`, deliveryColumns)
		if err := r.db.SelectContext(ctx, &records, query, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to list delivery records: %w", err)
		}
	}

	return records, totalCount, nil
}

func (r *DeliveryRepository) ListByRecipient(
	ctx context.Context,
	recipientID string,
) ([]domain.DeliveryRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM delivery_records
		WHERE recipient_id = ?
		ORDER BY created_at DESC
	`, deliveryColumns)

	var records []domain.DeliveryRecord
	if err := r.db.SelectContext(ctx, &records, query, recipientID); err != nil {
		return nil, fmt.Errorf("failed to list delivery records by recipient: %w", err)
	}

	return records, nil
}

// ListRetryable returns failed records still under the attempt ceiling,
// optionally scoped to one recipient.
func (r *DeliveryRepository) ListRetryable(
	ctx context.Context,
	recipientID *string,
) ([]domain.DeliveryRecord, error) {
	var records []domain.DeliveryRecord

	if recipientID != nil {
		query := fmt.Sprintf(`
			SELECT %s FROM delivery_records
			WHERE status = 'failed' AND attempts < ? AND recipient_id = ?
			ORDER BY last_attempt_at ASC
		`, deliveryColumns)
		if err := r.db.SelectContext(ctx, &records, query, domain.MaxAttempts, *recipientID); err != nil {
			return nil, fmt.Errorf("failed to list retryable records: %w", err)
		}
		return records, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM delivery_records
		WHERE status = 'failed' AND attempts < ?
		ORDER BY last_attempt_at ASC
	`, deliveryColumns)
	if err := r.db.SelectContext(ctx, &records, query, domain.MaxAttempts); err != nil {
		return nil, fmt.Errorf("failed to list retryable records: %w", err)
	}

	return records, nil
}

func (r *DeliveryRepository) Stats(ctx context.Context) (pending, sent, failed, retry int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0)    AS sent,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)  AS failed,
			COALESCE(SUM(CASE WHEN status = 'retry' THEN 1 ELSE 0 END), 0)   AS retry
		FROM delivery_records
	`

	var stats struct {
		Pending int64 `db:"pending"`
		Sent    int64 `db:"sent"`
		Failed  int64 `db:"failed"`
		Retry   int64 `db:"retry"`
	}

	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get delivery stats: %w", err)
	}

	return stats.Pending, stats.Sent, stats.Failed, stats.Retry, nil
}
