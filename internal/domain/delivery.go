package domain

import "time"

type DeliveryStatus string

const (
	StatusPending DeliveryStatus = "pending"
	StatusSent    DeliveryStatus = "sent"
	StatusFailed  DeliveryStatus = "failed"
	StatusRetry   DeliveryStatus = "retry"
)

const (
	// MaxAttempts is the automatic-retry ceiling. Records at or above it
	// stay queryable but are skipped by the retry coordinator.
	MaxAttempts = 3

	// SMSMaxLength is the single-segment SMS length the gateway accepts.
	SMSMaxLength = 160
)

// DeliveryRecord is the per-recipient audit row for one message context.
// Retries mutate the existing row; a new row is never created per attempt.
type DeliveryRecord struct {
	ID               string         `db:"id" json:"id"`
	RecipientID      string         `db:"recipient_id" json:"recipientId"`
	PhoneNumber      string         `db:"phone_number" json:"phoneNumber"`
	Message          string         `db:"message" json:"message"`
	ContextRef       string         `db:"context_ref" json:"contextRef"`
	Status           DeliveryStatus `db:"status" json:"status"`
	Attempts         int            `db:"attempts" json:"attempts"`
	LastAttemptAt    time.Time      `db:"last_attempt_at" json:"lastAttemptAt"`
	ErrorMessage     *string        `db:"error_message" json:"errorMessage,omitempty"`
	GatewayMessageID *string        `db:"gateway_message_id" json:"gatewayMessageId,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updatedAt"`
}

// Recipient is the dispatcher's view of a student. Fields carries
// caller-supplied substitutions such as score or CGPA.
type Recipient struct {
	ID          string            `json:"id"`
	FirstName   string            `json:"firstName"`
	LastName    string            `json:"lastName"`
	PhoneNumber string            `json:"phoneNumber"`
	Fields      map[string]string `json:"fields,omitempty"`
}

func (r Recipient) Label() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

type RecipientOutcome struct {
	Label string `json:"label"`
	Phone string `json:"phone,omitempty"`
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

type BatchResult struct {
	Total        int                `json:"total"`
	Sent         int                `json:"sent"`
	Failed       int                `json:"failed"`
	PerRecipient []RecipientOutcome `json:"perRecipient"`

	// PersistErrors collects delivery-record write failures. They never
	// change a send outcome; the gateway already accepted or rejected
	// the message by the time the store is written.
	PersistErrors []string `json:"persistErrors,omitempty"`
}

type Progress struct {
	Current        int    `json:"current"`
	Total          int    `json:"total"`
	RecipientLabel string `json:"recipientLabel"`
}

type RetrySummary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// BroadcastResult summarizes a single multi-recipient gateway call.
type BroadcastResult struct {
	Requested        int    `json:"requested"`
	Delivered        int    `json:"delivered"`
	Skipped          int    `json:"skipped"`
	Success          bool   `json:"success"`
	GatewayMessageID string `json:"gatewayMessageId,omitempty"`
	Error            string `json:"error,omitempty"`
}

type DeliveryCache struct {
	GatewayMessageID string    `json:"gatewayMessageId"`
	SentAt           time.Time `json:"sentAt"`
}
