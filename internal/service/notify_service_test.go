package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/edupulse/result-notify-service/environments"
	"github.com/edupulse/result-notify-service/internal/domain"
)

//
// Test fakes – shared by the dispatcher and retry coordinator tests.
//

type fakeDeliveryRepo struct {
	records map[string]*domain.DeliveryRecord

	nextID      int
	createCalls int
	updateCalls []fakeUpdateCall
	retryMarks  []string

	failCreate bool
	failUpdate bool
}

type fakeUpdateCall struct {
	id     string
	status domain.DeliveryStatus
	gwID   *string
	errMsg *string
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{records: make(map[string]*domain.DeliveryRecord)}
}

func (r *fakeDeliveryRepo) Create(ctx context.Context, rec *domain.DeliveryRecord) (string, error) {
	r.createCalls++
	if r.failCreate {
		return "", errors.New("simulated store failure")
	}

	r.nextID++
	id := fmt.Sprintf("rec-%03d", r.nextID)

	stored := *rec
	stored.ID = id
	stored.Attempts = 1
	stored.LastAttemptAt = time.Now()
	r.records[id] = &stored

	return id, nil
}

func (r *fakeDeliveryRepo) Update(
	ctx context.Context,
	id string,
	status domain.DeliveryStatus,
	gatewayMessageID, errorMessage *string,
) error {
	r.updateCalls = append(r.updateCalls, fakeUpdateCall{id: id, status: status, gwID: gatewayMessageID, errMsg: errorMessage})
	if r.failUpdate {
		return errors.New("simulated store failure")
	}

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("no delivery record found with id %s", id)
	}

	rec.Status = status
	rec.GatewayMessageID = gatewayMessageID
	rec.ErrorMessage = errorMessage
	rec.Attempts++
	rec.LastAttemptAt = time.Now()
	return nil
}

func (r *fakeDeliveryRepo) MarkRetrying(ctx context.Context, id string) error {
	r.retryMarks = append(r.retryMarks, id)
	if rec, ok := r.records[id]; ok {
		rec.Status = domain.StatusRetry
	}
	return nil
}

func (r *fakeDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (r *fakeDeliveryRepo) FindByRecipientAndContext(
	ctx context.Context,
	recipientID, contextRef string,
) (*domain.DeliveryRecord, error) {
	for _, rec := range r.records {
		if rec.RecipientID == recipientID && rec.ContextRef == contextRef {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeDeliveryRepo) ListByStatus(
	ctx context.Context,
	status *domain.DeliveryStatus,
	page, pageSize int,
) ([]domain.DeliveryRecord, int64, error) {
	return nil, 0, nil
}

func (r *fakeDeliveryRepo) ListByRecipient(ctx context.Context, recipientID string) ([]domain.DeliveryRecord, error) {
	return nil, nil
}

func (r *fakeDeliveryRepo) ListRetryable(ctx context.Context, recipientID *string) ([]domain.DeliveryRecord, error) {
	var out []domain.DeliveryRecord
	for _, rec := range r.records {
		if rec.Status != domain.StatusFailed || rec.Attempts >= domain.MaxAttempts {
			continue
		}
		if recipientID != nil && rec.RecipientID != *recipientID {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (r *fakeDeliveryRepo) Stats(ctx context.Context) (pending, sent, failed, retry int64, err error) {
	return 0, 0, 0, 0, nil
}

type fakeGateway struct {
	sendCalls    int
	batchCalls   int
	lastPhone    string
	lastMessage  string
	lastBatch    []string
	failPhones   map[string]string // phone -> error text
	failAll      string            // error text applied to every send
	responseGWID string
}

func (g *fakeGateway) Send(ctx context.Context, phoneNumber, message string) domain.SendResult {
	g.sendCalls++
	g.lastPhone = phoneNumber
	g.lastMessage = message

	if g.failAll != "" {
		return domain.SendResult{Success: false, Error: g.failAll}
	}
	if errText, ok := g.failPhones[phoneNumber]; ok {
		return domain.SendResult{Success: false, Error: errText}
	}

	gwID := g.responseGWID
	if gwID == "" {
		gwID = "gw-test"
	}
	return domain.SendResult{Success: true, GatewayMessageID: gwID}
}

func (g *fakeGateway) SendBatch(ctx context.Context, phoneNumbers []string, message string) domain.SendResult {
	g.batchCalls++
	g.lastBatch = phoneNumbers
	g.lastMessage = message

	if g.failAll != "" {
		return domain.SendResult{Success: false, Error: g.failAll}
	}
	return domain.SendResult{Success: true, GatewayMessageID: "gw-batch"}
}

type fakeCache struct {
	entries map[string]*domain.DeliveryCache
}

func (c *fakeCache) CacheDelivery(ctx context.Context, recordID, gatewayMessageID string, sentAt time.Time) error {
	if c.entries == nil {
		c.entries = make(map[string]*domain.DeliveryCache)
	}
	c.entries[recordID] = &domain.DeliveryCache{GatewayMessageID: gatewayMessageID, SentAt: sentAt}
	return nil
}

func (c *fakeCache) GetAllCachedDeliveries(ctx context.Context) (map[string]*domain.DeliveryCache, error) {
	return c.entries, nil
}

func testDispatchConfig() environments.DispatchConfig {
	return environments.DispatchConfig{
		InterMessageDelay: 0,
		RetryDelay:        0,
	}
}

//
// Tests
//

func TestDispatchBatch_EndToEnd(t *testing.T) {
	ctx := context.Background()

	repo := newFakeDeliveryRepo()
	gw := &fakeGateway{}
	cache := &fakeCache{}

	svc := NewNotifyService(repo, gw, cache, testDispatchConfig())

	recipients := []domain.Recipient{
		{ID: "stu-1", FirstName: "Ada", LastName: "Okafor", PhoneNumber: "08031111111"},
		{ID: "stu-2", FirstName: "Bola", LastName: "Adeyemi", PhoneNumber: "invalid"},
		{ID: "stu-3", FirstName: "Chidi", LastName: "Eze", PhoneNumber: "08033333333"},
	}

	result, err := svc.DispatchBatch(ctx, recipients, "Hi {firstName}", "results:2024", nil)
	if err != nil {
		t.Fatalf("DispatchBatch returned error: %v", err)
	}

	if result.Total != 3 || result.Sent != 2 || result.Failed != 1 {
		t.Fatalf("expected total=3 sent=2 failed=1, got total=%d sent=%d failed=%d",
			result.Total, result.Sent, result.Failed)
	}

	if !strings.Contains(result.PerRecipient[1].Error, "invalid phone number format") {
		t.Fatalf("expected invalid phone error for recipient 2, got %q", result.PerRecipient[1].Error)
	}

	// The invalid number never reaches the gateway or the store.
	if gw.sendCalls != 2 {
		t.Fatalf("expected 2 gateway calls, got %d", gw.sendCalls)
	}
	if repo.createCalls != 2 {
		t.Fatalf("expected 2 delivery records, got %d creates", repo.createCalls)
	}

	// Successful sends land in the cache.
	if len(cache.entries) != 2 {
		t.Fatalf("expected 2 cached deliveries, got %d", len(cache.entries))
	}
}

func TestDispatchBatch_RendersAndTruncatesTemplate(t *testing.T) {
	ctx := context.Background()

	repo := newFakeDeliveryRepo()
	gw := &fakeGateway{}

	svc := NewNotifyService(repo, gw, nil, testDispatchConfig())

	recipients := []domain.Recipient{
		{
			ID:          "stu-1",
			FirstName:   "Ada",
			LastName:    "Okafor",
			PhoneNumber: "08031111111",
			Fields:      map[string]string{"score": "72.50", "cgpa": "4.21"},
		},
	}

	template := "Dear {firstName} {lastName}, score {score}, CGPA {cgpa}. " + strings.Repeat("x", 200)

	if _, err := svc.DispatchBatch(ctx, recipients, template, "results:2024", nil); err != nil {
		t.Fatalf("DispatchBatch returned error: %v", err)
	}

	if !strings.HasPrefix(gw.lastMessage, "Dear Ada Okafor, score 72.50, CGPA 4.21.") {
		t.Fatalf("placeholders not substituted, got %q", gw.lastMessage)
	}
	if len(gw.lastMessage) != domain.SMSMaxLength {
		t.Fatalf("expected message truncated to %d chars, got %d", domain.SMSMaxLength, len(gw.lastMessage))
	}

	if gw.lastPhone != "2348031111111" {
		t.Fatalf("expected normalized phone, got %q", gw.lastPhone)
	}
}

func TestDispatchBatch_GatewayFailureRecordsFailed(t *testing.T) {
	ctx := context.Background()

	repo := newFakeDeliveryRepo()
	gw := &fakeGateway{failAll: "gateway returned status 500"}

	svc := NewNotifyService(repo, gw, nil, testDispatchConfig())

	recipients := []domain.Recipient{
		{ID: "stu-1", FirstName: "Ada", PhoneNumber: "08031111111"},
	}

	result, err := svc.DispatchBatch(ctx, recipients, "Hi {firstName}", "custom:exam", nil)
	if err != nil {
		t.Fatalf("DispatchBatch returned error: %v", err)
	}

	if result.Failed != 1 || result.Sent != 0 {
		t.Fatalf("expected 1 failure, got sent=%d failed=%d", result.Sent, result.Failed)
	}

	rec, _ := repo.FindByRecipientAndContext(ctx, "stu-1", "custom:exam")
	if rec == nil {
		t.Fatalf("expected a delivery record for the failed send")
	}
	if rec.Status != domain.StatusFailed {
		t.Fatalf("expected status failed, got %s", rec.Status)
	}
	if rec.ErrorMessage == nil || *rec.ErrorMessage == "" {
		t.Fatalf("expected errorMessage to be set on a failed record")
	}
}

func TestDispatchBatch_ExistingRecordUpdatedNotDuplicated(t *testing.T) {
	ctx := context.Background()

	repo := newFakeDeliveryRepo()
	gw := &fakeGateway{}

	svc := NewNotifyService(repo, gw, nil, testDispatchConfig())

	recipients := []domain.Recipient{
		{ID: "stu-1", FirstName: "Ada", PhoneNumber: "08031111111"},
	}

	if _, err := svc.DispatchBatch(ctx, recipients, "Hi {firstName}", "results:2024", nil); err != nil {
		t.Fatalf("first dispatch returned error: %v", err)
	}
	if _, err := svc.DispatchBatch(ctx, recipients, "Hi {firstName}", "results:2024", nil); err != nil {
		t.Fatalf("second dispatch returned error: %v", err)
	}

	if repo.createCalls != 1 {
		t.Fatalf("expected a single record per recipient+context, got %d creates", repo.createCalls)
	}
	if len(repo.updateCalls) != 1 {
		t.Fatalf("expected the second dispatch to update in place, got %d updates", len(repo.updateCalls))
	}

	rec, _ := repo.FindByRecipientAndContext(ctx, "stu-1", "results:2024")
	if rec.Attempts != 2 {
		t.Fatalf("expected attempts=2 after redispatch, got %d", rec.Attempts)
	}
}

func TestDispatchBatch_ProgressCallbackSequence(t *testing.T) {
	ctx := context.Background()

	repo := newFakeDeliveryRepo()
	gw := &fakeGateway{}

	svc := NewNotifyService(repo, gw, nil, testDispatchConfig())

	recipients := []domain.Recipient{
		{ID: "stu-1", FirstName: "Ada", PhoneNumber: "08031111111"},
		{ID: "stu-2", FirstName: "Bola", PhoneNumber: "invalid"},
		{ID: "stu-3", FirstName: "Chidi", PhoneNumber: "08033333333"},
	}

	var progress []domain.Progress
	onProgress := func(p domain.Progress) { progress = append(progress, p) }

	if _, err := svc.DispatchBatch(ctx, recipients, "Hi {firstName}", "results:2024", onProgress); err != nil {
		t.Fatalf("DispatchBatch returned error: %v", err)
	}

	if len(progress) != 3 {
		t.Fatalf("expected 3 progress callbacks, got %d", len(progress))
	}

	for i, p := range progress {
		if p.Current != i+1 || p.Total != 3 {
			t.Fatalf("progress %d: expected current=%d total=3, got current=%d total=%d",
				i, i+1, p.Current, p.Total)
		}
	}

	if progress[0].RecipientLabel != "Ada" {
		t.Fatalf("expected first label 'Ada', got %q", progress[0].RecipientLabel)
	}
}

func TestDispatchBatch_StoreFailureDoesNotFlipOutcome(t *testing.T) {
	ctx := context.Background()

	repo := newFakeDeliveryRepo()
	repo.failCreate = true
	gw := &fakeGateway{}

	svc := NewNotifyService(repo, gw, nil, testDispatchConfig())

	recipients := []domain.Recipient{
		{ID: "stu-1", FirstName: "Ada", PhoneNumber: "08031111111"},
	}

	result, err := svc.DispatchBatch(ctx, recipients, "Hi {firstName}", "results:2024", nil)
	if err != nil {
		t.Fatalf("DispatchBatch returned error: %v", err)
	}

	// The message was accepted at the gateway; losing the audit row must
	// not turn it into a reported failure.
	if result.Sent != 1 || result.Failed != 0 {
		t.Fatalf("expected sent=1 failed=0 despite store failure, got sent=%d failed=%d",
			result.Sent, result.Failed)
	}
	if len(result.PersistErrors) != 1 {
		t.Fatalf("expected 1 persist error to be surfaced, got %d", len(result.PersistErrors))
	}
}

func TestDispatchBatch_EmptyRecipientList(t *testing.T) {
	svc := NewNotifyService(newFakeDeliveryRepo(), &fakeGateway{}, nil, testDispatchConfig())

	if _, err := svc.DispatchBatch(context.Background(), nil, "Hi", "x", nil); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestDispatchBatch_CancelledContextStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	repo := newFakeDeliveryRepo()
	gw := &fakeGateway{}

	svc := NewNotifyService(repo, gw, nil, testDispatchConfig())

	recipients := []domain.Recipient{
		{ID: "stu-1", FirstName: "Ada", PhoneNumber: "08031111111"},
		{ID: "stu-2", FirstName: "Bola", PhoneNumber: "08032222222"},
	}

	var once bool
	onProgress := func(p domain.Progress) {
		if !once {
			once = true
			cancel()
		}
	}

	result, err := svc.DispatchBatch(ctx, recipients, "Hi {firstName}", "results:2024", onProgress)
	if err != nil {
		t.Fatalf("DispatchBatch returned error: %v", err)
	}

	if gw.sendCalls != 1 {
		t.Fatalf("expected dispatch to stop after cancellation, got %d gateway calls", gw.sendCalls)
	}
	if len(result.PerRecipient) != 1 {
		t.Fatalf("expected partial results for 1 recipient, got %d", len(result.PerRecipient))
	}
}

func TestTestSend_InvalidPhone(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewNotifyService(newFakeDeliveryRepo(), gw, nil, testDispatchConfig())

	_, err := svc.TestSend(context.Background(), "123", "hello")
	if err == nil {
		t.Fatalf("expected error for invalid phone")
	}
	if gw.sendCalls != 0 {
		t.Fatalf("expected no gateway calls for invalid phone, got %d", gw.sendCalls)
	}
}

func TestBroadcast_DropsInvalidNumbers(t *testing.T) {
	repo := newFakeDeliveryRepo()
	gw := &fakeGateway{}

	svc := NewNotifyService(repo, gw, nil, testDispatchConfig())

	result, err := svc.Broadcast(context.Background(), []string{"08031111111", "bogus", "08033333333"}, "Exam hall moved")
	if err != nil {
		t.Fatalf("Broadcast returned error: %v", err)
	}

	if result.Delivered != 2 || result.Skipped != 1 {
		t.Fatalf("expected delivered=2 skipped=1, got delivered=%d skipped=%d", result.Delivered, result.Skipped)
	}
	if gw.batchCalls != 1 {
		t.Fatalf("expected a single batch gateway call, got %d", gw.batchCalls)
	}
	if repo.createCalls != 0 {
		t.Fatalf("broadcast must not write delivery records, got %d creates", repo.createCalls)
	}
}
