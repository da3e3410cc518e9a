package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/edupulse/result-notify-service/internal/domain"
	"github.com/edupulse/result-notify-service/pkg/logger"
)

// retryRunner is the slice of RetryCoordinator the sweeper needs; a small
// fake stands in for it in tests.
type retryRunner interface {
	RetryAllFailed(ctx context.Context, recipientID *string) (*domain.RetrySummary, error)
}

// Sweeper periodically resubmits failed deliveries via the retry
// coordinator. One sweep runs at a time; there is no overlap because the
// loop is single-goroutine.
type Sweeper struct {
	coordinator    retryRunner
	interval       time.Duration
	alertWebhook   string
	alertThreshold int

	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	lastRunAt        time.Time
	lastAlertSentAt  time.Time
	runsCount        int64
	retriesSucceeded int64

	// Consecutive sweeps in which every eligible retry failed.
	consecutiveAllFailCount int
}

func NewSweeper(coordinator retryRunner, interval time.Duration) *Sweeper {
	return &Sweeper{
		coordinator: coordinator,
		interval:    interval,
	}
}

func (s *Sweeper) StartWithParams(
	ctx context.Context,
	interval time.Duration,
	alertWebhook string,
	alertThreshold int,
) error {
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	s.mu.Lock()
	s.interval = interval
	s.alertWebhook = alertWebhook
	s.alertThreshold = alertThreshold
	s.consecutiveAllFailCount = 0
	s.mu.Unlock()

	return s.Start(ctx)
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Retry sweeper is already running")
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.mu.Unlock()

	logger.Infof("Starting retry sweeper with interval: %v", s.interval)

	go s.run(ctx)

	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneChan)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)

		case <-s.stopChan:
			logger.Warnf("Retry sweeper received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Retry sweeper context cancelled")
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runsCount++
	runNumber := s.runsCount
	alertWebhook := s.alertWebhook
	alertThreshold := s.alertThreshold
	s.mu.Unlock()

	logger.Infof("[Sweep #%d] Retrying failed deliveries", runNumber)

	summary, err := s.coordinator.RetryAllFailed(ctx, nil)
	if err != nil {
		logger.Errorf("[Sweep #%d] Retry sweep failed: %v", runNumber, err)
		return
	}

	if summary.Total == 0 {
		logger.Debugf("[Sweep #%d] Nothing eligible for retry", runNumber)
		return
	}

	s.mu.Lock()
	s.retriesSucceeded += int64(summary.Successful)

	if summary.Successful == 0 {
		s.consecutiveAllFailCount++
		logger.Warnf("[Sweep #%d] All %d retries failed (consecutive count: %d/%d)",
			runNumber, summary.Total, s.consecutiveAllFailCount, alertThreshold)

		if s.consecutiveAllFailCount >= alertThreshold && alertThreshold > 0 && alertWebhook != "" {
			go s.sendAlert(alertWebhook, runNumber, s.consecutiveAllFailCount, summary.Total)
		}
	} else {
		s.consecutiveAllFailCount = 0
	}
	s.mu.Unlock()

	logger.Infof("[Sweep #%d] %d successful, %d failed of %d",
		runNumber, summary.Successful, summary.Failed, summary.Total)
}

func (s *Sweeper) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Retry sweeper is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	close(stopChan)
	<-doneChan

	logger.Infof("Retry sweeper stopped")
	return nil
}

func (s *Sweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Sweeper) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Running:                 s.running,
		LastRunAt:               s.lastRunAt,
		RunsCount:               s.runsCount,
		RetriesSucceeded:        s.retriesSucceeded,
		Interval:                s.interval,
		ConsecutiveAllFailCount: s.consecutiveAllFailCount,
		LastAlertSentAt:         s.lastAlertSentAt,
	}

	if s.running && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

func (s *Sweeper) sendAlert(webhookURL string, runNumber int64, consecutiveFailures, recordsInSweep int) {
	alertPayload := map[string]any{
		"alert":               "consecutive_all_fail",
		"sweepNumber":         runNumber,
		"consecutiveFailures": consecutiveFailures,
		"recordsInSweep":      recordsInSweep,
		"timestamp":           time.Now().Format(time.RFC3339),
		"message": fmt.Sprintf(
			"All %d delivery retries failed for %d consecutive sweeps",
			recordsInSweep,
			consecutiveFailures,
		),
	}

	jsonData, err := json.Marshal(alertPayload)
	if err != nil {
		logger.Errorf("Failed to marshal alert payload: %v", err)
		return
	}

	resp, err := http.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		logger.Errorf("Failed to send alert to webhook: %v", err)
		return
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("Failed to close alert webhook response body: %v", err)
		}
	}()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		s.mu.Lock()
		s.lastAlertSentAt = time.Now()
		s.mu.Unlock()
		logger.Infof("Alert sent to %s (consecutive failures: %d)", webhookURL, consecutiveFailures)
	} else {
		logger.Warnf("Alert webhook returned status %d", resp.StatusCode)
	}
}

type Status struct {
	Running                 bool          `json:"running"`
	LastRunAt               time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt               time.Time     `json:"nextRunAt,omitempty"`
	RunsCount               int64         `json:"runsCount"`
	RetriesSucceeded        int64         `json:"retriesSucceeded"`
	Interval                time.Duration `json:"interval"`
	ConsecutiveAllFailCount int           `json:"consecutiveAllFailCount"`
	LastAlertSentAt         time.Time     `json:"lastAlertSentAt,omitempty"`
}
