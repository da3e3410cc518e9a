// Package gateway wraps the external SMS provider's HTTP API. The client
// is stateless; retry on rate limiting is handled per call.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/edupulse/result-notify-service/environments"
	"github.com/edupulse/result-notify-service/internal/domain"
	"github.com/edupulse/result-notify-service/pkg/logger"
)

const sendPath = "/sms/send"

type Client struct {
	httpClient *resty.Client
	senderName string
	route      string
}

func NewClient(cfg environments.GatewayConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryBackoff).
		SetRetryMaxWaitTime(cfg.RetryBackoff).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.APIKey).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only rate limiting is transient; everything else goes to
			// the manual retry path.
			return err == nil && r.StatusCode() == http.StatusTooManyRequests
		})

	return &Client{
		httpClient: client,
		senderName: cfg.SenderName,
		route:      cfg.Route,
	}
}

// Send delivers one message to one normalized phone number.
func (c *Client) Send(ctx context.Context, phoneNumber, message string) domain.SendResult {
	return c.post(ctx, []string{phoneNumber}, message)
}

// SendBatch delivers one message to many numbers in a single provider call.
// No per-recipient delivery tracking is possible on this path.
func (c *Client) SendBatch(ctx context.Context, phoneNumbers []string, message string) domain.SendResult {
	return c.post(ctx, phoneNumbers, message)
}

func (c *Client) post(ctx context.Context, to []string, message string) domain.SendResult {
	payload := domain.GatewayRequest{
		To:         to,
		Message:    message,
		SenderName: c.senderName,
		Route:      c.route,
	}

	var gatewayResp domain.GatewayResponse

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&gatewayResp).
		Post(sendPath)

	duration := time.Since(startTime)

	if err != nil {
		return domain.SendResult{
			Success: false,
			Error:   fmt.Sprintf("failed to reach SMS gateway: %v", err),
		}
	}

	logger.Infof("Gateway send to %d recipient(s) completed in %v (status: %d)",
		len(to), duration, resp.StatusCode())

	if !resp.IsSuccess() {
		errText := resp.String()
		if errText == "" {
			errText = fmt.Sprintf("gateway returned status %d", resp.StatusCode())
		}
		return domain.SendResult{Success: false, Error: errText}
	}

	messageID := gatewayResp.Data.MessageID
	if messageID == "" {
		messageID = gatewayResp.Data.ID
	}

	return domain.SendResult{
		Success:          true,
		GatewayMessageID: messageID,
	}
}
