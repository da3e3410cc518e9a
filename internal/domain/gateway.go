package domain

// GatewayRequest is the SMS provider's send payload. The provider takes a
// recipient list even for a single destination.
type GatewayRequest struct {
	To         []string `json:"to"`
	Message    string   `json:"message"`
	SenderName string   `json:"sender_name"`
	Route      string   `json:"route"`
}

type GatewayResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    GatewaySendData `json:"data"`
}

type GatewaySendData struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// SendResult is the gateway client's per-call outcome.
type SendResult struct {
	Success          bool
	GatewayMessageID string
	Error            string
}
