package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariesstack/aries-engine/internal/models"
)

// Escalation is the webhook payload posted when an endpoint exhausts its
// remediation attempts.
type Escalation struct {
	Event        string              `json:"event"`
	ServerID     string              `json:"server_id"`
	ServerName   string              `json:"server_name"`
	IP           string              `json:"ip"`
	Status       models.HealthStatus `json:"status"`
	Timestamp    string              `json:"timestamp"`
	FailureCount int                 `json:"failure_count"`
}

// WebhookNotifier posts escalations to a configured HTTP endpoint. With no
// URL configured every notification is a silent no-op.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier builds a notifier. url may be empty.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// NotifyFailure posts a server_failure event. A non-2xx response is an error
// for the caller to log; escalations are not retried.
func (n *WebhookNotifier) NotifyFailure(ctx context.Context, ep models.EndpointRecord, status models.HealthStatus, failureCount int) error {
	if n.url == "" {
		return nil
	}

	payload := Escalation{
		Event:        "server_failure",
		ServerID:     ep.ID,
		ServerName:   ep.DisplayName(),
		IP:           ep.Address,
		Status:       status,
		Timestamp:    time.Now().Format(time.RFC3339),
		FailureCount: failureCount,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode escalation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build escalation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post escalation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("escalation webhook returned %d", resp.StatusCode)
	}
	return nil
}
