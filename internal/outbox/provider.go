// Package outbox implements reliable notification delivery: a scheduler
// that idempotently materializes reminder entries from events and
// deadlines, and a worker that delivers pending entries through a push
// provider with bounded retries.
package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Notification is the payload handed to the external push provider.
type Notification struct {
	TargetUserID string            `json:"target_user_id"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Data         map[string]string `json:"data,omitempty"`
	ScheduledFor time.Time         `json:"scheduled_for"`
}

// PushProvider delivers one notification to one target. Provider
// responses reduce to success or error per target.
type PushProvider interface {
	Send(ctx context.Context, n Notification) error
}

// HTTPPushProvider posts notifications to an external push gateway.
type HTTPPushProvider struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewHTTPPushProvider(endpoint, apiKey string, timeout time.Duration) *HTTPPushProvider {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPushProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

func (p *HTTPPushProvider) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push provider returned status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
