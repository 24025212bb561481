// Package delivery forwards rental events to an external webhook and keeps
// track of the ones that could not be delivered.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pavitra93/colony-rent-manager/shared/metrics"
	"github.com/pavitra93/colony-rent-manager/shared/utils"
)

// WebhookClient posts rental events to $WEBHOOK_ENDPOINT/rental-events
type WebhookClient struct {
	endpoint   string
	httpClient *http.Client
	breaker    *utils.CircuitBreaker

	mutex       sync.RWMutex
	connected   bool
	lastSuccess time.Time
	lastError   string
	sent        int64
	failed      int64
}

// WebhookStatus is the client's connection status
type WebhookStatus struct {
	Connected   bool               `json:"connected"`
	Endpoint    string             `json:"endpoint"`
	LastSuccess *time.Time         `json:"last_success,omitempty"`
	LastError   string             `json:"last_error,omitempty"`
	Sent        int64              `json:"sent"`
	Failed      int64              `json:"failed"`
	Breaker     utils.BreakerStats `json:"breaker"`
}

type webhookPayload struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewWebhookClient creates a new webhook client
func NewWebhookClient(endpoint string) *WebhookClient {
	return &WebhookClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: utils.NewCircuitBreaker("webhook", 5, 30*time.Second),
	}
}

// Send posts one serialized rental event
func (c *WebhookClient) Send(ctx context.Context, eventType string, event []byte) error {
	err := c.breaker.Call(func() error {
		return c.post(ctx, eventType, event)
	})

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err != nil {
		c.failed++
		c.lastError = err.Error()
		metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
		return err
	}

	c.sent++
	c.connected = true
	c.lastSuccess = time.Now()
	c.lastError = ""
	metrics.DeliveriesTotal.WithLabelValues("delivered").Inc()
	return nil
}

func (c *WebhookClient) post(ctx context.Context, eventType string, event []byte) error {
	jsonData, err := json.Marshal(webhookPayload{
		EventType: eventType,
		Data:      json.RawMessage(event),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal rental event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/rental-events", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", eventType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send rental event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Status returns the current connection status
func (c *WebhookClient) Status() WebhookStatus {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	status := WebhookStatus{
		Connected: c.connected,
		Endpoint:  c.endpoint,
		LastError: c.lastError,
		Sent:      c.sent,
		Failed:    c.failed,
		Breaker:   c.breaker.Stats(),
	}
	if !c.lastSuccess.IsZero() {
		last := c.lastSuccess
		status.LastSuccess = &last
	}
	return status
}

// Reconnect checks the webhook's health endpoint and closes the breaker on success
func (c *WebhookClient) Reconnect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			err = fmt.Errorf("health check returned status %d", resp.StatusCode)
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err != nil {
		c.connected = false
		c.lastError = err.Error()
		return err
	}

	c.breaker.Reset()
	c.connected = true
	c.lastSuccess = time.Now()
	c.lastError = ""
	return nil
}
