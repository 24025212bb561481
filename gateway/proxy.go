package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/colony-rent-manager/shared/utils"
)

// hopHeaders are not forwarded in either direction
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"Content-Length":    true,
}

// ServiceClient handles HTTP communication with a backend service
type ServiceClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	breaker    *utils.CircuitBreaker
}

// ServiceClients holds all service clients
type ServiceClients struct {
	ColonyService        *ServiceClient
	NotifierService      *ServiceClient
	RetryConsumerService *ServiceClient
}

// ServiceHealth is one entry of /health/services
type ServiceHealth struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Note    string `json:"note,omitempty"`
}

// NewServiceClient creates a new service client
func NewServiceClient(name, baseURL string) *ServiceClient {
	return &ServiceClient{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: utils.NewCircuitBreaker(name, 5, 30*time.Second),
	}
}

// ProxyRequest forwards the request to the service with the caller's identity attached
func (sc *ServiceClient) ProxyRequest(c *gin.Context) {
	targetURL := sc.baseURL + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, c.Request.Body)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to create request")
		return
	}
	req.ContentLength = c.Request.ContentLength

	for key, values := range c.Request.Header {
		if hopHeaders[key] {
			continue
		}
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	// identity headers are only ever set by the gateway
	req.Header.Del("X-User-ID")
	req.Header.Del("X-User-Email")
	if userID := c.GetString("user_id"); userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if email := c.GetString("email"); email != "" {
		req.Header.Set("X-User-Email", email)
	}

	var resp *http.Response
	err = sc.breaker.Call(func() error {
		var doErr error
		resp, doErr = sc.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%s returned status %d", sc.name, resp.StatusCode)
		}
		return nil
	})
	if errors.Is(err, utils.ErrCircuitOpen) || errors.Is(err, utils.ErrTooManyRequests) {
		utils.ServiceUnavailableResponse(c, sc.name+" is unavailable")
		return
	}
	if resp == nil {
		logrus.WithError(err).WithField("service", sc.name).Error("Failed to communicate with service")
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to communicate with service")
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if hopHeaders[key] {
			continue
		}
		for _, value := range values {
			c.Writer.Header().Add(key, value)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		logrus.WithError(err).WithField("service", sc.name).Warn("Failed to stream response")
	}
}

// HealthCheck checks if a service is healthy
func (sc *ServiceClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	return nil
}

// GetServiceStatus checks every service concurrently
func (scs *ServiceClients) GetServiceStatus(ctx context.Context) map[string]ServiceHealth {
	clients := map[string]*ServiceClient{
		"colony_service":         scs.ColonyService,
		"notifier_service":       scs.NotifierService,
		"retry_consumer_service": scs.RetryConsumerService,
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		status = make(map[string]ServiceHealth, len(clients))
	)
	for key, client := range clients {
		wg.Add(1)
		go func(key string, client *ServiceClient) {
			defer wg.Done()
			health := ServiceHealth{Healthy: true}
			if err := client.HealthCheck(ctx); err != nil {
				health = ServiceHealth{Healthy: false, Error: err.Error()}
			}
			if key != "colony_service" {
				health.Note = "Background worker"
			}
			mu.Lock()
			status[key] = health
			mu.Unlock()
		}(key, client)
	}
	wg.Wait()

	return status
}
