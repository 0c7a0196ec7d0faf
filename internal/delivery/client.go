package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/middleware"
	"github.com/fluxgate-io/fluxgate/internal/models"
)

// sinkPath is the fixed downstream path translated events are posted to.
const sinkPath = "/api/v1/events"

// headerAppID carries the destination app on the delivery wire contract.
const headerAppID = "X-App-ID"

// Sink sends one translated event downstream.
type Sink interface {
	Send(ctx context.Context, event *models.TranslatedEvent, appID, correlationID string) error
}

// Client is the HTTP sink client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a sink client. The per-attempt wall clock is bounded by
// the HTTP client timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts the event JSON to the sink with the correlation and app
// headers.
func (c *Client) Send(ctx context.Context, event *models.TranslatedEvent, appID, correlationID string) error {
	if c == nil {
		return fmt.Errorf("sink client not configured")
	}

	bodyBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sinkPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(middleware.HeaderCorrelationID, correlationID)
	request.Header.Set(headerAppID, appID)

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		var errBody map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("sink response status %d: %s", resp.StatusCode, errBody["message"])
	}

	return nil
}
