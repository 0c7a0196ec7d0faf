package trust

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the device-trust service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type checkRequest struct {
	Identity string `json:"identity"`
}

type checkResponse struct {
	Status Status `json:"status"`
}

type verifyRequest struct {
	DeviceID string          `json:"device_id"`
	Payload  json.RawMessage `json:"payload"`
}

type verifyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// NewClient creates a trust service client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Check queries the trust status for an identity.
func (c *Client) Check(ctx context.Context, identity string) (Status, error) {
	if c == nil {
		return "", fmt.Errorf("trust client not configured")
	}

	bodyBytes, err := json.Marshal(checkRequest{Identity: identity})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/trust/check", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("trust response status %d", resp.StatusCode)
	}

	var result checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return result.Status, nil
}

// Verify checks device payload integrity with the trust service.
func (c *Client) Verify(ctx context.Context, deviceID string, payload []byte) error {
	if c == nil {
		return fmt.Errorf("trust client not configured")
	}

	bodyBytes, err := json.Marshal(verifyRequest{DeviceID: deviceID, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/trust/verify", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("integrity response status %d", resp.StatusCode)
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !result.Valid {
		return fmt.Errorf("integrity check rejected: %s", result.Reason)
	}

	return nil
}
