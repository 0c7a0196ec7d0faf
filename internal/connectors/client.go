package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/internal/vault"
)

// HTTPConnector talks to a provider bridge service exposing the generic
// connector API (validate/refresh/delta).
type HTTPConnector struct {
	provider   string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPConnector creates a connector for one provider bridge.
func NewHTTPConnector(provider, baseURL string, timeout time.Duration) *HTTPConnector {
	return &HTTPConnector{
		provider: provider,
		baseURL:  baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Provider returns the provider name this connector serves.
func (c *HTTPConnector) Provider() string {
	return c.provider
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

type refreshResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type deltaResponse struct {
	Items      []json.RawMessage `json:"items"`
	NextCursor string            `json:"next_cursor"`
}

func (c *HTTPConnector) post(ctx context.Context, path string, token *vault.SessionToken, body any, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider %s response status %d", c.provider, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ValidateToken checks whether the stored token is still accepted by the
// provider.
func (c *HTTPConnector) ValidateToken(ctx context.Context, token *vault.SessionToken) (bool, error) {
	var result validateResponse
	if err := c.post(ctx, "/api/v1/token/validate", token, map[string]string{
		"connector_id": token.ConnectorID,
	}, &result); err != nil {
		return false, err
	}
	return result.Valid, nil
}

// RefreshToken exchanges the stored token for a fresh one.
func (c *HTTPConnector) RefreshToken(ctx context.Context, token *vault.SessionToken) (*vault.SessionToken, error) {
	var result refreshResponse
	if err := c.post(ctx, "/api/v1/token/refresh", token, map[string]string{
		"connector_id": token.ConnectorID,
	}, &result); err != nil {
		return nil, err
	}

	refreshed := *token
	refreshed.Token = result.Token
	refreshed.ExpiresAt = result.ExpiresAt
	return &refreshed, nil
}

// FetchDelta pulls provider changes since the cursor.
func (c *HTTPConnector) FetchDelta(ctx context.Context, token *vault.SessionToken, cursor string) (*Delta, error) {
	var result deltaResponse
	if err := c.post(ctx, "/api/v1/delta", token, map[string]string{
		"connector_id": token.ConnectorID,
		"cursor":       cursor,
	}, &result); err != nil {
		return nil, err
	}

	delta := &Delta{NextCursor: result.NextCursor}
	for _, item := range result.Items {
		var input models.RawInput
		if err := json.Unmarshal(item, &input); err != nil {
			return nil, fmt.Errorf("decode delta item: %w", err)
		}
		delta.Inputs = append(delta.Inputs, &input)
	}
	return delta, nil
}
