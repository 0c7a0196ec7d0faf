// Package connectors defines the port for external provider integrations
// used by the sync orchestrator.
package connectors

import (
	"context"
	"fmt"

	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/internal/vault"
)

// Delta is one page of provider changes since a sync cursor.
type Delta struct {
	Inputs     []*models.RawInput
	NextCursor string
}

// Connector integrates one external provider.
type Connector interface {
	Provider() string
	ValidateToken(ctx context.Context, token *vault.SessionToken) (bool, error)
	RefreshToken(ctx context.Context, token *vault.SessionToken) (*vault.SessionToken, error)
	FetchDelta(ctx context.Context, token *vault.SessionToken, cursor string) (*Delta, error)
}

// Registry resolves connectors by provider name.
type Registry struct {
	byProvider map[string]Connector
}

// NewRegistry constructs a registry from the given connectors.
func NewRegistry(items ...Connector) *Registry {
	byProvider := make(map[string]Connector, len(items))
	for _, c := range items {
		byProvider[c.Provider()] = c
	}
	return &Registry{byProvider: byProvider}
}

// Find returns the connector for a provider.
func (r *Registry) Find(provider string) (Connector, error) {
	if r == nil {
		return nil, fmt.Errorf("connector registry not configured")
	}
	c, ok := r.byProvider[provider]
	if !ok {
		return nil, fmt.Errorf("no connector registered for provider %q", provider)
	}
	return c, nil
}

// Providers returns the registered provider names.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.byProvider))
	for name := range r.byProvider {
		names = append(names, name)
	}
	return names
}
