// Package policy filters canonical events by destination-app profile and
// redacts sensitive fields from the survivors.
package policy

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

// Engine applies per-app filter profiles to canonical events.
type Engine struct {
	profiles Profiles
	logger   *logging.Logger
}

// NewEngine creates a policy engine over the given profiles.
func NewEngine(profiles Profiles, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		profiles: profiles,
		logger:   logger,
	}
}

// Filter returns the events allowed for the app, each deep-cloned and
// redacted per the app's profile. Events for apps without a profile pass
// through unfiltered; that is logged, never silent.
func (e *Engine) Filter(ctx context.Context, events []*models.CanonicalEvent, appID string) []*models.CanonicalEvent {
	profile, ok := e.profiles[appID]
	if !ok {
		e.logger.WarnContext(ctx, "no filter profile for app, passing events through unfiltered",
			logging.AppID(appID),
			"event_count", len(events),
		)
		return events
	}

	filtered := make([]*models.CanonicalEvent, 0, len(events))
	for _, event := range events {
		if !e.typeAllowed(profile, event.EventType) {
			e.logger.DebugContext(ctx, "event type not allow-listed, dropping",
				logging.AppID(appID),
				logging.EventID(event.EventID),
				logging.EventType(event.EventType),
			)
			continue
		}

		if e.contentDenied(profile, event) {
			e.logger.InfoContext(ctx, "event content deny-listed, dropping",
				logging.AppID(appID),
				logging.EventID(event.EventID),
			)
			continue
		}

		clone := cloneEvent(event)
		redactPayload(clone.Payload, profile)
		filtered = append(filtered, clone)
	}

	return filtered
}

// Apps returns the configured destination app IDs in a stable order.
func (e *Engine) Apps() []string {
	apps := make([]string, 0, len(e.profiles))
	for appID := range e.profiles {
		apps = append(apps, appID)
	}
	sort.Strings(apps)
	return apps
}

func (e *Engine) typeAllowed(profile Profile, eventType string) bool {
	for _, allowed := range profile.AllowedEventTypes {
		if allowed == eventType {
			return true
		}
	}
	return false
}

// contentDenied reports whether the serialized payload+metadata contains a
// deny-listed substring without also satisfying an allow-list match.
func (e *Engine) contentDenied(profile Profile, event *models.CanonicalEvent) bool {
	if len(profile.ContentDeny) == 0 {
		return false
	}

	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return false
	}
	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return false
	}
	serialized := strings.ToLower(string(payloadJSON) + string(metadataJSON))

	denied := false
	for _, term := range profile.ContentDeny {
		if strings.Contains(serialized, strings.ToLower(term)) {
			denied = true
			break
		}
	}
	if !denied {
		return false
	}

	for _, term := range profile.ContentAllow {
		if strings.Contains(serialized, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

// cloneEvent deep-copies an event so redaction never mutates the caller's
// view of it.
func cloneEvent(event *models.CanonicalEvent) *models.CanonicalEvent {
	clone := *event
	clone.Payload = cloneMap(event.Payload)
	clone.Metadata.Extra = cloneMap(event.Metadata.Extra)
	clone.Metadata.DetectedIntents = append([]string(nil), event.Metadata.DetectedIntents...)
	clone.Metadata.Capabilities = append([]string(nil), event.Metadata.Capabilities...)

	if event.Consent != nil {
		clone.Consent = make(map[string]bool, len(event.Consent))
		for k, v := range event.Consent {
			clone.Consent[k] = v
		}
	}
	return &clone
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	clone := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case map[string]any:
			clone[k] = cloneMap(val)
		case []any:
			cloned := make([]any, len(val))
			for i, item := range val {
				if inner, ok := item.(map[string]any); ok {
					cloned[i] = cloneMap(inner)
				} else {
					cloned[i] = item
				}
			}
			clone[k] = cloned
		default:
			clone[k] = v
		}
	}
	return clone
}
