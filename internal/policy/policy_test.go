package policy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/internal/policy"
)

func messageEvent(payload map[string]any) *models.CanonicalEvent {
	return &models.CanonicalEvent{
		EventID:       "e-1",
		CorrelationID: "c-1",
		EventType:     "user.message",
		Payload:       payload,
		Metadata:      models.EventMetadata{RiskLane: models.LaneGreen},
	}
}

func TestFilterTypeAllowList(t *testing.T) {
	profiles := policy.Profiles{
		"app-a": {AllowedEventTypes: []string{"user.message"}, PIIMode: policy.PIIAllow},
	}
	engine := policy.NewEngine(profiles, nil)
	ctx := context.Background()

	allowed := engine.Filter(ctx, []*models.CanonicalEvent{messageEvent(nil)}, "app-a")
	assert.Len(t, allowed, 1)

	telemetry := messageEvent(nil)
	telemetry.EventType = "device.telemetry"
	dropped := engine.Filter(ctx, []*models.CanonicalEvent{telemetry}, "app-a")
	assert.Empty(t, dropped, "non-allow-listed types never reach delivery")
}

func TestFilterMissingProfilePassesThrough(t *testing.T) {
	engine := policy.NewEngine(policy.Profiles{}, nil)

	events := []*models.CanonicalEvent{messageEvent(map[string]any{"email": "a@b.c"})}
	out := engine.Filter(context.Background(), events, "unknown-app")

	require.Len(t, out, 1)
	assert.Equal(t, "a@b.c", out[0].Payload["email"], "pass-through must not redact")
}

func TestFilterContentDeny(t *testing.T) {
	profiles := policy.Profiles{
		"app-a": {
			AllowedEventTypes: []string{"user.message"},
			PIIMode:           policy.PIIAllow,
			ContentDeny:       []string{"secret"},
			ContentAllow:      []string{"cleared"},
		},
	}
	engine := policy.NewEngine(profiles, nil)
	ctx := context.Background()

	denied := engine.Filter(ctx, []*models.CanonicalEvent{
		messageEvent(map[string]any{"text": "a SECRET plan"}),
	}, "app-a")
	assert.Empty(t, denied)

	cleared := engine.Filter(ctx, []*models.CanonicalEvent{
		messageEvent(map[string]any{"text": "a secret plan, cleared for release"}),
	}, "app-a")
	assert.Len(t, cleared, 1, "allow-list match overrides the deny")
}

func TestFilterRedaction(t *testing.T) {
	payload := func() map[string]any {
		return map[string]any{
			"email":   "user@example.com",
			"message": "hello",
			"nested":  map[string]any{"phone": "555-0100"},
		}
	}

	t.Run("redact mode", func(t *testing.T) {
		profiles := policy.Profiles{
			"app-a": {AllowedEventTypes: []string{"user.message"}, PIIMode: policy.PIIRedact},
		}
		engine := policy.NewEngine(profiles, nil)

		original := messageEvent(payload())
		out := engine.Filter(context.Background(), []*models.CanonicalEvent{original}, "app-a")

		require.Len(t, out, 1)
		assert.Equal(t, "[REDACTED]", out[0].Payload["email"])
		assert.Equal(t, "hello", out[0].Payload["message"])
		nested := out[0].Payload["nested"].(map[string]any)
		assert.Equal(t, "[REDACTED]", nested["phone"])

		// The caller's event is deep-cloned, never mutated.
		assert.Equal(t, "user@example.com", original.Payload["email"])
	})

	t.Run("mask mode keeps suffix", func(t *testing.T) {
		profiles := policy.Profiles{
			"app-a": {AllowedEventTypes: []string{"user.message"}, PIIMode: policy.PIIMask},
		}
		engine := policy.NewEngine(profiles, nil)

		out := engine.Filter(context.Background(), []*models.CanonicalEvent{
			messageEvent(map[string]any{"email": "user@example.com"}),
		}, "app-a")

		require.Len(t, out, 1)
		masked := out[0].Payload["email"].(string)
		assert.Equal(t, "om", masked[len(masked)-2:])
		assert.NotContains(t, masked, "user@example")
	})

	t.Run("emotional keys deleted", func(t *testing.T) {
		profiles := policy.Profiles{
			"app-a": {AllowedEventTypes: []string{"user.message"}, PIIMode: policy.PIIAllow},
		}
		engine := policy.NewEngine(profiles, nil)

		out := engine.Filter(context.Background(), []*models.CanonicalEvent{
			messageEvent(map[string]any{"sentiment": "angry", "message": "hi"}),
		}, "app-a")

		require.Len(t, out, 1)
		assert.NotContains(t, out[0].Payload, "sentiment")
		assert.Contains(t, out[0].Payload, "message")
	})

	t.Run("emotional keys kept when allowed", func(t *testing.T) {
		profiles := policy.Profiles{
			"app-a": {AllowedEventTypes: []string{"user.message"}, PIIMode: policy.PIIAllow, AllowEmotionalData: true},
		}
		engine := policy.NewEngine(profiles, nil)

		out := engine.Filter(context.Background(), []*models.CanonicalEvent{
			messageEvent(map[string]any{"mood": "happy"}),
		}, "app-a")

		require.Len(t, out, 1)
		assert.Equal(t, "happy", out[0].Payload["mood"])
	})
}

func TestParseProfiles(t *testing.T) {
	data := []byte(`
apps:
  calendar-app:
    allowed_event_types: [user.message, provider.webhook]
    pii_mode: redact
    locale: es
    content_deny: [confidential]
`)
	profiles, err := policy.ParseProfiles(data)
	require.NoError(t, err)

	profile, ok := profiles["calendar-app"]
	require.True(t, ok)
	assert.Equal(t, policy.PIIRedact, profile.PIIMode)
	assert.Equal(t, []string{"user.message", "provider.webhook"}, profile.AllowedEventTypes)
	assert.Equal(t, "es", profiles.AppLocale("calendar-app"))
	assert.Empty(t, profiles.AppLocale("other-app"))
}

func TestEngineApps(t *testing.T) {
	engine := policy.NewEngine(policy.Profiles{"b": {}, "a": {}}, nil)
	assert.Equal(t, []string{"a", "b"}, engine.Apps())
}
