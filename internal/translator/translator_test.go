package translator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

func event(payload map[string]any) *models.CanonicalEvent {
	return &models.CanonicalEvent{
		EventID:       "e-1",
		CorrelationID: "c-1",
		EventType:     "user.message",
		Payload:       payload,
		Metadata:      models.EventMetadata{RiskLane: models.LaneGreen},
	}
}

func fixedLocale(locale string) LocaleResolver {
	return func(appID string) string { return locale }
}

func TestTranslateRoundTrip(t *testing.T) {
	tr := New(fixedLocale("es"), nil)

	out := tr.Translate(context.Background(), []*models.CanonicalEvent{
		event(map[string]any{"concept": "Appointment"}),
	}, "app-a")

	require.Len(t, out, 1)
	assert.Equal(t, "Cita", out[0].Payload["concept"])
	assert.Equal(t, true, out[0].Metadata["verified"])
	assert.Equal(t, "es", out[0].Metadata["locale"])
	assert.Equal(t, "c-1", out[0].CorrelationID)
	assert.Equal(t, "app-a", out[0].AppID)
}

func TestTranslateEmptyLocalePassesThrough(t *testing.T) {
	tr := New(fixedLocale(""), nil)

	payload := map[string]any{"concept": "Appointment"}
	out := tr.Translate(context.Background(), []*models.CanonicalEvent{event(payload)}, "app-a")

	require.Len(t, out, 1)
	assert.Equal(t, "Appointment", out[0].Payload["concept"])
	assert.Equal(t, true, out[0].Metadata["verified"])
	assert.NotContains(t, out[0].Metadata, "locale")
}

func TestTranslateNestedPayload(t *testing.T) {
	tr := New(fixedLocale("de"), nil)

	out := tr.Translate(context.Background(), []*models.CanonicalEvent{
		event(map[string]any{
			"items": []any{map[string]any{"kind": "Reminder"}},
			"count": float64(2),
		}),
	}, "app-a")

	require.Len(t, out, 1)
	items := out[0].Payload["items"].([]any)
	assert.Equal(t, "Erinnerung", items[0].(map[string]any)["kind"])
	assert.Equal(t, float64(2), out[0].Payload["count"])
}

func TestTranslateFailClosed(t *testing.T) {
	t.Run("irreversible lexicon", func(t *testing.T) {
		// Two source terms collapse onto one target, so the back transform
		// cannot reproduce the original.
		broken := NewLexicon(map[string]string{
			"Appointment": "Cita",
			"Meeting":     "Cita",
		})
		tr := New(fixedLocale("es"), nil)
		tr.lexicons = map[string]*Lexicon{"es": broken}

		red := event(map[string]any{"concept": "Appointment", "other": "Meeting"})
		out := tr.Translate(context.Background(), []*models.CanonicalEvent{red}, "app-a")

		require.Len(t, out, 1)
		assert.Equal(t, "FAILED", out[0].Payload["_translation_status"])
		assert.NotContains(t, out[0].Payload, "concept", "real content must be withheld")
		assert.Equal(t, string(models.LaneRed), out[0].Metadata["risk_lane"])
		assert.Equal(t, false, out[0].Metadata["verified"])
		assert.NotEmpty(t, out[0].Metadata["audit_reason"])
	})

	t.Run("unsupported locale", func(t *testing.T) {
		tr := New(fixedLocale("zh"), nil)

		out := tr.Translate(context.Background(), []*models.CanonicalEvent{
			event(map[string]any{"concept": "Appointment"}),
		}, "app-a")

		require.Len(t, out, 1)
		assert.Equal(t, "FAILED", out[0].Payload["_translation_status"])
		assert.Equal(t, false, out[0].Metadata["verified"])
	})

	t.Run("invalid locale tag", func(t *testing.T) {
		tr := New(fixedLocale("not a locale!!"), nil)

		out := tr.Translate(context.Background(), []*models.CanonicalEvent{
			event(map[string]any{"concept": "Appointment"}),
		}, "app-a")

		require.Len(t, out, 1)
		assert.Equal(t, "FAILED", out[0].Payload["_translation_status"])
	})
}

func TestLexiconRoundTrip(t *testing.T) {
	lex := builtinLexicons["es"]

	forward := lex.Forward("Appointment at noon")
	assert.Equal(t, "Cita at noon", forward)
	assert.Equal(t, "Appointment at noon", lex.Back(forward))
}
