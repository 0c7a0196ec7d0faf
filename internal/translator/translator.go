// Package translator locale-transforms payload fields and verifies
// round-trip fidelity before forwarding. Verification failures are
// fail-closed: the event's real content is withheld and a FAILED-tagged
// replacement is emitted instead.
package translator

import (
	"bytes"
	"context"
	"encoding/json"

	"golang.org/x/text/language"

	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

// LocaleResolver yields the target locale for a destination app, or empty
// string when the app takes untranslated content.
type LocaleResolver func(appID string) string

// Translator transforms canonical events into destination-ready translated
// events.
type Translator struct {
	lexicons  map[string]*Lexicon
	localeFor LocaleResolver
	logger    *logging.Logger
}

// New creates a translator over the built-in lexicons.
func New(localeFor LocaleResolver, logger *logging.Logger) *Translator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Translator{
		lexicons:  builtinLexicons,
		localeFor: localeFor,
		logger:    logger,
	}
}

// Translate converts each event for the app's target locale. Events whose
// transform does not survive the round trip are replaced with FAILED-tagged,
// RED-lane substitutes rather than forwarded.
func (t *Translator) Translate(ctx context.Context, events []*models.CanonicalEvent, appID string) []*models.TranslatedEvent {
	locale := ""
	if t.localeFor != nil {
		locale = t.localeFor(appID)
	}

	translated := make([]*models.TranslatedEvent, 0, len(events))
	for _, event := range events {
		translated = append(translated, t.translateOne(ctx, event, appID, locale))
	}
	return translated
}

func (t *Translator) translateOne(ctx context.Context, event *models.CanonicalEvent, appID, locale string) *models.TranslatedEvent {
	out := &models.TranslatedEvent{
		EventID:       event.EventID,
		CorrelationID: event.CorrelationID,
		AppID:         appID,
		Metadata: map[string]any{
			"risk_lane":             string(event.Metadata.RiskLane),
			"requires_man_approval": event.Metadata.RequiresApproval,
		},
	}

	if locale == "" {
		out.Payload = event.Payload
		out.Metadata["verified"] = true
		return out
	}

	tag, err := language.Parse(locale)
	if err != nil {
		t.logger.ErrorContext(ctx, "invalid target locale, failing closed",
			logging.AppID(appID),
			logging.EventID(event.EventID),
			"locale", locale,
			logging.Error(err),
		)
		return t.failClosed(out, event, "invalid target locale "+locale)
	}

	lexicon, ok := t.lexicons[tag.String()]
	if !ok {
		t.logger.ErrorContext(ctx, "no lexicon for target locale, failing closed",
			logging.AppID(appID),
			logging.EventID(event.EventID),
			"locale", tag.String(),
		)
		return t.failClosed(out, event, "unsupported target locale "+tag.String())
	}

	forward := transformStrings(event.Payload, lexicon.Forward)
	back := transformStrings(forward, lexicon.Back)

	if !payloadsEqual(event.Payload, back) {
		t.logger.ErrorContext(ctx, "translation round trip mismatch, failing closed",
			logging.AppID(appID),
			logging.EventID(event.EventID),
			"locale", tag.String(),
		)
		return t.failClosed(out, event, "round-trip verification mismatch for locale "+tag.String())
	}

	out.Payload = forward
	out.Metadata["verified"] = true
	out.Metadata["locale"] = tag.String()
	return out
}

// failClosed emits a replacement event carrying no translated content: the
// payload is reduced to the failure marker, and the risk lane is forced RED.
func (t *Translator) failClosed(out *models.TranslatedEvent, event *models.CanonicalEvent, reason string) *models.TranslatedEvent {
	out.Payload = map[string]any{
		"_translation_status": "FAILED",
		"event_type":          event.EventType,
	}
	out.Metadata["risk_lane"] = string(models.LaneRed)
	out.Metadata["verified"] = false
	out.Metadata["audit_reason"] = reason
	return out
}

// transformStrings applies fn to every string value in the payload,
// recursing through nested maps and slices.
func transformStrings(payload map[string]any, fn func(string) string) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = transformValue(value, fn)
	}
	return out
}

func transformValue(value any, fn func(string) string) any {
	switch v := value.(type) {
	case string:
		return fn(v)
	case map[string]any:
		return transformStrings(v, fn)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = transformValue(item, fn)
		}
		return out
	default:
		return v
	}
}

// payloadsEqual compares the serialized forms byte for byte.
func payloadsEqual(a, b map[string]any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}
