package normalizer

import (
	"context"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

// lowConfidenceThreshold marks voice transcripts whose recognition
// confidence is too low to trust without extra scrutiny.
const lowConfidenceThreshold = 0.6

// VoiceNormalizer maps transcribed voice utterances into canonical events.
type VoiceNormalizer struct{}

// Supports reports whether this normalizer handles the kind.
func (VoiceNormalizer) Supports(kind models.InputKind) bool {
	return kind == models.KindVoice
}

// Normalize builds a canonical user.voice event. The transcript is the
// surface scanned for high-risk intents.
func (VoiceNormalizer) Normalize(ctx context.Context, input *models.RawInput) (*models.CanonicalEvent, string, error) {
	_ = ctx
	voice := input.Voice

	event := &models.CanonicalEvent{
		UserID:    voice.UserID,
		Source:    "voice",
		EventType: "user.voice",
		Timestamp: time.Now().UTC(),
		Payload: map[string]any{
			"transcript": voice.Transcript,
			"confidence": voice.Confidence,
		},
		Metadata: models.EventMetadata{
			RiskLane: models.LaneGreen,
		},
	}

	if voice.AudioURL != "" {
		event.Payload["audio_url"] = voice.AudioURL
	}
	if voice.DurationMS > 0 {
		event.Payload["duration_ms"] = voice.DurationMS
	}
	if voice.Confidence < lowConfidenceThreshold {
		event.Metadata.Extra = map[string]any{"low_confidence": true}
	}

	return event, voice.Transcript, nil
}
