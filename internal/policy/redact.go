package policy

import "strings"

// piiKeyNames match payload keys that carry personally identifying data.
var piiKeyNames = []string{"email", "phone", "ssn", "address", "name", "dob", "ip_address"}

// emotionalKeyNames match payload keys that carry emotional signals.
var emotionalKeyNames = []string{"sentiment", "mood", "emotion", "score"}

const redactedPlaceholder = "[REDACTED]"

// redactPayload walks the payload recursively, redacting or masking PII keys
// per the profile's mode and deleting emotional keys when the app disallows
// emotional data.
func redactPayload(payload map[string]any, profile Profile) {
	if payload == nil {
		return
	}

	for key, value := range payload {
		lowered := strings.ToLower(key)

		if !profile.AllowEmotionalData && matchesAny(lowered, emotionalKeyNames) {
			delete(payload, key)
			continue
		}

		if profile.PIIMode != PIIAllow && matchesAny(lowered, piiKeyNames) {
			payload[key] = applyPIIMode(value, profile.PIIMode)
			continue
		}

		switch nested := value.(type) {
		case map[string]any:
			redactPayload(nested, profile)
		case []any:
			for _, item := range nested {
				if inner, ok := item.(map[string]any); ok {
					redactPayload(inner, profile)
				}
			}
		}
	}
}

func matchesAny(key string, names []string) bool {
	for _, name := range names {
		if strings.Contains(key, name) {
			return true
		}
	}
	return false
}

// applyPIIMode transforms a PII value: redact replaces it entirely, mask
// keeps only a short suffix of string values.
func applyPIIMode(value any, mode PIIMode) any {
	if mode == PIIRedact {
		return redactedPlaceholder
	}

	s, ok := value.(string)
	if !ok {
		return redactedPlaceholder
	}
	if len(s) <= 2 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-2) + s[len(s)-2:]
}
