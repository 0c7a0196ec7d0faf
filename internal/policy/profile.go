package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PIIMode controls how PII-like payload fields are handled for an app.
type PIIMode string

const (
	PIIRedact PIIMode = "redact"
	PIIMask   PIIMode = "mask"
	PIIAllow  PIIMode = "allow"
)

// Profile is one destination app's filter configuration.
type Profile struct {
	AllowedEventTypes  []string `yaml:"allowed_event_types"`
	PIIMode            PIIMode  `yaml:"pii_mode"`
	AllowEmotionalData bool     `yaml:"allow_emotional_data"`
	ContentAllow       []string `yaml:"content_allow"`
	ContentDeny        []string `yaml:"content_deny"`
	Locale             string   `yaml:"locale"`
}

// Profiles maps app IDs to their filter profiles.
type Profiles map[string]Profile

type profilesFile struct {
	Apps Profiles `yaml:"apps"`
}

// LoadProfiles reads app filter profiles from a YAML file.
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes app filter profiles from YAML.
func ParseProfiles(data []byte) (Profiles, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if file.Apps == nil {
		file.Apps = make(Profiles)
	}
	return file.Apps, nil
}

// AppLocale returns the target locale configured for an app, or empty string.
func (p Profiles) AppLocale(appID string) string {
	if profile, ok := p[appID]; ok {
		return profile.Locale
	}
	return ""
}
