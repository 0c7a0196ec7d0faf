package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// InputKind discriminates the RawInput variants.
type InputKind string

const (
	KindText         InputKind = "text"
	KindVoice        InputKind = "voice"
	KindWebhook      InputKind = "webhook"
	KindDeviceMatter InputKind = "device_matter"
	KindDeviceZigbee InputKind = "device_zigbee"
	KindDeviceMQTT   InputKind = "device_mqtt"
)

// IsDevice reports whether the kind is one of the device-telemetry protocols.
func (k InputKind) IsDevice() bool {
	switch k {
	case KindDeviceMatter, KindDeviceZigbee, KindDeviceMQTT:
		return true
	}
	return false
}

// TextInput is a typed user message from web or SMS.
type TextInput struct {
	Content string `json:"content"`
	Source  string `json:"source"` // "web" or "sms"
	UserID  string `json:"userId"`
}

// VoiceInput is a transcribed voice utterance.
type VoiceInput struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	AudioURL   string  `json:"audioUrl,omitempty"`
	DurationMS int64   `json:"durationMs,omitempty"`
	UserID     string  `json:"userId,omitempty"`
}

// WebhookInput is a provider callback payload.
type WebhookInput struct {
	Payload   map[string]any `json:"payload"`
	Provider  string         `json:"provider"`
	Signature string         `json:"signature"`
	UserID    string         `json:"userId,omitempty"`
}

// DeviceInput is telemetry from a physical device. Which identifier fields
// are populated depends on the protocol: matter uses node/endpoint/cluster/
// attribute, zigbee uses a bare cluster ID, mqtt uses a topic.
type DeviceInput struct {
	DeviceID    string          `json:"deviceId"`
	NodeID      string          `json:"nodeId,omitempty"`
	EndpointID  int             `json:"endpointId,omitempty"`
	ClusterID   string          `json:"clusterId,omitempty"`
	AttributeID string          `json:"attributeId,omitempty"`
	Topic       string          `json:"topic,omitempty"`
	Value       json.RawMessage `json:"value"`
	UserID      string          `json:"userId,omitempty"`
}

// RawInput is the tagged union of all ingestible input variants.
// Exactly one variant pointer is non-nil, matching Kind.
type RawInput struct {
	Kind    InputKind
	Text    *TextInput
	Voice   *VoiceInput
	Webhook *WebhookInput
	Device  *DeviceInput
}

type rawInputEnvelope struct {
	Type InputKind `json:"type"`
}

// UnmarshalJSON decodes the discriminant tag and the matching variant.
func (r *RawInput) UnmarshalJSON(data []byte) error {
	var env rawInputEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode input envelope: %w", err)
	}

	r.Kind = env.Type
	switch env.Type {
	case KindText:
		r.Text = &TextInput{}
		return json.Unmarshal(data, r.Text)
	case KindVoice:
		r.Voice = &VoiceInput{}
		return json.Unmarshal(data, r.Voice)
	case KindWebhook:
		r.Webhook = &WebhookInput{}
		return json.Unmarshal(data, r.Webhook)
	case KindDeviceMatter, KindDeviceZigbee, KindDeviceMQTT:
		r.Device = &DeviceInput{}
		return json.Unmarshal(data, r.Device)
	default:
		return fmt.Errorf("unknown input type %q", env.Type)
	}
}

// MarshalJSON re-encodes the active variant with its discriminant tag.
func (r RawInput) MarshalJSON() ([]byte, error) {
	var body any
	switch r.Kind {
	case KindText:
		body = r.Text
	case KindVoice:
		body = r.Voice
	case KindWebhook:
		body = r.Webhook
	case KindDeviceMatter, KindDeviceZigbee, KindDeviceMQTT:
		body = r.Device
	default:
		return nil, fmt.Errorf("unknown input type %q", r.Kind)
	}

	inner, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(inner, &fields); err != nil {
		return nil, err
	}
	fields["type"] = string(r.Kind)
	return json.Marshal(fields)
}

// Identity resolves the identity the input acts on behalf of: the user ID
// where present, otherwise the device identifier.
func (r RawInput) Identity() string {
	switch r.Kind {
	case KindText:
		return r.Text.UserID
	case KindVoice:
		return r.Voice.UserID
	case KindWebhook:
		return r.Webhook.UserID
	case KindDeviceMatter, KindDeviceZigbee, KindDeviceMQTT:
		if r.Device.UserID != "" {
			return r.Device.UserID
		}
		return r.Device.DeviceID
	}
	return ""
}

// CanonicalString produces a deterministic serialization of the input for
// idempotency-key derivation. Map-backed variants are key-sorted so that
// logically equal inputs always serialize identically.
func (r RawInput) CanonicalString() string {
	var b strings.Builder
	b.WriteString(string(r.Kind))
	b.WriteByte('|')

	switch r.Kind {
	case KindText:
		b.WriteString(r.Text.Source)
		b.WriteByte('|')
		b.WriteString(r.Text.Content)
	case KindVoice:
		fmt.Fprintf(&b, "%s|%.4f", r.Voice.Transcript, r.Voice.Confidence)
	case KindWebhook:
		b.WriteString(r.Webhook.Provider)
		b.WriteByte('|')
		writeCanonicalMap(&b, r.Webhook.Payload)
	case KindDeviceMatter, KindDeviceZigbee, KindDeviceMQTT:
		fmt.Fprintf(&b, "%s|%s|%d|%s|%s|%s",
			r.Device.DeviceID, r.Device.NodeID, r.Device.EndpointID,
			r.Device.ClusterID, r.Device.AttributeID, r.Device.Topic)
		b.WriteByte('|')
		b.Write(r.Device.Value)
	}
	return b.String()
}

func writeCanonicalMap(b *strings.Builder, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		switch v := m[k].(type) {
		case map[string]any:
			writeCanonicalMap(b, v)
		default:
			fmt.Fprintf(b, "%v", v)
		}
	}
	b.WriteByte('}')
}
