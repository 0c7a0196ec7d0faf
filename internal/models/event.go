package models

import "time"

// RiskLane classifies an event's governance lane.
type RiskLane string

const (
	LaneGreen RiskLane = "GREEN"
	LaneRed   RiskLane = "RED"
)

// Escalate returns the more severe of the two lanes. Within one pipeline
// run a lane only ever escalates (GREEN to RED), never de-escalates.
func (l RiskLane) Escalate(other RiskLane) RiskLane {
	if l == LaneRed || other == LaneRed {
		return LaneRed
	}
	return LaneGreen
}

// EventMetadata carries classification results alongside the payload.
type EventMetadata struct {
	RiskLane         RiskLane       `json:"risk_lane"`
	DetectedIntents  []string       `json:"detected_intents,omitempty"`
	RequiresApproval bool           `json:"requires_man_approval"`
	DeviceType       string         `json:"device_type,omitempty"`
	Capabilities     []string       `json:"capabilities,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// CanonicalEvent is the provider-agnostic normalized representation of any
// ingested occurrence. Created by the normalizer, field-filtered by the
// policy engine, payload-transformed by the translator, terminal at delivery.
type CanonicalEvent struct {
	EventID       string         `json:"event_id"`
	CorrelationID string         `json:"correlation_id"`
	TenantID      string         `json:"tenant_id,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	Source        string         `json:"source"`
	Provider      string         `json:"provider,omitempty"`
	EventType     string         `json:"event_type"`
	Timestamp     time.Time      `json:"timestamp"`
	Consent       map[string]bool `json:"consent,omitempty"`
	Metadata      EventMetadata  `json:"metadata"`
	Payload       map[string]any `json:"payload"`
}

// TranslatedEvent is the destination-ready form handed to delivery.
type TranslatedEvent struct {
	EventID       string         `json:"event_id"`
	CorrelationID string         `json:"correlation_id"`
	AppID         string         `json:"app_id"`
	Payload       map[string]any `json:"payload"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// IngestStatus is the terminal outcome of one ingress call.
type IngestStatus string

const (
	StatusAccepted IngestStatus = "accepted"
	StatusBlocked  IngestStatus = "blocked"
	StatusBuffered IngestStatus = "buffered"
)

// IngestResult is handed back to the caller of an ingress call. Immutable,
// never persisted.
type IngestResult struct {
	CorrelationID string       `json:"correlationId"`
	Status        IngestStatus `json:"status"`
	LatencyMS     int64        `json:"latencyMs"`
	RiskLane      RiskLane     `json:"riskLane"`
}
