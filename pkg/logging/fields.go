package logging

import "log/slog"

// Common field names for consistent logging across the pipeline.
const (
	FieldService       = "service"
	FieldTenantID      = "tenant_id"
	FieldUserID        = "user_id"
	FieldAppID         = "app_id"
	FieldProvider      = "provider"
	FieldConnectorID   = "connector_id"
	FieldCorrelationID = "correlation_id"
	FieldEventID       = "event_id"
	FieldEventType     = "event_type"
	FieldRiskLane      = "risk_lane"
	FieldSourceType    = "source_type"
	FieldStatus        = "status"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldAttempt       = "attempt"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// TenantID returns a slog attribute for the tenant ID.
func TenantID(id string) slog.Attr {
	return slog.String(FieldTenantID, id)
}

// UserID returns a slog attribute for the user ID.
func UserID(id string) slog.Attr {
	return slog.String(FieldUserID, id)
}

// AppID returns a slog attribute for the destination app ID.
func AppID(id string) slog.Attr {
	return slog.String(FieldAppID, id)
}

// Provider returns a slog attribute for an external provider name.
func Provider(name string) slog.Attr {
	return slog.String(FieldProvider, name)
}

// ConnectorID returns a slog attribute for a connector ID.
func ConnectorID(id string) slog.Attr {
	return slog.String(FieldConnectorID, id)
}

// CorrelationID returns a slog attribute for the correlation ID.
func CorrelationID(id string) slog.Attr {
	return slog.String(FieldCorrelationID, id)
}

// EventID returns a slog attribute for an event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// EventType returns a slog attribute for an event type.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// RiskLane returns a slog attribute for the risk lane.
func RiskLane(lane string) slog.Attr {
	return slog.String(FieldRiskLane, lane)
}

// SourceType returns a slog attribute for the raw input source type.
func SourceType(t string) slog.Attr {
	return slog.String(FieldSourceType, t)
}

// Status returns a slog attribute for an outcome status.
func Status(status string) slog.Attr {
	return slog.String(FieldStatus, status)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Attempt returns a slog attribute for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(FieldAttempt, n)
}
