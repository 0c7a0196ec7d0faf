package normalizer

import (
	"context"
	"strings"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

// deviceProfile is the protocol-agnostic classification of a device signal.
type deviceProfile struct {
	DeviceType   string
	Capabilities []string
}

// matterClusters maps matter-style cluster IDs to device profiles.
var matterClusters = map[string]deviceProfile{
	"0x0006": {DeviceType: "switch", Capabilities: []string{"power_toggle"}},
	"0x0008": {DeviceType: "dimmer", Capabilities: []string{"level_control"}},
	"0x0101": {DeviceType: "door_lock", Capabilities: []string{"lock_actuation"}},
	"0x0102": {DeviceType: "window_covering", Capabilities: []string{"cover_actuation"}},
	"0x0402": {DeviceType: "temperature_sensor", Capabilities: []string{"temperature_report"}},
	"0x0406": {DeviceType: "occupancy_sensor", Capabilities: []string{"occupancy_report"}},
	"0x0055": {DeviceType: "robot_vacuum", Capabilities: []string{"robot_motion"}},
}

// zigbeeClusters maps zigbee numeric cluster IDs to device profiles.
var zigbeeClusters = map[string]deviceProfile{
	"6":    {DeviceType: "switch", Capabilities: []string{"power_toggle"}},
	"8":    {DeviceType: "dimmer", Capabilities: []string{"level_control"}},
	"257":  {DeviceType: "door_lock", Capabilities: []string{"lock_actuation"}},
	"1026": {DeviceType: "temperature_sensor", Capabilities: []string{"temperature_report"}},
	"1030": {DeviceType: "occupancy_sensor", Capabilities: []string{"occupancy_report"}},
	"1280": {DeviceType: "intrusion_sensor", Capabilities: []string{"alarm_report"}},
}

// mqttTopicSuffixes maps the trailing topic segment to device profiles.
var mqttTopicSuffixes = map[string]deviceProfile{
	"lock":        {DeviceType: "door_lock", Capabilities: []string{"lock_actuation"}},
	"switch":      {DeviceType: "switch", Capabilities: []string{"power_toggle"}},
	"temperature": {DeviceType: "temperature_sensor", Capabilities: []string{"temperature_report"}},
	"motion":      {DeviceType: "occupancy_sensor", Capabilities: []string{"occupancy_report"}},
	"vacuum":      {DeviceType: "robot_vacuum", Capabilities: []string{"robot_motion"}},
}

// actuationCapabilities are physical-world capabilities that always require
// human approval regardless of content classification.
var actuationCapabilities = map[string]struct{}{
	"lock_actuation":  {},
	"cover_actuation": {},
	"robot_motion":    {},
}

func hasActuationCapability(capabilities []string) bool {
	for _, c := range capabilities {
		if _, ok := actuationCapabilities[c]; ok {
			return true
		}
	}
	return false
}

// DeviceNormalizer maps device telemetry from any supported protocol into a
// protocol-agnostic canonical event.
type DeviceNormalizer struct{}

// Supports reports whether this normalizer handles the kind.
func (DeviceNormalizer) Supports(kind models.InputKind) bool {
	return kind.IsDevice()
}

// Normalize builds a canonical device.telemetry event, resolving the
// protocol-specific identifiers through the static lookup tables. Device
// payloads contribute no text surface to intent scanning.
func (DeviceNormalizer) Normalize(ctx context.Context, input *models.RawInput) (*models.CanonicalEvent, string, error) {
	_ = ctx
	device := input.Device

	profile := resolveProfile(input.Kind, device)

	var value any
	if len(device.Value) > 0 {
		value = string(device.Value)
	}

	event := &models.CanonicalEvent{
		UserID:    device.UserID,
		Source:    string(input.Kind),
		EventType: "device.telemetry",
		Timestamp: time.Now().UTC(),
		Payload: map[string]any{
			"device_id": device.DeviceID,
			"value":     value,
		},
		Metadata: models.EventMetadata{
			RiskLane:     models.LaneGreen,
			DeviceType:   profile.DeviceType,
			Capabilities: profile.Capabilities,
		},
	}

	switch input.Kind {
	case models.KindDeviceMatter:
		event.Payload["node_id"] = device.NodeID
		event.Payload["endpoint_id"] = device.EndpointID
		event.Payload["cluster_id"] = device.ClusterID
		event.Payload["attribute_id"] = device.AttributeID
	case models.KindDeviceZigbee:
		event.Payload["cluster_id"] = device.ClusterID
	case models.KindDeviceMQTT:
		event.Payload["topic"] = device.Topic
	}

	return event, "", nil
}

func resolveProfile(kind models.InputKind, device *models.DeviceInput) deviceProfile {
	var profile deviceProfile
	var ok bool

	switch kind {
	case models.KindDeviceMatter:
		profile, ok = matterClusters[strings.ToLower(device.ClusterID)]
	case models.KindDeviceZigbee:
		profile, ok = zigbeeClusters[device.ClusterID]
	case models.KindDeviceMQTT:
		segments := strings.Split(device.Topic, "/")
		profile, ok = mqttTopicSuffixes[segments[len(segments)-1]]
	}

	if !ok {
		return deviceProfile{DeviceType: "unknown"}
	}
	return profile
}
