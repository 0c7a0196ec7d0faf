package schema

import "github.com/fluxgate-io/fluxgate/internal/models"

// JSON schemas for the raw input variants, keyed by discriminant tag.
var rawSchemas = map[models.InputKind]string{
	models.KindText: `{
		"type": "object",
		"required": ["type", "content", "source", "userId"],
		"properties": {
			"type": {"const": "text"},
			"content": {"type": "string", "minLength": 1},
			"source": {"enum": ["web", "sms"]},
			"userId": {"type": "string", "minLength": 1}
		}
	}`,

	models.KindVoice: `{
		"type": "object",
		"required": ["type", "transcript", "confidence"],
		"properties": {
			"type": {"const": "voice"},
			"transcript": {"type": "string"},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1},
			"audioUrl": {"type": "string"},
			"durationMs": {"type": "integer", "minimum": 0},
			"userId": {"type": "string"}
		}
	}`,

	models.KindWebhook: `{
		"type": "object",
		"required": ["type", "payload", "provider", "signature"],
		"properties": {
			"type": {"const": "webhook"},
			"payload": {"type": "object"},
			"provider": {"type": "string", "minLength": 1},
			"signature": {"type": "string"},
			"userId": {"type": "string"}
		}
	}`,

	models.KindDeviceMatter: `{
		"type": "object",
		"required": ["type", "deviceId", "nodeId", "clusterId", "attributeId", "value"],
		"properties": {
			"type": {"const": "device_matter"},
			"deviceId": {"type": "string", "minLength": 1},
			"nodeId": {"type": "string", "minLength": 1},
			"endpointId": {"type": "integer", "minimum": 0},
			"clusterId": {"type": "string", "minLength": 1},
			"attributeId": {"type": "string", "minLength": 1},
			"userId": {"type": "string"}
		}
	}`,

	models.KindDeviceZigbee: `{
		"type": "object",
		"required": ["type", "deviceId", "clusterId", "value"],
		"properties": {
			"type": {"const": "device_zigbee"},
			"deviceId": {"type": "string", "minLength": 1},
			"clusterId": {"type": "string", "minLength": 1},
			"userId": {"type": "string"}
		}
	}`,

	models.KindDeviceMQTT: `{
		"type": "object",
		"required": ["type", "deviceId", "topic", "value"],
		"properties": {
			"type": {"const": "device_mqtt"},
			"deviceId": {"type": "string", "minLength": 1},
			"topic": {"type": "string", "minLength": 1},
			"userId": {"type": "string"}
		}
	}`,
}
