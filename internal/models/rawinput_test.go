package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

func TestRawInputUnmarshal(t *testing.T) {
	t.Run("text variant", func(t *testing.T) {
		data := []byte(`{"type":"text","content":"hello","source":"web","userId":"u-1"}`)

		var input models.RawInput
		require.NoError(t, json.Unmarshal(data, &input))

		assert.Equal(t, models.KindText, input.Kind)
		require.NotNil(t, input.Text)
		assert.Equal(t, "hello", input.Text.Content)
		assert.Equal(t, "web", input.Text.Source)
		assert.Equal(t, "u-1", input.Text.UserID)
	})

	t.Run("voice variant", func(t *testing.T) {
		data := []byte(`{"type":"voice","transcript":"turn on the lights","confidence":0.92,"userId":"u-2"}`)

		var input models.RawInput
		require.NoError(t, json.Unmarshal(data, &input))

		assert.Equal(t, models.KindVoice, input.Kind)
		require.NotNil(t, input.Voice)
		assert.InDelta(t, 0.92, input.Voice.Confidence, 0.0001)
	})

	t.Run("device matter variant", func(t *testing.T) {
		data := []byte(`{"type":"device_matter","deviceId":"d-1","nodeId":"3","endpointId":1,"clusterId":"0x0101","attributeId":"0x0000","value":{"locked":true}}`)

		var input models.RawInput
		require.NoError(t, json.Unmarshal(data, &input))

		assert.Equal(t, models.KindDeviceMatter, input.Kind)
		require.NotNil(t, input.Device)
		assert.Equal(t, "0x0101", input.Device.ClusterID)
		assert.True(t, input.Kind.IsDevice())
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		var input models.RawInput
		err := json.Unmarshal([]byte(`{"type":"carrier_pigeon"}`), &input)
		assert.Error(t, err)
	})
}

func TestRawInputMarshalRoundTrip(t *testing.T) {
	input := models.RawInput{
		Kind: models.KindWebhook,
		Webhook: &models.WebhookInput{
			Payload:  map[string]any{"action": "created"},
			Provider: "calendar",
			UserID:   "u-3",
		},
	}

	data, err := json.Marshal(input)
	require.NoError(t, err)

	var decoded models.RawInput
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, models.KindWebhook, decoded.Kind)
	assert.Equal(t, "calendar", decoded.Webhook.Provider)
}

func TestRawInputIdentity(t *testing.T) {
	text := models.RawInput{Kind: models.KindText, Text: &models.TextInput{UserID: "u-1"}}
	assert.Equal(t, "u-1", text.Identity())

	device := models.RawInput{Kind: models.KindDeviceMQTT, Device: &models.DeviceInput{DeviceID: "d-9"}}
	assert.Equal(t, "d-9", device.Identity())

	owned := models.RawInput{Kind: models.KindDeviceMQTT, Device: &models.DeviceInput{DeviceID: "d-9", UserID: "u-9"}}
	assert.Equal(t, "u-9", owned.Identity())
}

func TestCanonicalStringDeterministic(t *testing.T) {
	a := models.RawInput{
		Kind: models.KindWebhook,
		Webhook: &models.WebhookInput{
			Provider: "storage",
			Payload:  map[string]any{"b": 2, "a": 1, "c": map[string]any{"z": true, "y": false}},
		},
	}
	b := models.RawInput{
		Kind: models.KindWebhook,
		Webhook: &models.WebhookInput{
			Provider: "storage",
			Payload:  map[string]any{"c": map[string]any{"y": false, "z": true}, "a": 1, "b": 2},
		},
	}

	assert.Equal(t, a.CanonicalString(), b.CanonicalString())

	c := b
	c.Webhook = &models.WebhookInput{Provider: "storage", Payload: map[string]any{"a": 2}}
	assert.NotEqual(t, a.CanonicalString(), c.CanonicalString())
}

func TestRiskLaneEscalate(t *testing.T) {
	assert.Equal(t, models.LaneRed, models.LaneGreen.Escalate(models.LaneRed))
	assert.Equal(t, models.LaneRed, models.LaneRed.Escalate(models.LaneGreen))
	assert.Equal(t, models.LaneGreen, models.LaneGreen.Escalate(models.LaneGreen))
}
