package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/internal/schema"
)

func TestValidatorDecode(t *testing.T) {
	v, err := schema.NewValidator()
	require.NoError(t, err)

	testCases := []struct {
		name    string
		input   string
		wantErr bool
		kind    models.InputKind
	}{
		{
			name:  "valid text",
			input: `{"type":"text","content":"hi there","source":"web","userId":"u-1"}`,
			kind:  models.KindText,
		},
		{
			name:    "text with bad source",
			input:   `{"type":"text","content":"hi","source":"carrier_pigeon","userId":"u-1"}`,
			wantErr: true,
		},
		{
			name:    "text missing content",
			input:   `{"type":"text","source":"web","userId":"u-1"}`,
			wantErr: true,
		},
		{
			name:  "valid voice",
			input: `{"type":"voice","transcript":"hello","confidence":0.8}`,
			kind:  models.KindVoice,
		},
		{
			name:    "voice confidence out of range",
			input:   `{"type":"voice","transcript":"hello","confidence":1.5}`,
			wantErr: true,
		},
		{
			name:  "valid webhook",
			input: `{"type":"webhook","payload":{"a":1},"provider":"calendar","signature":"sig"}`,
			kind:  models.KindWebhook,
		},
		{
			name:  "valid matter device",
			input: `{"type":"device_matter","deviceId":"d-1","nodeId":"1","endpointId":0,"clusterId":"0x0101","attributeId":"0x0000","value":{"locked":true}}`,
			kind:  models.KindDeviceMatter,
		},
		{
			name:  "valid mqtt device",
			input: `{"type":"device_mqtt","deviceId":"d-2","topic":"home/kitchen/temperature","value":{"reading":21.5}}`,
			kind:  models.KindDeviceMQTT,
		},
		{
			name:    "unknown type",
			input:   `{"type":"telepathy","content":"hi"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   `{{{`,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input, err := v.Decode([]byte(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.kind, input.Kind)
		})
	}
}
