package trust_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate-io/fluxgate/internal/trust"
)

func TestClientCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/trust/check", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Identity string `json:"identity"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status := trust.StatusTrusted
		switch req.Identity {
		case "shady":
			status = trust.StatusSuspect
		case "banned":
			status = trust.StatusBlocked
		}
		json.NewEncoder(w).Encode(map[string]string{"status": string(status)})
	}))
	defer srv.Close()

	client := trust.NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	for identity, want := range map[string]trust.Status{
		"regular": trust.StatusTrusted,
		"shady":   trust.StatusSuspect,
		"banned":  trust.StatusBlocked,
	} {
		status, err := client.Check(ctx, identity)
		require.NoError(t, err)
		assert.Equal(t, want, status, identity)
	}
}

func TestClientCheckServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := trust.NewClient(srv.URL, time.Second)

	_, err := client.Check(context.Background(), "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClientVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/trust/verify", r.URL.Path)

		var req struct {
			DeviceID string          `json:"device_id"`
			Payload  json.RawMessage `json:"payload"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.DeviceID == "compromised" {
			json.NewEncoder(w).Encode(map[string]any{"valid": false, "reason": "signature mismatch"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"valid": true})
	}))
	defer srv.Close()

	client := trust.NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	t.Run("valid device", func(t *testing.T) {
		assert.NoError(t, client.Verify(ctx, "sensor-1", []byte(`{"temp":21}`)))
	})

	t.Run("rejected device", func(t *testing.T) {
		err := client.Verify(ctx, "compromised", []byte(`{"temp":21}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signature mismatch")
	})
}

func TestNilClient(t *testing.T) {
	var client *trust.Client
	_, err := client.Check(context.Background(), "u-1")
	assert.Error(t, err)
	assert.Error(t, client.Verify(context.Background(), "d-1", nil))
}
