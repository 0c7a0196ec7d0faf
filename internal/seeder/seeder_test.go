package seeder_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/internal/schema"
	"github.com/fluxgate-io/fluxgate/internal/seeder"
)

func TestGeneratedInputsPassSchema(t *testing.T) {
	validator, err := schema.NewValidator()
	require.NoError(t, err)

	g := seeder.NewGenerator(42)
	seen := map[models.InputKind]int{}

	for i := 0; i < 200; i++ {
		input := g.Next()
		seen[input.Kind]++

		data, err := json.Marshal(input)
		require.NoError(t, err)

		decoded, err := validator.Decode(data)
		require.NoError(t, err, "generated input must satisfy the boundary schema: %s", data)
		assert.Equal(t, input.Kind, decoded.Kind)
		assert.NotEmpty(t, decoded.Identity())
	}

	for _, kind := range []models.InputKind{
		models.KindText, models.KindVoice, models.KindWebhook,
		models.KindDeviceMatter, models.KindDeviceZigbee, models.KindDeviceMQTT,
	} {
		assert.Positivef(t, seen[kind], "variant %s never generated", kind)
	}
}

func TestGeneratorDeterminism(t *testing.T) {
	a := seeder.NewGenerator(7)
	b := seeder.NewGenerator(7)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Next().Kind, b.Next().Kind)
	}
}

func TestRunnerPostsInputs(t *testing.T) {
	var received int
	var lastAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/ingest", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		lastAuth = r.Header.Get("Authorization")

		var input models.RawInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		received++
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	}))
	defer srv.Close()

	runner := seeder.NewRunner(seeder.NewGenerator(1), srv.URL, "seed-token")
	sent, err := runner.Run(context.Background(), 5, 0)
	require.NoError(t, err)

	assert.Equal(t, 5, sent)
	assert.Equal(t, 5, received)
	assert.Equal(t, "Bearer seed-token", lastAuth)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := seeder.NewRunner(seeder.NewGenerator(1), srv.URL, "")
	sent, err := runner.Run(ctx, 100, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sent)
}
