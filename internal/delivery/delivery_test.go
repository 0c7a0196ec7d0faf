package delivery_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate-io/fluxgate/internal/delivery"
	"github.com/fluxgate-io/fluxgate/internal/models"
)

// flakySink fails a configurable number of times before succeeding.
type flakySink struct {
	failures int32
	calls    atomic.Int32
}

func (s *flakySink) Send(ctx context.Context, event *models.TranslatedEvent, appID, correlationID string) error {
	if s.calls.Add(1) <= s.failures {
		return errors.New("sink unavailable")
	}
	return nil
}

func translatedEvents(n int) []*models.TranslatedEvent {
	events := make([]*models.TranslatedEvent, n)
	for i := range events {
		events[i] = &models.TranslatedEvent{EventID: "e-1", CorrelationID: "c-1", AppID: "app-a"}
	}
	return events
}

func TestDeliverBatchRetriesThenSucceeds(t *testing.T) {
	sink := &flakySink{failures: 2}
	svc := delivery.NewService(sink, 3, time.Millisecond, nil)

	delivered, err := svc.DeliverBatch(context.Background(), translatedEvents(1), "app-a", "c-1")
	require.NoError(t, err)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, int32(3), sink.calls.Load())
}

func TestDeliverBatchExhaustionRaisesLastError(t *testing.T) {
	sink := &flakySink{failures: 10}
	svc := delivery.NewService(sink, 3, time.Millisecond, nil)

	delivered, err := svc.DeliverBatch(context.Background(), translatedEvents(2), "app-a", "c-1")
	require.Error(t, err)

	assert.Equal(t, 0, delivered)
	assert.Equal(t, int32(3), sink.calls.Load(), "batch aborts on first exhausted event")
	assert.Contains(t, err.Error(), "sink unavailable")
}

func TestDeliverBackoffDoubles(t *testing.T) {
	sink := &flakySink{failures: 2}
	base := 20 * time.Millisecond
	svc := delivery.NewService(sink, 3, base, nil)

	start := time.Now()
	_, err := svc.DeliverBatch(context.Background(), translatedEvents(1), "app-a", "c-1")
	require.NoError(t, err)

	// Two failed attempts wait base then 2*base before the third succeeds.
	assert.GreaterOrEqual(t, time.Since(start), 3*base)
}

func TestDeliverContextCancellation(t *testing.T) {
	sink := &flakySink{failures: 10}
	svc := delivery.NewService(sink, 5, 50*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.DeliverBatch(ctx, translatedEvents(1), "app-a", "c-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientSend(t *testing.T) {
	t.Run("posts headers and body", func(t *testing.T) {
		var gotPath, gotApp, gotCorr string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotApp = r.Header.Get("X-App-ID")
			gotCorr = r.Header.Get("X-Correlation-ID")
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		client := delivery.NewClient(server.URL, time.Second)
		err := client.Send(context.Background(), &models.TranslatedEvent{EventID: "e-1"}, "app-a", "c-1")
		require.NoError(t, err)

		assert.Equal(t, "/api/v1/events", gotPath)
		assert.Equal(t, "app-a", gotApp)
		assert.Equal(t, "c-1", gotCorr)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"downstream full"}`, http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := delivery.NewClient(server.URL, time.Second)
		err := client.Send(context.Background(), &models.TranslatedEvent{EventID: "e-1"}, "app-a", "c-1")
		assert.Error(t, err)
	})
}
