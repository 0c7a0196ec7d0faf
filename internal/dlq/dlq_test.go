package dlq_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate-io/fluxgate/internal/dlq"
	"github.com/fluxgate-io/fluxgate/internal/models"
)

func TestScore(t *testing.T) {
	testCases := []struct {
		name          string
		lane          models.RiskLane
		intents       []string
		kind          models.InputKind
		lowConfidence bool
		want          int
	}{
		{
			name: "green text scores zero",
			lane: models.LaneGreen,
			kind: models.KindText,
			want: 0,
		},
		{
			name: "red lane alone",
			lane: models.LaneRed,
			kind: models.KindText,
			want: 50,
		},
		{
			name:    "red lane with intent from webhook",
			lane:    models.LaneRed,
			intents: []string{"delete"},
			kind:    models.KindWebhook,
			want:    90,
		},
		{
			name:          "low confidence voice",
			lane:          models.LaneGreen,
			kind:          models.KindVoice,
			lowConfidence: true,
			want:          10,
		},
		{
			name:          "everything stacks but webhook and voice never combine",
			lane:          models.LaneRed,
			intents:       []string{"delete", "transfer"},
			kind:          models.KindVoice,
			lowConfidence: true,
			want:          90,
		},
		{
			name:          "high confidence voice adds nothing",
			lane:          models.LaneGreen,
			kind:          models.KindVoice,
			lowConfidence: false,
			want:          0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, dlq.Score(tc.lane, tc.intents, tc.kind, tc.lowConfidence))
		})
	}
}

func newEntry(id, appID string, createdAt time.Time) *dlq.Entry {
	return &dlq.Entry{
		ID:            id,
		CorrelationID: "corr-" + id,
		AppID:         appID,
		ErrorReason:   "sink down",
		Status:        dlq.StatusPending,
		SourceType:    string(models.KindText),
		CreatedAt:     createdAt,
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	store := dlq.NewMemoryStore()
	require.NoError(t, store.Append(ctx, newEntry("1", "app-a", now.Add(-2*time.Minute))))
	require.NoError(t, store.Append(ctx, newEntry("2", "app-b", now.Add(-3*time.Minute))))
	require.NoError(t, store.Append(ctx, newEntry("3", "app-a", now.Add(-time.Minute))))

	t.Run("pending is oldest first", func(t *testing.T) {
		pending, err := store.Pending(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		assert.Equal(t, "2", pending[0].ID)
		assert.Equal(t, "1", pending[1].ID)
		assert.Equal(t, "3", pending[2].ID)
	})

	t.Run("pending scopes to app", func(t *testing.T) {
		pending, err := store.Pending(ctx, "app-a", 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		for _, e := range pending {
			assert.Equal(t, "app-a", e.AppID)
		}
	})

	t.Run("mark processed removes from pending", func(t *testing.T) {
		require.NoError(t, store.MarkProcessed(ctx, "2"))

		pending, err := store.Pending(ctx, "", 10)
		require.NoError(t, err)
		assert.Len(t, pending, 2)
	})

	t.Run("record failure keeps entry pending", func(t *testing.T) {
		require.NoError(t, store.RecordFailure(ctx, "1", "still down"))

		entries, err := store.List(ctx, 10)
		require.NoError(t, err)
		for _, e := range entries {
			if e.ID == "1" {
				assert.Equal(t, dlq.StatusPending, e.Status)
				assert.Equal(t, 1, e.RetryCount)
				assert.Equal(t, "still down", e.ErrorReason)
				assert.NotNil(t, e.LastRetryAt)
			}
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, store.MarkProcessed(ctx, "missing"), dlq.ErrEntryNotFound)
		assert.ErrorIs(t, store.RecordFailure(ctx, "missing", "x"), dlq.ErrEntryNotFound)
	})
}

// stubDeliverer fails for the app IDs it is told to.
type stubDeliverer struct {
	failApps map[string]bool
	batches  [][]*models.TranslatedEvent
}

func (d *stubDeliverer) DeliverBatch(ctx context.Context, events []*models.TranslatedEvent, appID, correlationID string) (int, error) {
	if d.failApps[appID] {
		return 0, errors.New("sink still down")
	}
	d.batches = append(d.batches, events)
	return len(events), nil
}

func TestReplayOnce(t *testing.T) {
	ctx := context.Background()
	store := dlq.NewMemoryStore()

	events, err := json.Marshal([]*models.TranslatedEvent{{EventID: "e-1", AppID: "app-a"}})
	require.NoError(t, err)

	replayable := newEntry("1", "app-a", time.Now().Add(-time.Minute))
	replayable.Events = events
	require.NoError(t, store.Append(ctx, replayable))

	stillFailing := newEntry("2", "app-b", time.Now().Add(-time.Minute))
	stillFailing.Events = events
	require.NoError(t, store.Append(ctx, stillFailing))

	rawOnly := newEntry("3", "app-a", time.Now())
	rawOnly.RawInput = json.RawMessage(`{"type":"text","content":"hi","source":"web","userId":"u"}`)
	require.NoError(t, store.Append(ctx, rawOnly))

	deliverer := &stubDeliverer{failApps: map[string]bool{"app-b": true}}
	replayer := dlq.NewReplayer(store, deliverer, time.Minute, 50, nil)

	replayed, failed, err := replayer.ReplayOnce(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 1, replayed)
	assert.Equal(t, 2, failed, "undeliverable and raw-only entries count as failures")
	assert.Len(t, deliverer.batches, 1)

	entries, err := store.List(ctx, 10)
	require.NoError(t, err)
	byID := map[string]*dlq.Entry{}
	for _, e := range entries {
		byID[e.ID] = e
	}
	assert.Equal(t, dlq.StatusProcessed, byID["1"].Status)
	assert.Equal(t, dlq.StatusPending, byID["2"].Status)
	assert.Equal(t, 1, byID["2"].RetryCount)
	assert.Equal(t, dlq.StatusPending, byID["3"].Status)
}
