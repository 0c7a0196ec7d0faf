package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

func record(c *Collector, status models.IngestStatus, lane models.RiskLane, kind models.InputKind, latency int64) {
	c.Record(&models.IngestResult{
		CorrelationID: "corr",
		Status:        status,
		LatencyMS:     latency,
		RiskLane:      lane,
	}, kind)
}

func TestCollectorSnapshot(t *testing.T) {
	c := NewCollector(5 * time.Minute)

	record(c, models.StatusAccepted, models.LaneGreen, models.KindText, 10)
	record(c, models.StatusAccepted, models.LaneRed, models.KindVoice, 20)
	record(c, models.StatusBuffered, models.LaneGreen, models.KindText, 300)

	snap := c.Snapshot()
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 2, snap.ByStatus[string(models.StatusAccepted)])
	assert.Equal(t, 1, snap.ByStatus[string(models.StatusBuffered)])
	assert.Equal(t, 2, snap.ByLane[string(models.LaneGreen)])
	assert.Equal(t, 1, snap.ByLane[string(models.LaneRed)])
	assert.Equal(t, 2, snap.BySourceType[string(models.KindText)])
	assert.Equal(t, int64(300), snap.P95LatencyMS)
}

func TestCollectorP95(t *testing.T) {
	c := NewCollector(5 * time.Minute)
	for i := int64(1); i <= 100; i++ {
		record(c, models.StatusAccepted, models.LaneGreen, models.KindText, i)
	}

	assert.Equal(t, int64(95), c.Snapshot().P95LatencyMS)
}

func TestCollectorEviction(t *testing.T) {
	c := NewCollector(time.Minute)

	current := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	record(c, models.StatusAccepted, models.LaneGreen, models.KindText, 5)
	current = current.Add(30 * time.Second)
	record(c, models.StatusBuffered, models.LaneRed, models.KindVoice, 7)

	assert.Equal(t, 2, c.Snapshot().Total)

	current = current.Add(45 * time.Second)
	snap := c.Snapshot()
	assert.Equal(t, 1, snap.Total, "first outcome aged out")
	assert.Equal(t, 1, snap.ByStatus[string(models.StatusBuffered)])

	current = current.Add(2 * time.Minute)
	assert.Zero(t, c.Snapshot().Total)
}

func TestCollectorEmptySnapshot(t *testing.T) {
	snap := NewCollector(0).Snapshot()
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.P95LatencyMS)
	assert.NotNil(t, snap.ByStatus)
}
