package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

// Outcome is a single recorded ingestion result.
type Outcome struct {
	Status     models.IngestStatus
	RiskLane   models.RiskLane
	SourceType models.InputKind
	LatencyMS  int64
	At         time.Time
}

// Snapshot summarizes all outcomes inside the collector window.
type Snapshot struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"byStatus"`
	ByLane       map[string]int `json:"byLane"`
	BySourceType map[string]int `json:"bySourceType"`
	P95LatencyMS int64          `json:"p95LatencyMs"`
	Window       time.Duration  `json:"-"`
}

// Collector keeps a sliding window of ingestion outcomes.
// Safe for concurrent use from multiple goroutines.
type Collector struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	outcomes []Outcome
}

// NewCollector creates a collector that retains outcomes for the given window.
func NewCollector(window time.Duration) *Collector {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Collector{
		window: window,
		now:    time.Now,
	}
}

// Record adds one ingestion outcome to the window and updates the
// Prometheus counters alongside it.
func (c *Collector) Record(result *models.IngestResult, kind models.InputKind) {
	if result == nil {
		return
	}

	IngestTotal.WithLabelValues(string(result.Status), string(kind)).Inc()
	RiskLaneTotal.WithLabelValues(string(result.RiskLane)).Inc()
	IngestDuration.Observe(float64(result.LatencyMS) / 1000.0)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked()
	c.outcomes = append(c.outcomes, Outcome{
		Status:     result.Status,
		RiskLane:   result.RiskLane,
		SourceType: kind,
		LatencyMS:  result.LatencyMS,
		At:         c.now(),
	})
}

// Snapshot aggregates the current window contents.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked()

	snap := Snapshot{
		ByStatus:     make(map[string]int),
		ByLane:       make(map[string]int),
		BySourceType: make(map[string]int),
		Window:       c.window,
	}

	latencies := make([]int64, 0, len(c.outcomes))
	for _, o := range c.outcomes {
		snap.Total++
		snap.ByStatus[string(o.Status)]++
		snap.ByLane[string(o.RiskLane)]++
		snap.BySourceType[string(o.SourceType)]++
		latencies = append(latencies, o.LatencyMS)
	}

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		idx := (len(latencies)*95 + 99) / 100
		if idx > 0 {
			idx--
		}
		snap.P95LatencyMS = latencies[idx]
	}

	return snap
}

// evictLocked drops outcomes that have aged out of the window.
// Caller must hold c.mu.
func (c *Collector) evictLocked() {
	cutoff := c.now().Add(-c.window)
	firstLive := len(c.outcomes)
	for i, o := range c.outcomes {
		if o.At.After(cutoff) {
			firstLive = i
			break
		}
	}
	if firstLive > 0 {
		c.outcomes = append(c.outcomes[:0:0], c.outcomes[firstLive:]...)
	}
}
