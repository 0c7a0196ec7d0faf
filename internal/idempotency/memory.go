package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

type memoryEntry struct {
	done      chan struct{}
	result    *models.IngestResult
	err       error
	expiresAt time.Time
}

// MemoryWrapper is an in-process Wrapper backed by a mutex-guarded map.
// Suitable for tests and single-instance deployments.
type MemoryWrapper struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
}

// NewMemoryWrapper creates a MemoryWrapper retaining outcomes for ttl.
func NewMemoryWrapper(ttl time.Duration) *MemoryWrapper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryWrapper{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
	}
}

// Do executes op at most once per key. A caller arriving while the key is
// in flight waits for the shared outcome instead of executing again.
func (w *MemoryWrapper) Do(ctx context.Context, key string, op Operation) (*models.IngestResult, error) {
	w.mu.Lock()

	if e, ok := w.entries[key]; ok && (e.expiresAt.IsZero() || time.Now().Before(e.expiresAt)) {
		w.mu.Unlock()
		select {
		case <-e.done:
			return e.result, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e := &memoryEntry{done: make(chan struct{})}
	w.entries[key] = e
	w.mu.Unlock()

	e.result, e.err = op(ctx)

	w.mu.Lock()
	e.expiresAt = time.Now().Add(w.ttl)
	w.evictExpiredLocked()
	w.mu.Unlock()

	close(e.done)
	return e.result, e.err
}

// evictExpiredLocked drops completed entries past their retention window.
// Caller must hold w.mu.
func (w *MemoryWrapper) evictExpiredLocked() {
	now := time.Now()
	for key, e := range w.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(w.entries, key)
		}
	}
}

// Len returns the number of tracked keys.
func (w *MemoryWrapper) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}
