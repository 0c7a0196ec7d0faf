package dlq

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-instance use.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	order   []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
	}
}

// Append records a new entry.
func (s *MemoryStore) Append(ctx context.Context, entry *Entry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	s.entries[entry.ID] = &stored
	s.order = append(s.order, entry.ID)
	return nil
}

// Pending returns up to limit pending entries, oldest first, scoped to the
// originating app when appID is non-empty.
func (s *MemoryStore) Pending(ctx context.Context, appID string, limit int) ([]*Entry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*Entry
	for _, id := range s.order {
		e := s.entries[id]
		if e.Status != StatusPending {
			continue
		}
		if appID != "" && e.AppID != appID {
			continue
		}
		copied := *e
		pending = append(pending, &copied)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// MarkProcessed transitions an entry to processed.
func (s *MemoryStore) MarkProcessed(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return ErrEntryNotFound
	}
	e.Status = StatusProcessed
	return nil
}

// RecordFailure increments the retry count and records the new error,
// leaving the entry pending for a later pass.
func (s *MemoryStore) RecordFailure(ctx context.Context, id, reason string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return ErrEntryNotFound
	}
	now := time.Now().UTC()
	e.RetryCount++
	e.ErrorReason = reason
	e.LastRetryAt = &now
	e.Status = StatusPending
	return nil
}

// List returns up to limit entries in insertion order.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Entry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Entry
	for _, id := range s.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		copied := *s.entries[id]
		out = append(out, &copied)
	}
	return out, nil
}
