package vault

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory session Store for tests and single-instance
// use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*StoredSession
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*StoredSession),
	}
}

// Put stores or replaces a session.
func (s *MemoryStore) Put(ctx context.Context, session *StoredSession) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.ConnectorID] = &copied
	return nil
}

// Get returns a session by connector ID, or nil when absent.
func (s *MemoryStore) Get(ctx context.Context, connectorID string) (*StoredSession, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[connectorID]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(ctx context.Context, connectorID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, connectorID)
	return nil
}

// ListActive returns a user's unexpired sessions.
func (s *MemoryStore) ListActive(ctx context.Context, userID string) ([]*StoredSession, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var active []*StoredSession
	for _, session := range s.sessions {
		if session.UserID != userID {
			continue
		}
		if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(now) {
			continue
		}
		copied := *session
		active = append(active, &copied)
	}
	return active, nil
}

// ListByProvider returns all sessions for a provider.
func (s *MemoryStore) ListByProvider(ctx context.Context, provider string) ([]*StoredSession, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*StoredSession
	for _, session := range s.sessions {
		if session.Provider != provider {
			continue
		}
		copied := *session
		matched = append(matched, &copied)
	}
	return matched, nil
}

// UpdateCursor records a new sync cursor for a connector.
func (s *MemoryStore) UpdateCursor(ctx context.Context, connectorID, cursor string, lastSyncAt time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[connectorID]
	if !ok {
		return nil
	}
	session.SyncCursor = cursor
	session.LastSyncAt = &lastSyncAt
	return nil
}
