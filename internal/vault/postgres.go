package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL. Only the packed
// ciphertext form of a token ever reaches the table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed session Store.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Put stores or replaces a session.
func (s *PostgresStore) Put(ctx context.Context, session *StoredSession) error {
	query := `
		INSERT INTO vault_sessions (
			connector_id, user_id, tenant_id, provider, scopes,
			ciphertext, expires_at, sync_cursor, last_sync_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (connector_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			tenant_id = EXCLUDED.tenant_id,
			provider = EXCLUDED.provider,
			scopes = EXCLUDED.scopes,
			ciphertext = EXCLUDED.ciphertext,
			expires_at = EXCLUDED.expires_at
	`

	_, err := s.pool.Exec(ctx, query,
		session.ConnectorID, session.UserID, session.TenantID,
		session.Provider, session.Scopes, session.Ciphertext,
		session.ExpiresAt, session.SyncCursor, session.LastSyncAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

const sessionColumns = `
	connector_id, user_id, tenant_id, provider, scopes,
	ciphertext, expires_at, sync_cursor, last_sync_at
`

func scanSession(row pgx.Row) (*StoredSession, error) {
	session := &StoredSession{}
	err := row.Scan(
		&session.ConnectorID, &session.UserID, &session.TenantID,
		&session.Provider, &session.Scopes, &session.Ciphertext,
		&session.ExpiresAt, &session.SyncCursor, &session.LastSyncAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns a session by connector ID, or nil when absent.
func (s *PostgresStore) Get(ctx context.Context, connectorID string) (*StoredSession, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM vault_sessions WHERE connector_id = $1`,
		connectorID,
	)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// Delete removes a session.
func (s *PostgresStore) Delete(ctx context.Context, connectorID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM vault_sessions WHERE connector_id = $1`, connectorID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *PostgresStore) querySessions(ctx context.Context, query string, args ...any) ([]*StoredSession, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*StoredSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// ListActive returns a user's unexpired sessions.
func (s *PostgresStore) ListActive(ctx context.Context, userID string) ([]*StoredSession, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+`
		 FROM vault_sessions
		 WHERE user_id = $1 AND expires_at > $2`,
		userID, time.Now(),
	)
}

// ListByProvider returns all sessions for a provider.
func (s *PostgresStore) ListByProvider(ctx context.Context, provider string) ([]*StoredSession, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM vault_sessions WHERE provider = $1`,
		provider,
	)
}

// UpdateCursor records a new sync cursor for a connector.
func (s *PostgresStore) UpdateCursor(ctx context.Context, connectorID, cursor string, lastSyncAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE vault_sessions SET sync_cursor = $1, last_sync_at = $2 WHERE connector_id = $3`,
		cursor, lastSyncAt, connectorID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync cursor: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
