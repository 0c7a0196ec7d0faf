package dlq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed Store.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Append records a new entry.
func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO dlq_entries (
			id, correlation_id, app_id, raw_input, events, error_reason,
			status, risk_score, source_type, user_id, retry_count,
			signature, created_at, last_retry_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.CorrelationID, entry.AppID, entry.RawInput,
		entry.Events, entry.ErrorReason, entry.Status, entry.RiskScore,
		entry.SourceType, entry.UserID, entry.RetryCount, entry.Signature,
		entry.CreatedAt, entry.LastRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append dlq entry: %w", err)
	}

	return nil
}

const entryColumns = `
	id, correlation_id, app_id, raw_input, events, error_reason,
	status, risk_score, source_type, user_id, retry_count,
	signature, created_at, last_retry_at
`

func scanEntry(row pgx.Row) (*Entry, error) {
	e := &Entry{}
	err := row.Scan(
		&e.ID, &e.CorrelationID, &e.AppID, &e.RawInput, &e.Events,
		&e.ErrorReason, &e.Status, &e.RiskScore, &e.SourceType,
		&e.UserID, &e.RetryCount, &e.Signature, &e.CreatedAt, &e.LastRetryAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Pending returns up to limit pending entries, oldest first, optionally
// scoped to the originating app.
func (s *PostgresStore) Pending(ctx context.Context, appID string, limit int) ([]*Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM dlq_entries
		WHERE status = $1 AND ($2 = '' OR app_id = $2)
		ORDER BY created_at ASC
		LIMIT $3
	`

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, query, StatusPending, appID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending dlq entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dlq entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkProcessed transitions an entry to processed.
func (s *PostgresStore) MarkProcessed(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE dlq_entries SET status = $1 WHERE id = $2`,
		StatusProcessed, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark dlq entry processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// RecordFailure increments the retry count and records the new error.
func (s *PostgresStore) RecordFailure(ctx context.Context, id, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE dlq_entries
		 SET retry_count = retry_count + 1, error_reason = $1,
		     last_retry_at = $2, status = $3
		 WHERE id = $4`,
		reason, time.Now().UTC(), StatusPending, id,
	)
	if err != nil {
		return fmt.Errorf("failed to record dlq failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// List returns up to limit entries, newest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM dlq_entries ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dlq entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				break
			}
			return nil, fmt.Errorf("failed to scan dlq entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
