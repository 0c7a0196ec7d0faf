// Package syncer iterates a user's connected providers, fetches deltas, and
// runs each through the ingestion chain in bounded-concurrency batches.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/fluxgate-io/fluxgate/internal/connectors"
	"github.com/fluxgate-io/fluxgate/internal/gateway"
	"github.com/fluxgate-io/fluxgate/internal/metrics"
	"github.com/fluxgate-io/fluxgate/internal/middleware"
	"github.com/fluxgate-io/fluxgate/internal/vault"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

// Result totals one orchestration run across all connectors.
type Result struct {
	EventsProcessed int `json:"eventsProcessed"`
	EventsDelivered int `json:"eventsDelivered"`
	ConnectorsOK    int `json:"connectorsOk"`
	ConnectorsErr   int `json:"connectorsErr"`
}

// Orchestrator syncs connector sessions in fixed-size concurrent batches.
// One connector's failure is isolated, never aborting siblings or later
// batches.
type Orchestrator struct {
	vault     *vault.Vault
	registry  *connectors.Registry
	chain     *gateway.Chain
	batchSize int
	rps       float64
	logger    *logging.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates an orchestrator. batchSize caps concurrent per-connector
// syncs; rps bounds the call rate against each provider's API.
func New(v *vault.Vault, registry *connectors.Registry, chain *gateway.Chain, batchSize int, rps float64, logger *logging.Logger) *Orchestrator {
	if batchSize <= 0 {
		batchSize = 5
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		vault:     v,
		registry:  registry,
		chain:     chain,
		batchSize: batchSize,
		rps:       rps,
		logger:    logger,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// SyncAll loads the user's active sessions and syncs them batch by batch.
// The returned totals include every connector that completed; per-connector
// failures are counted, logged, and otherwise swallowed.
func (o *Orchestrator) SyncAll(ctx context.Context, userID string) (*Result, error) {
	metrics.SyncRuns.Inc()

	sessions, err := o.vault.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}

	total := &Result{}
	for start := 0; start < len(sessions); start += o.batchSize {
		end := start + o.batchSize
		if end > len(sessions) {
			end = len(sessions)
		}
		batch := sessions[start:end]

		results := make([]*Result, len(batch))
		errs := make([]error, len(batch))

		var wg sync.WaitGroup
		for i, session := range batch {
			wg.Add(1)
			go func(i int, session *vault.StoredSession) {
				defer wg.Done()
				results[i], errs[i] = o.syncConnector(ctx, session)
			}(i, session)
		}
		wg.Wait()

		for i, session := range batch {
			if errs[i] != nil {
				total.ConnectorsErr++
				metrics.SyncConnectorErrors.WithLabelValues(session.Provider).Inc()
				o.logger.ErrorContext(ctx, "connector sync failed",
					logging.ConnectorID(session.ConnectorID),
					logging.Provider(session.Provider),
					logging.Error(errs[i]),
				)
				continue
			}
			total.ConnectorsOK++
			total.EventsProcessed += results[i].EventsProcessed
			total.EventsDelivered += results[i].EventsDelivered
		}
	}

	o.logger.InfoContext(ctx, "sync run complete",
		logging.UserID(userID),
		"connectors_ok", total.ConnectorsOK,
		"connectors_err", total.ConnectorsErr,
		"events_processed", total.EventsProcessed,
		"events_delivered", total.EventsDelivered,
	)
	return total, nil
}

// syncConnector runs one connector end to end: token validation and refresh,
// delta fetch from the stored cursor, the ingestion chain per input, and the
// cursor advance. The cursor only moves on full success.
func (o *Orchestrator) syncConnector(ctx context.Context, session *vault.StoredSession) (*Result, error) {
	connector, err := o.registry.Find(session.Provider)
	if err != nil {
		return nil, err
	}

	token, ok, err := o.vault.GetToken(ctx, session.ConnectorID)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("no readable session for connector %s", session.ConnectorID)
	}

	limiter := o.limiterFor(session.Provider)

	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}
	valid, err := connector.ValidateToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	if !valid {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		refreshed, err := connector.RefreshToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("refresh token: %w", err)
		}
		if err := o.vault.StoreToken(ctx, refreshed); err != nil {
			return nil, fmt.Errorf("store refreshed token: %w", err)
		}
		token = refreshed
	}

	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}
	delta, err := connector.FetchDelta(ctx, token, session.SyncCursor)
	if err != nil {
		return nil, fmt.Errorf("fetch delta: %w", err)
	}

	result := &Result{}
	for _, input := range delta.Inputs {
		correlationID := uuid.New().String()
		inputCtx := middleware.WithCorrelationID(ctx, correlationID)

		event, err := o.chain.Normalize(inputCtx, correlationID, input, false)
		if err != nil {
			return nil, fmt.Errorf("normalize delta input: %w", err)
		}
		result.EventsProcessed++

		delivered, err := o.chain.Dispatch(inputCtx, event)
		result.EventsDelivered += delivered
		if err != nil {
			return nil, fmt.Errorf("dispatch delta input: %w", err)
		}
	}

	if err := o.vault.AdvanceCursor(ctx, session.ConnectorID, delta.NextCursor, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("advance cursor: %w", err)
	}

	o.logger.InfoContext(ctx, "connector synced",
		logging.ConnectorID(session.ConnectorID),
		logging.Provider(session.Provider),
		"events_processed", result.EventsProcessed,
		"events_delivered", result.EventsDelivered,
	)
	return result, nil
}

// limiterFor returns the shared limiter for a provider, creating it on
// first use. rps <= 0 disables limiting.
func (o *Orchestrator) limiterFor(provider string) *rate.Limiter {
	o.mu.Lock()
	defer o.mu.Unlock()

	limiter, ok := o.limiters[provider]
	if !ok {
		limit := rate.Inf
		burst := 1
		if o.rps > 0 {
			limit = rate.Limit(o.rps)
			burst = int(o.rps)
			if burst < 1 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(limit, burst)
		o.limiters[provider] = limiter
	}
	return limiter
}
