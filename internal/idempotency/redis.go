package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fluxgate-io/fluxgate/internal/faults"
	"github.com/fluxgate-io/fluxgate/internal/models"
)

// Redis key layout:
//
//	idem:result:{key} - recorded outcome JSON (expires after ttl)
//	idem:claim:{key}  - in-flight execution claim (expires after claimTTL)
type RedisWrapper struct {
	client   *redis.Client
	ttl      time.Duration
	claimTTL time.Duration
	poll     time.Duration
}

// NewRedisWrapper creates a Wrapper shared across pipeline instances.
func NewRedisWrapper(client *redis.Client, ttl time.Duration) *RedisWrapper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisWrapper{
		client: client,
		ttl:    ttl,
		// claimTTL also bounds the follower poll in await: a holder that
		// dies between SetNX and record costs followers the full TTL
		// before they time out.
		claimTTL: 30 * time.Second,
		poll:     25 * time.Millisecond,
	}
}

func resultKey(key string) string { return "idem:result:" + key }
func claimKey(key string) string  { return "idem:claim:" + key }

// Do executes op at most once per key across all instances sharing the
// Redis backend. Losers of the claim race poll for the winner's outcome.
func (w *RedisWrapper) Do(ctx context.Context, key string, op Operation) (*models.IngestResult, error) {
	if cached, err := w.lookup(ctx, key); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}

	claimed, err := w.client.SetNX(ctx, claimKey(key), uuid.New().String(), w.claimTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}

	if !claimed {
		return w.await(ctx, key)
	}

	result, opErr := op(ctx)
	w.record(ctx, key, result, opErr)
	_ = w.client.Del(ctx, claimKey(key)).Err()

	return result, opErr
}

// recordedOutcome is the persisted form of one execution. Security errors
// keep their code so replayed outcomes rematerialize as *faults.SecurityError
// and every caller sharing the key observes the same error type.
type recordedOutcome struct {
	Result       *models.IngestResult `json:"result,omitempty"`
	Error        string               `json:"error,omitempty"`
	SecurityCode string               `json:"security_code,omitempty"`
}

func (w *RedisWrapper) record(ctx context.Context, key string, result *models.IngestResult, opErr error) {
	outcome := recordedOutcome{Result: result}
	if opErr != nil {
		outcome.Error = opErr.Error()
		var se *faults.SecurityError
		if errors.As(opErr, &se) {
			outcome.Error = se.Message
			outcome.SecurityCode = se.Code
		}
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		return
	}
	_ = w.client.Set(ctx, resultKey(key), data, w.ttl).Err()
}

// lookup returns the recorded outcome for key, or nil when none exists.
func (w *RedisWrapper) lookup(ctx context.Context, key string) (*models.IngestResult, error) {
	data, err := w.client.Get(ctx, resultKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency result: %w", err)
	}

	var outcome recordedOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return nil, fmt.Errorf("decode idempotency result: %w", err)
	}
	if outcome.SecurityCode != "" {
		return nil, faults.NewSecurityError(outcome.SecurityCode, outcome.Error)
	}
	if outcome.Error != "" {
		return nil, errors.New(outcome.Error)
	}
	return outcome.Result, nil
}

// await polls for the claim holder's recorded outcome.
func (w *RedisWrapper) await(ctx context.Context, key string) (*models.IngestResult, error) {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	deadline := time.NewTimer(w.claimTTL)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("timed out waiting for idempotent outcome of key %s", key)
		case <-ticker.C:
			result, err := w.lookup(ctx, key)
			if err != nil {
				return nil, err
			}
			if result != nil {
				return result, nil
			}
		}
	}
}
