package idempotency_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate-io/fluxgate/internal/faults"
	"github.com/fluxgate-io/fluxgate/internal/idempotency"
	"github.com/fluxgate-io/fluxgate/internal/models"
)

func acceptedResult(id string) *models.IngestResult {
	return &models.IngestResult{
		CorrelationID: id,
		Status:        models.StatusAccepted,
		RiskLane:      models.LaneGreen,
	}
}

func TestMemoryWrapperSingleFlight(t *testing.T) {
	w := idempotency.NewMemoryWrapper(time.Minute)

	var executions atomic.Int32
	op := func(ctx context.Context) (*models.IngestResult, error) {
		executions.Add(1)
		time.Sleep(20 * time.Millisecond)
		return acceptedResult("c-1"), nil
	}

	const callers = 10
	results := make([]*models.IngestResult, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := w.Do(context.Background(), "shared-key", op)
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), executions.Load(), "concurrent callers must collapse to one execution")
	for _, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, "c-1", result.CorrelationID)
		assert.Equal(t, models.StatusAccepted, result.Status)
	}
}

func TestMemoryWrapperReplaysRecordedOutcome(t *testing.T) {
	w := idempotency.NewMemoryWrapper(time.Minute)
	ctx := context.Background()

	var executions int
	op := func(ctx context.Context) (*models.IngestResult, error) {
		executions++
		return acceptedResult("c-2"), nil
	}

	first, err := w.Do(ctx, "k", op)
	require.NoError(t, err)
	second, err := w.Do(ctx, "k", op)
	require.NoError(t, err)

	assert.Equal(t, 1, executions)
	assert.Equal(t, first, second)
}

func TestMemoryWrapperDistinctKeysRunIndependently(t *testing.T) {
	w := idempotency.NewMemoryWrapper(time.Minute)
	ctx := context.Background()

	var executions atomic.Int32
	op := func(ctx context.Context) (*models.IngestResult, error) {
		executions.Add(1)
		return acceptedResult("c-3"), nil
	}

	_, err := w.Do(ctx, "a", op)
	require.NoError(t, err)
	_, err = w.Do(ctx, "b", op)
	require.NoError(t, err)

	assert.Equal(t, int32(2), executions.Load())
	assert.Equal(t, 2, w.Len())
}

func TestRedisWrapper(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	w := idempotency.NewRedisWrapper(client, time.Minute)
	ctx := context.Background()

	t.Run("replays recorded outcome", func(t *testing.T) {
		var executions int
		op := func(ctx context.Context) (*models.IngestResult, error) {
			executions++
			return acceptedResult("c-4"), nil
		}

		first, err := w.Do(ctx, "redis-key", op)
		require.NoError(t, err)
		second, err := w.Do(ctx, "redis-key", op)
		require.NoError(t, err)

		assert.Equal(t, 1, executions)
		assert.Equal(t, first.CorrelationID, second.CorrelationID)
	})

	t.Run("replays recorded error", func(t *testing.T) {
		op := func(ctx context.Context) (*models.IngestResult, error) {
			return nil, assert.AnError
		}

		_, err := w.Do(ctx, "redis-err", op)
		require.Error(t, err)

		_, err = w.Do(ctx, "redis-err", func(ctx context.Context) (*models.IngestResult, error) {
			t.Fatal("operation must not re-execute")
			return nil, nil
		})
		require.Error(t, err)
		assert.Equal(t, assert.AnError.Error(), err.Error())
	})

	t.Run("replayed security error keeps its type", func(t *testing.T) {
		op := func(ctx context.Context) (*models.IngestResult, error) {
			return nil, faults.NewSecurityError(faults.CodeDeviceIntegrityFailed,
				"device d-1 failed integrity check")
		}

		_, err := w.Do(ctx, "redis-sec", op)
		require.Error(t, err)
		require.True(t, faults.IsSecurity(err))

		_, err = w.Do(ctx, "redis-sec", func(ctx context.Context) (*models.IngestResult, error) {
			t.Fatal("operation must not re-execute")
			return nil, nil
		})
		require.Error(t, err)
		assert.True(t, faults.IsSecurity(err), "replayed outcome must stay a security error")
		assert.Equal(t, faults.CodeDeviceIntegrityFailed, faults.SecurityCode(err))
		assert.Contains(t, err.Error(), "device d-1 failed integrity check")
	})
}
