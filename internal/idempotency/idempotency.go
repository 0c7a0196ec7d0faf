// Package idempotency provides keyed at-most-once execution. Concurrent
// callers sharing a key are collapsed into a single execution and all of
// them observe the same outcome; repeated submissions within the retention
// window replay the recorded outcome without re-executing.
package idempotency

import (
	"context"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

// Operation is the keyed unit of work guarded by the wrapper.
type Operation func(ctx context.Context) (*models.IngestResult, error)

// Wrapper executes a keyed operation with single-flight semantics.
type Wrapper interface {
	Do(ctx context.Context, key string, op Operation) (*models.IngestResult, error)
}
