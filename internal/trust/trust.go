// Package trust defines the ports for the device trust gate and the device
// integrity checker. Both are external collaborators of the pipeline.
package trust

import "context"

// Status is the trust classification of an identity.
type Status string

const (
	StatusTrusted Status = "trusted"
	StatusSuspect Status = "suspect"
	StatusBlocked Status = "blocked"
)

// Gate yields a trust status per identity.
type Gate interface {
	Check(ctx context.Context, identity string) (Status, error)
}

// IntegrityChecker verifies device-telemetry inputs before normalization.
type IntegrityChecker interface {
	Verify(ctx context.Context, deviceID string, payload []byte) error
}
