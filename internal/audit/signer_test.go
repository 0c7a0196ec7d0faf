package audit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fluxgate-io/fluxgate/internal/audit"
)

func TestSigner(t *testing.T) {
	signer := audit.NewSigner("test-signing-key")
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	raw := []byte(`{"type":"text","content":"hello"}`)

	sig := signer.Sign("corr-1", createdAt, raw)
	assert.Len(t, sig, 64, "hex-encoded HMAC-SHA256")

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, sig, signer.Sign("corr-1", createdAt, raw))
	})

	t.Run("verifies untouched entry", func(t *testing.T) {
		assert.True(t, signer.Verify("corr-1", createdAt, raw, sig))
	})

	t.Run("rejects modified raw content", func(t *testing.T) {
		tampered := []byte(`{"type":"text","content":"hellp"}`)
		assert.False(t, signer.Verify("corr-1", createdAt, tampered, sig))
	})

	t.Run("rejects foreign correlation id", func(t *testing.T) {
		assert.False(t, signer.Verify("corr-2", createdAt, raw, sig))
	})

	t.Run("rejects shifted timestamp", func(t *testing.T) {
		assert.False(t, signer.Verify("corr-1", createdAt.Add(time.Nanosecond), raw, sig))
	})

	t.Run("rejects signature from another key", func(t *testing.T) {
		other := audit.NewSigner("another-key")
		assert.False(t, signer.Verify("corr-1", createdAt, raw, other.Sign("corr-1", createdAt, raw)))
	})
}
