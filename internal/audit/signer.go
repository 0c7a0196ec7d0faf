// Package audit provides tamper-evidence signing and the best-effort
// ingest outcome feed.
package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Signer produces HMAC-SHA256 signatures over dead-letter entries so replay
// can detect tampering of the buffered raw input.
type Signer struct {
	secretKey []byte
}

// NewSigner creates a Signer with the given secret key.
func NewSigner(secretKey string) *Signer {
	return &Signer{
		secretKey: []byte(secretKey),
	}
}

// Sign returns the hex signature over an entry's identity and raw content.
func (s *Signer) Sign(correlationID string, createdAt time.Time, raw []byte) string {
	payload := correlationID + createdAt.Format(time.RFC3339Nano) + string(raw)
	h := hmac.New(sha256.New, s.secretKey)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether the signature matches the entry.
func (s *Signer) Verify(correlationID string, createdAt time.Time, raw []byte, signature string) bool {
	expected := s.Sign(correlationID, createdAt, raw)
	return hmac.Equal([]byte(expected), []byte(signature))
}
