// Package vault stores provider session tokens encrypted at rest.
// Tokens are sealed with an authenticated cipher; the plaintext form never
// reaches any store.
package vault

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/fluxgate-io/fluxgate/internal/faults"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

// SessionToken is the connector credential shape exchanged with callers.
// The Token field only ever exists in memory.
type SessionToken struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ConnectorID string    `json:"connectorId"`
	UserID      string    `json:"userId"`
	TenantID    string    `json:"tenantId"`
	Provider    string    `json:"provider"`
	Scopes      []string  `json:"scopes"`
}

// StoredSession is the at-rest form. Ciphertext is the packed
// nonce:authTag:ciphertext blob, hex-encoded per segment.
type StoredSession struct {
	ConnectorID string     `json:"connector_id"`
	UserID      string     `json:"user_id"`
	TenantID    string     `json:"tenant_id"`
	Provider    string     `json:"provider"`
	Scopes      []string   `json:"scopes"`
	Ciphertext  string     `json:"ciphertext"`
	ExpiresAt   time.Time  `json:"expires_at"`
	SyncCursor  string     `json:"sync_cursor,omitempty"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
}

// Store is the persistence port for encrypted sessions.
type Store interface {
	Put(ctx context.Context, session *StoredSession) error
	Get(ctx context.Context, connectorID string) (*StoredSession, error)
	Delete(ctx context.Context, connectorID string) error
	ListActive(ctx context.Context, userID string) ([]*StoredSession, error)
	ListByProvider(ctx context.Context, provider string) ([]*StoredSession, error)
	UpdateCursor(ctx context.Context, connectorID, cursor string, lastSyncAt time.Time) error
}

// Vault encrypts and decrypts session tokens around a Store.
type Vault struct {
	keyHex string
	store  Store
	logger *logging.Logger

	once    sync.Once
	aead    cipher.AEAD
	initErr error
}

// New creates a Vault. keyHex is validated lazily on first use: it must
// hex-decode to exactly 32 bytes, and absence or wrong length is a fatal
// configuration error at that point, not at startup.
func New(keyHex string, store Store, logger *logging.Logger) *Vault {
	if logger == nil {
		logger = logging.Default()
	}
	return &Vault{
		keyHex: keyHex,
		store:  store,
		logger: logger,
	}
}

func (v *Vault) cipher() (cipher.AEAD, error) {
	v.once.Do(func() {
		if v.keyHex == "" {
			v.initErr = faults.NewConfigError("vault.key", "encryption key is not set")
			return
		}
		key, err := hex.DecodeString(v.keyHex)
		if err != nil {
			v.initErr = faults.NewConfigError("vault.key", "encryption key is not valid hex")
			return
		}
		if len(key) != chacha20poly1305.KeySize {
			v.initErr = faults.NewConfigError("vault.key",
				fmt.Sprintf("encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key)))
			return
		}
		v.aead, v.initErr = chacha20poly1305.New(key)
	})
	return v.aead, v.initErr
}

// seal encrypts plaintext into the packed nonce:authTag:ciphertext form.
func (v *Vault) seal(plaintext string) (string, error) {
	aead, err := v.cipher()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, ":"), nil
}

// open decrypts a packed blob. Any malformed segment or authentication
// failure returns an error; callers map that to "not found".
func (v *Vault) open(packed string) (string, error) {
	aead, err := v.cipher()
	if err != nil {
		return "", err
	}

	parts := strings.Split(packed, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed sealed blob")
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != aead.NonceSize() {
		return "", fmt.Errorf("malformed nonce segment")
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("malformed tag segment")
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext segment")
	}

	plaintext, err := aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("authentication failed: %w", err)
	}
	return string(plaintext), nil
}

// StoreToken seals and persists a session token.
func (v *Vault) StoreToken(ctx context.Context, token *SessionToken) error {
	sealed, err := v.seal(token.Token)
	if err != nil {
		return err
	}

	session := &StoredSession{
		ConnectorID: token.ConnectorID,
		UserID:      token.UserID,
		TenantID:    token.TenantID,
		Provider:    token.Provider,
		Scopes:      token.Scopes,
		Ciphertext:  sealed,
		ExpiresAt:   token.ExpiresAt,
	}
	if err := v.store.Put(ctx, session); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// GetToken loads and decrypts a session token. A missing session and a
// session that fails authentication (tamper or wrong key) are reported
// identically as not found; the latter additionally raises a security
// alert log.
func (v *Vault) GetToken(ctx context.Context, connectorID string) (*SessionToken, bool, error) {
	// Surface key misconfiguration even when the session does not exist.
	if _, err := v.cipher(); err != nil {
		return nil, false, err
	}

	session, err := v.store.Get(ctx, connectorID)
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, false, nil
	}

	plaintext, err := v.open(session.Ciphertext)
	if err != nil {
		if faults.IsConfig(err) {
			return nil, false, err
		}
		v.logger.ErrorContext(ctx, "SECURITY ALERT: stored session failed authentication",
			logging.ConnectorID(connectorID),
			logging.Provider(session.Provider),
			logging.Error(err),
		)
		return nil, false, nil
	}

	return &SessionToken{
		Token:       plaintext,
		ExpiresAt:   session.ExpiresAt,
		ConnectorID: session.ConnectorID,
		UserID:      session.UserID,
		TenantID:    session.TenantID,
		Provider:    session.Provider,
		Scopes:      session.Scopes,
	}, true, nil
}

// DeleteToken removes a stored session.
func (v *Vault) DeleteToken(ctx context.Context, connectorID string) error {
	return v.store.Delete(ctx, connectorID)
}

// ListActive returns a user's unexpired stored sessions.
func (v *Vault) ListActive(ctx context.Context, userID string) ([]*StoredSession, error) {
	return v.store.ListActive(ctx, userID)
}

// ListByProvider returns all stored sessions for a provider.
func (v *Vault) ListByProvider(ctx context.Context, provider string) ([]*StoredSession, error) {
	return v.store.ListByProvider(ctx, provider)
}

// AdvanceCursor records a connector's new sync cursor after a successful run.
func (v *Vault) AdvanceCursor(ctx context.Context, connectorID, cursor string, lastSyncAt time.Time) error {
	return v.store.UpdateCursor(ctx, connectorID, cursor, lastSyncAt)
}
