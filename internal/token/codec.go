// Package token implements the encrypted, time-limited access tokens used
// by the QR sharing flow. A token carries its whole payload; nothing is
// persisted server-side, so redemption only needs the shared key.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCorrupt        = errors.New("access token is corrupt")
	ErrExpired        = errors.New("access token has expired")
	ErrSchemaMismatch = errors.New("access token payload is missing required fields")
)

// PayloadVersion is stamped into every issued token.
const PayloadVersion = 1

// TypeSubmissionAccess is the type discriminator for tokens that grant
// read access to a worker's submissions.
const TypeSubmissionAccess = "submission_access"

// Payload is the plaintext content of an access token. It exists only as
// an encrypted blob; it is never stored as an entity.
type Payload struct {
	UserID          string    `json:"userId"`
	UserEmail       string    `json:"userEmail"`
	UserDisplayName string    `json:"userDisplayName"`
	Type            string    `json:"type"`
	GeneratedAt     time.Time `json:"generatedAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	Version         int       `json:"version"`
}

// Codec encrypts and decrypts access-token payloads with AES-GCM under a
// single static key. decrypt(issue(x)) == x, but two issuances of the same
// payload produce different ciphertexts (fresh nonce each time).
type Codec struct {
	key []byte
	now func() time.Time // overridable in tests
}

// NewCodec creates a codec from the configured symmetric key. The key must
// be 16, 24, or 32 bytes (AES-128/192/256).
func NewCodec(key string) (*Codec, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, errors.New("access token key must be 16, 24, or 32 bytes")
	}
	return &Codec{key: []byte(key), now: time.Now}, nil
}

// Issue serializes and encrypts the payload, returning an opaque string
// safe for embedding in a URL.
func (c *Codec) Issue(payload Payload) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	// nonce || ciphertext, base64url without padding
	sealed := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Redeem decrypts and validates a token. It fails with ErrCorrupt when
// decryption or parsing fails, ErrSchemaMismatch when required fields are
// absent or the type discriminator is wrong, and ErrExpired once the
// current time passes the payload's expiry.
func (c *Codec) Redeem(tok string) (*Payload, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return nil, ErrCorrupt
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aesgcm.NonceSize() {
		return nil, ErrCorrupt
	}

	nonce, ciphertext := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCorrupt
	}

	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, ErrCorrupt
	}

	if payload.UserID == "" || payload.Type != TypeSubmissionAccess ||
		payload.ExpiresAt.IsZero() || payload.Version == 0 {
		return nil, ErrSchemaMismatch
	}
	if c.now().After(payload.ExpiresAt) {
		return nil, ErrExpired
	}

	return &payload, nil
}
