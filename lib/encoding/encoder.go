// Package encoding serializes engine state for transport outside the
// process: identity-key state maps carried across page loads, sessions,
// or machines.
//
// It supports two modes:
//   - Signed (default): msgpack + base64url + HMAC signature - visible
//     but tamper-proof
//   - Encrypted: AES-256-GCM - fully opaque
package encoding

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Sentinel errors for token decoding.
var (
	ErrInvalidFormat    = errors.New("encoding: invalid token format")
	ErrSignatureInvalid = errors.New("encoding: signature verification failed")
	ErrDecryptFailed    = errors.New("encoding: decryption failed")
)

// Codec encodes and decodes state tokens under one key.
type Codec struct {
	key []byte
	gcm cipher.AEAD
}

// NewCodec creates a codec from key. Keys shorter than 32 bytes are
// stretched with SHA-256 so AES-256 always gets a full-size key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) == 0 {
		return nil, errors.New("encoding: empty key")
	}
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, fmt.Errorf("encoding: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encoding: %w", err)
	}
	return &Codec{key: key, gcm: gcm}, nil
}

// Encode serializes v into a URL-safe token. If sensitive is true the
// token is encrypted; otherwise it is signed but readable.
func (c *Codec) Encode(v any, sensitive bool) (string, error) {
	packed, err := msgpack.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding: marshal: %w", err)
	}
	if sensitive {
		return c.encrypt(packed)
	}
	return c.sign(packed), nil
}

// Decode verifies (or decrypts) a token and unmarshals it into v.
func (c *Codec) Decode(token string, sensitive bool, v any) error {
	var (
		packed []byte
		err    error
	)
	if sensitive {
		packed, err = c.decrypt(token)
	} else {
		packed, err = c.verify(token)
	}
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(packed, v); err != nil {
		return fmt.Errorf("encoding: unmarshal: %w", err)
	}
	return nil
}

// sign creates a signed, visible token: base64(data).base64(signature).
func (c *Codec) sign(data []byte) string {
	b64 := base64.RawURLEncoding.EncodeToString(data)
	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16])
	return b64 + "." + sig
}

// verify checks a signed token and returns its payload.
func (c *Codec) verify(token string) ([]byte, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidFormat)
	}
	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	expected := mac.Sum(nil)[:16]
	if !hmac.Equal(sig, expected) {
		return nil, ErrSignatureInvalid
	}
	return data, nil
}

// encrypt creates an opaque token using AES-256-GCM.
func (c *Codec) encrypt(data []byte) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("encoding: %w", err)
	}
	ciphertext := c.gcm.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// decrypt decodes and opens an encrypted token.
func (c *Codec) decrypt(token string) ([]byte, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(ciphertext) < c.gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrInvalidFormat)
	}
	nonce := ciphertext[:c.gcm.NonceSize()]
	ciphertext = ciphertext[c.gcm.NonceSize():]
	plain, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}
