// Package crypto encrypts store credentials at rest.
//
// Stored values have the form iv_hex:ciphertext_hex:tag_hex (AES-256-GCM).
// Values without a colon predate encryption and are returned as-is.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"golang.org/x/crypto/scrypt"
)

const (
	keyLen   = 32
	ivLen    = 16
	tagLen   = 16
	kdfSalt  = "salt"
	scryptN  = 16384
	scryptR  = 8
	scryptP  = 1
	segments = 3
)

// ErrRootSecretRequired is returned when no root secret is configured
var ErrRootSecretRequired = errors.New("crypto: root secret is required")

// CredentialCipher encrypts and decrypts credential strings. It is safe for
// concurrent use.
type CredentialCipher struct {
	key []byte
}

// NewCredentialCipher derives the AES key from rootSecret with scrypt
func NewCredentialCipher(rootSecret string) (*CredentialCipher, error) {
	if rootSecret == "" {
		return nil, ErrRootSecretRequired
	}
	key, err := scrypt.Key([]byte(rootSecret), []byte(kdfSalt), scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("crypto: derive key: %w", err)
	}
	return &CredentialCipher{key: key}, nil
}

// IsEncrypted reports whether value uses the encrypted encoding
func IsEncrypted(value string) bool {
	return strings.Contains(value, ":")
}

// Encrypt returns the iv:ciphertext:tag encoding of plaintext.
// An empty plaintext encrypts to the empty string.
func (c *CredentialCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("crypto: generate iv: %w", err)
	}
	aead, err := c.aead(ivLen)
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	body, tag := sealed[:len(sealed)-tagLen], sealed[len(sealed)-tagLen:]
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(body) + ":" + hex.EncodeToString(tag), nil
}

// Decrypt reverses Encrypt. Legacy plaintext values are returned unchanged.
func (c *CredentialCipher) Decrypt(stored string) (string, error) {
	if !IsEncrypted(stored) {
		return stored, nil
	}

	parts := strings.Split(stored, ":")
	if len(parts) != segments {
		return "", fmt.Errorf("%w: expected %d segments, got %d", integration.ErrCredentialDecryptFail, segments, len(parts))
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) == 0 {
		return "", fmt.Errorf("%w: malformed iv", integration.ErrCredentialDecryptFail)
	}
	body, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", integration.ErrCredentialDecryptFail)
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != tagLen {
		return "", fmt.Errorf("%w: malformed auth tag", integration.ErrCredentialDecryptFail)
	}

	aead, err := c.aead(len(iv))
	if err != nil {
		return "", err
	}
	plaintext, err := aead.Open(nil, iv, append(body, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", integration.ErrCredentialDecryptFail)
	}
	return string(plaintext), nil
}

func (c *CredentialCipher) aead(nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("crypto: init cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrCredentialDecryptFail, err)
	}
	return aead, nil
}
