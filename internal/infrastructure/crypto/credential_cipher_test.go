package crypto

import (
	"strings"
	"testing"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T, secret string) *CredentialCipher {
	c, err := NewCredentialCipher(secret)
	require.NoError(t, err)
	return c
}

func TestNewCredentialCipher_RequiresSecret(t *testing.T) {
	_, err := NewCredentialCipher("")
	assert.ErrorIs(t, err, ErrRootSecretRequired)
}

func TestCredentialCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t, "root-secret")

	encoded, err := c.Encrypt("ck_live_123")
	require.NoError(t, err)

	parts := strings.Split(encoded, ":")
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], ivLen*2)
	assert.Len(t, parts[2], tagLen*2)
	assert.NotContains(t, encoded, "ck_live_123")

	decoded, err := c.Decrypt(encoded)
	require.NoError(t, err)
	assert.Equal(t, "ck_live_123", decoded)

	again, err := c.Encrypt("ck_live_123")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, again, "each encryption uses a fresh iv")
}

func TestCredentialCipher_LegacyPlaintext(t *testing.T) {
	c := newTestCipher(t, "root-secret")

	got, err := c.Decrypt("cs_plain_value")
	require.NoError(t, err)
	assert.Equal(t, "cs_plain_value", got)

	empty, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCredentialCipher_Rejects(t *testing.T) {
	c := newTestCipher(t, "root-secret")
	encoded, err := c.Encrypt("secret")
	require.NoError(t, err)
	parts := strings.Split(encoded, ":")

	tests := map[string]string{
		"wrong segment count": "aa:bb",
		"bad iv hex":          "zz:" + parts[1] + ":" + parts[2],
		"short tag":           parts[0] + ":" + parts[1] + ":abcd",
		"tampered body":       parts[0] + ":" + strings.Repeat("0", len(parts[1])) + ":" + parts[2],
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decrypt(value)
			assert.ErrorIs(t, err, integration.ErrCredentialDecryptFail)
		})
	}

	t.Run("different root secret", func(t *testing.T) {
		_, err := newTestCipher(t, "other-secret").Decrypt(encoded)
		assert.ErrorIs(t, err, integration.ErrCredentialDecryptFail)
	})
}

func TestIsEncrypted(t *testing.T) {
	assert.True(t, IsEncrypted("a:b:c"))
	assert.False(t, IsEncrypted("ck_plain"))
}
