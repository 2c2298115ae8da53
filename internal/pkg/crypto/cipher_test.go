package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}

func TestCipher_RoundTrip(t *testing.T) {
	t.Parallel()
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	plaintext := EncodeDescriptor([]float64{0.12, -3.4, 0, 9.81})

	blob, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, blob.Ciphertext)
	assert.Len(t, blob.Nonce, 12)
	assert.Len(t, blob.Tag, 16)

	decrypted, err := c.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestCipher_TamperedCiphertext(t *testing.T) {
	t.Parallel()
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	blob, err := c.Encrypt([]byte("descriptor bytes"))
	require.NoError(t, err)

	blob.Ciphertext[0] ^= 0xff
	_, err = c.Decrypt(blob)
	assert.ErrorIs(t, err, ErrTemplateTampered)
}

func TestCipher_TamperedTag(t *testing.T) {
	t.Parallel()
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	blob, err := c.Encrypt([]byte("descriptor bytes"))
	require.NoError(t, err)

	blob.Tag[3] ^= 0x01
	_, err = c.Decrypt(blob)
	assert.ErrorIs(t, err, ErrTemplateTampered)
}

func TestCipher_WrongKey(t *testing.T) {
	t.Parallel()
	c1, err := NewCipher(testKey())
	require.NoError(t, err)

	otherKey := testKey()
	otherKey[0] ^= 0xff
	c2, err := NewCipher(otherKey)
	require.NoError(t, err)

	blob, err := c1.Encrypt([]byte("descriptor bytes"))
	require.NoError(t, err)

	_, err = c2.Decrypt(blob)
	assert.ErrorIs(t, err, ErrTemplateTampered)
}

func TestCipher_InvalidKeySize(t *testing.T) {
	t.Parallel()
	_, err := NewCipher([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestCipher_ForTenant_Isolation(t *testing.T) {
	t.Parallel()
	master, err := NewCipher(testKey())
	require.NoError(t, err)

	tenantA, err := master.ForTenant("tenant-a")
	require.NoError(t, err)
	tenantB, err := master.ForTenant("tenant-b")
	require.NoError(t, err)

	assert.False(t, bytes.Equal(tenantA.key, tenantB.key))

	blob, err := tenantA.Encrypt([]byte("descriptor bytes"))
	require.NoError(t, err)

	// A template sealed for one tenant must not open under another's key.
	_, err = tenantB.Decrypt(blob)
	assert.ErrorIs(t, err, ErrTemplateTampered)

	// Derivation is stable: a fresh derivation for the same tenant decrypts.
	tenantA2, err := master.ForTenant("tenant-a")
	require.NoError(t, err)
	plain, err := tenantA2.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("descriptor bytes"), plain)
}

func TestDescriptorCodec(t *testing.T) {
	t.Parallel()
	values := []float64{1.5, -2.25, 0.000001, 128}
	data := EncodeDescriptor(values)

	decoded, err := DecodeDescriptor(data, len(values))
	require.NoError(t, err)
	assert.Equal(t, values, decoded)

	_, err = DecodeDescriptor(data, len(values)+1)
	assert.ErrorIs(t, err, ErrMalformedDescriptor)

	_, err = DecodeDescriptor(data[:len(data)-1], len(values))
	assert.ErrorIs(t, err, ErrMalformedDescriptor)
}
