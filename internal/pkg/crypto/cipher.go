package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	KeySize   = 32 // AES-256
	nonceSize = 12
	tagSize   = 16
)

var (
	// ErrTemplateTampered is returned when the GCM authentication tag does
	// not verify. Callers must treat this as fatal and reject the request.
	ErrTemplateTampered = errors.New("biometric template authentication failed")

	ErrInvalidKeySize = errors.New("encryption key must be 32 bytes")
)

// EncryptedBlob is the stored form of an encrypted descriptor. Ciphertext and
// tag are kept as separate columns so tampering with either is detectable.
type EncryptedBlob struct {
	Ciphertext []byte
	Nonce      []byte
	Tag        []byte
}

// Cipher performs authenticated encryption of biometric templates with a
// process-wide master key. The key is injected at construction and never
// stored alongside the template record.
type Cipher struct {
	key []byte
}

func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Cipher{key: k}, nil
}

// NewCipherFromHex builds a Cipher from a hex-encoded master key, the format
// used in configuration.
func NewCipherFromHex(hexKey string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	return NewCipher(key)
}

// ForTenant derives a tenant-scoped subkey via HKDF-SHA256 and returns a
// Cipher bound to it. Templates of different tenants never share a key.
func (c *Cipher) ForTenant(tenantID string) (*Cipher, error) {
	r := hkdf.New(sha256.New, c.key, nil, []byte("template:"+tenantID))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive tenant key: %w", err)
	}
	return &Cipher{key: key}, nil
}

func (c *Cipher) Encrypt(plaintext []byte) (EncryptedBlob, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("init gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return EncryptedBlob{}, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - tagSize

	return EncryptedBlob{
		Ciphertext: sealed[:split],
		Nonce:      nonce,
		Tag:        sealed[split:],
	}, nil
}

// Decrypt reverses Encrypt. A tag that does not verify yields
// ErrTemplateTampered; there is no cleartext fallback.
func (c *Cipher) Decrypt(blob EncryptedBlob) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	if len(blob.Nonce) != nonceSize {
		return nil, ErrTemplateTampered
	}

	sealed := make([]byte, 0, len(blob.Ciphertext)+len(blob.Tag))
	sealed = append(sealed, blob.Ciphertext...)
	sealed = append(sealed, blob.Tag...)

	plaintext, err := gcm.Open(nil, blob.Nonce, sealed, nil)
	if err != nil {
		return nil, ErrTemplateTampered
	}
	return plaintext, nil
}
