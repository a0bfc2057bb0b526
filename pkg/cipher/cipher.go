// Package cipher encrypts chat message content at rest. Values are
// stored as "<hex nonce>:<hex ciphertext>" using AES-256-GCM.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

type Cipher struct {
	aead cipher.AEAD
}

// New derives a 32-byte key from the configured secret. A 64-char hex
// string is used as-is; anything else is hashed so operators can supply
// an arbitrary passphrase.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret is empty")
	}

	var key []byte
	if decoded, err := hex.DecodeString(secret); err == nil && len(decoded) == 32 {
		key = decoded
	} else {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initializing GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

func (c *Cipher) Decrypt(value string) (string, error) {
	nonceHex, dataHex, ok := strings.Cut(value, ":")
	if !ok {
		return "", fmt.Errorf("value is not in nonce:ciphertext form")
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		return "", fmt.Errorf("decoding nonce: %w", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	if len(nonce) != c.aead.NonceSize() {
		return "", fmt.Errorf("nonce length %d, want %d", len(nonce), c.aead.NonceSize())
	}
	plain, err := c.aead.Open(nil, nonce, data, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return string(plain), nil
}

// IsEncrypted reports whether a stored value matches the two-part
// hex:hex shape produced by Encrypt. Plaintext rows from before
// encryption was enabled fail this check and are returned as-is.
func IsEncrypted(value string) bool {
	left, right, ok := strings.Cut(value, ":")
	if !ok || left == "" || right == "" {
		return false
	}
	return isHex(left) && isHex(right)
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
