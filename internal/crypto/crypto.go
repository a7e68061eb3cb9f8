// Package crypto seals clipboard history at rest.
//
// A 32-byte symmetric key is derived from the configured seal token using
// HKDF-SHA256. Record text is encrypted with NaCl secretbox and a random
// 24-byte nonce prepended to the ciphertext:
//
//	[ 24-byte nonce ][ ciphertext ]
//
// Deduplication needs a stable fingerprint of the plaintext, so Digest
// hashes with BLAKE3, keyed by the same secret when sealing is on. Sealed
// databases therefore never store an unkeyed hash of their contents.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	KeySize   = 32
	nonceSize = 24
)

// Key is a derived secretbox key.
type Key = [KeySize]byte

var (
	sealInfo   = []byte("nozzle-seal-v1")
	digestInfo = []byte("nozzle-digest-v1")

	// ErrOpen means ciphertext did not authenticate under the key.
	ErrOpen = errors.New("decryption failed (wrong seal token?)")
)

// DeriveKey derives the sealing key from token.
func DeriveKey(token string) (*Key, error) {
	return derive(token, sealInfo)
}

// DeriveDigestKey derives the BLAKE3 key Digest uses for token. It is
// independent of the sealing key.
func DeriveDigestKey(token string) (*Key, error) {
	return derive(token, digestInfo)
}

func derive(token string, info []byte) (*Key, error) {
	h := hkdf.New(sha256.New, []byte(token), nil, info)
	var key Key
	if _, err := io.ReadFull(h, key[:]); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return &key, nil
}

// Seal encrypts plaintext with key, prepending a random nonce.
func Seal(plaintext []byte, key *Key) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// Open decrypts ciphertext (nonce+ciphertext) with key.
func Open(ciphertext []byte, key *Key) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])
	plain, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrOpen
	}
	return plain, nil
}

// Digest returns the hex BLAKE3 hash of text, keyed when key is non-nil.
func Digest(text string, key *Key) string {
	if key == nil {
		sum := blake3.Sum256([]byte(text))
		return hex.EncodeToString(sum[:])
	}
	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		// NewKeyed only fails on a key that is not 32 bytes.
		panic(err)
	}
	_, _ = h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
