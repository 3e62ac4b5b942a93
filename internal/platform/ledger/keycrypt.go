package ledger

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Wallet seeds never touch disk in the clear. Stored blob layout:
// salt(16B) || nonce(12B) || AES-256-GCM(argon2id(passphrase, salt), nonce, seed).
const (
	keySaltLen  = 16
	keyNonceLen = 12

	argonTime        = 3
	argonMemory      = 64 * 1024
	argonParallelism = 4
	argonKeyLen      = 32
)

func EncryptKeySeed(seed []byte, passphrase string) ([]byte, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidKeySeed
	}

	salt := make([]byte, keySaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate key salt: %w", err)
	}

	gcm, err := newKeyCipher(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, keyNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate key nonce: %w", err)
	}

	blob := make([]byte, 0, keySaltLen+keyNonceLen+len(seed)+gcm.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	return gcm.Seal(blob, nonce, seed, nil), nil
}

func DecryptKeySeed(blob []byte, passphrase string) ([]byte, error) {
	if len(blob) < keySaltLen+keyNonceLen+1 {
		return nil, ErrInvalidKeyCiphertext
	}

	salt := blob[:keySaltLen]
	nonce := blob[keySaltLen : keySaltLen+keyNonceLen]
	ciphertext := blob[keySaltLen+keyNonceLen:]

	gcm, err := newKeyCipher(passphrase, salt)
	if err != nil {
		return nil, err
	}

	seed, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// GCM auth failure: wrong passphrase or corrupted blob.
		return nil, errors.Join(ErrWrongPassphrase, err)
	}
	return seed, nil
}

func newKeyCipher(passphrase string, salt []byte) (cipher.AEAD, error) {
	derived := argon2.IDKey(
		[]byte(passphrase),
		salt,
		argonTime,
		argonMemory,
		argonParallelism,
		argonKeyLen,
	)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("aes cipher for key seed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm for key seed: %w", err)
	}
	return gcm, nil
}
