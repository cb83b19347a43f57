package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/opd-ai/chatsync/message"
)

// NonceSize is the size of the secretbox nonce prefixed to every
// sealed body.
const NonceSize = 24

// ErrDecryptionFailed indicates the ciphertext failed authentication
// under the session key.
var ErrDecryptionFailed = errors.New("decryption failed: message authentication failed")

// EncryptBody seals a plaintext body under the session key. The
// random nonce is prefixed to the ciphertext and the result is
// base64-encoded so it survives JSON transport without corruption.
func EncryptBody(plaintext string, key [32]byte) (string, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptBody reverses EncryptBody: decodes, splits off the nonce,
// and opens the box under the session key.
func DecryptBody(ciphertext string, key [32]byte) (string, error) {
	if ciphertext == "" {
		return "", errors.New("empty ciphertext")
	}

	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(sealed) <= NonceSize {
		return "", errors.New("ciphertext too short")
	}

	var nonce [NonceSize]byte
	copy(nonce[:], sealed[:NonceSize])

	plain, ok := secretbox.Open(nil, sealed[NonceSize:], &nonce, &key)
	if !ok {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}

// NewDecryptor adapts a session key to the engine's injected
// decryptor interface.
func NewDecryptor(key [32]byte) message.Decryptor {
	return func(ciphertext string) (string, error) {
		return DecryptBody(ciphertext, key)
	}
}
