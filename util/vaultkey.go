package util

import (
	"crypto/aes"
	"fmt"

	josecipher "github.com/go-jose/go-jose/v3/cipher"
	"github.com/mailio/go-vault-server/types"
)

const (
	// VaultKeySize is an AES-256 key
	VaultKeySize = 32
	// WrappedVaultKeySize is the RFC 3394 output for a VaultKeySize key (one extra 64 bit block)
	WrappedVaultKeySize = VaultKeySize + 8
)

// VaultKey decrypts the user's vault file. It only exists in client memory or wrapped.
type VaultKey []byte

// GenerateVaultKey returns a fresh random vault key from crypto/rand
func GenerateVaultKey() (VaultKey, error) {
	k, err := RandomBytes(VaultKeySize)
	if err != nil {
		return nil, err
	}
	return VaultKey(k), nil
}

// WrapVaultKey wraps the vault key with AES key wrap (RFC 3394, WebCrypto AES-KW).
// Wrapping is deterministic: the same key under the same wrap key gives the same bytes.
func WrapVaultKey(key VaultKey, wrapKey []byte) ([]byte, error) {
	if len(key) != VaultKeySize {
		return nil, fmt.Errorf("%w: vault key must be %d bytes", types.ErrInvalidInput, VaultKeySize)
	}
	block, err := aes.NewCipher(wrapKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidInput, err.Error())
	}
	return josecipher.KeyWrap(block, key)
}

// UnwrapVaultKey reverses WrapVaultKey. Every failure, wrong wrap key or altered blob alike,
// is reported as types.ErrUnwrapFailed.
func UnwrapVaultKey(wrapped []byte, wrapKey []byte) (VaultKey, error) {
	block, err := aes.NewCipher(wrapKey)
	if err != nil {
		return nil, types.ErrUnwrapFailed
	}
	if len(wrapped) != WrappedVaultKeySize {
		return nil, types.ErrUnwrapFailed
	}
	key, err := josecipher.KeyUnwrap(block, wrapped)
	if err != nil {
		return nil, types.ErrUnwrapFailed
	}
	return VaultKey(key), nil
}
