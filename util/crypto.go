package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	// SessionIDSize is the number of random bytes behind a session identifier
	SessionIDSize = 32
	// ChallengeSize is the number of random bytes in a WebAuthn challenge
	ChallengeSize = 32
	// KeySaltSize is the size of the random salt used for the wrap key
	KeySaltSize = 16
)

// RandomBytes returns n bytes from crypto/rand
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// GenerateToken returns n random bytes encoded as unpadded base64url (cookie safe)
func GenerateToken(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RandomIndex returns a uniformly distributed integer in [0, n)
func RandomIndex(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("random index bound must be positive, got %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// ConstantTimeEqual compares two byte slices without leaking where they differ
func ConstantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
