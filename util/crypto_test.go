package util

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(SessionIDSize)
	require.NoError(t, err)
	b, err := GenerateToken(SessionIDSize)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, SessionIDSize)
}

func TestRandomIndex(t *testing.T) {
	for i := 0; i < 200; i++ {
		idx, err := RandomIndex(7)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 7)
	}
	_, err := RandomIndex(0)
	assert.Error(t, err)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual([]byte("abc"), []byte("abc")))
	assert.False(t, ConstantTimeEqual([]byte("abc"), []byte("abd")))
	assert.False(t, ConstantTimeEqual([]byte("abc"), []byte("ab")))
}

func TestDecodeHex(t *testing.T) {
	b, err := DecodeHex("0x0a0B")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x0b}, b)

	_, err = DecodeHex("zz")
	assert.Error(t, err)
	_, err = DecodeHex("")
	assert.Error(t, err)
}
