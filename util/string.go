package util

import (
	"encoding/hex"
	"strings"

	"github.com/mailio/go-vault-server/types"
)

// DecodeHex decodes a hex string, accepting an optional 0x prefix
func DecodeHex(str string) ([]byte, error) {
	str = strings.TrimPrefix(strings.TrimSpace(str), "0x")
	if str == "" {
		return nil, types.ErrInvalidInput
	}
	b, err := hex.DecodeString(str)
	if err != nil {
		return nil, types.ErrInvalidInput
	}
	return b, nil
}
