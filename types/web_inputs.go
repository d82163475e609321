package types

import "encoding/json"

// POST /account/passphrase
type InputPassphrase struct {
	PassphraseWrappedVaultKey string `json:"passphraseWrappedVaultKey" validate:"required,hexadecimal,len=80"` // 40 byte AES-KW output of a 32 byte key
	PassphraseKeySalt         string `json:"passphraseKeySalt" validate:"required,hexadecimal,min=32"`
	PassphraseHash            string `json:"passphraseHash" validate:"required,hexadecimal,min=32"`
}

// POST /login
type InputLogin struct {
	Username       string `json:"username" validate:"required"`
	PassphraseHash string `json:"passphraseHash" validate:"required,hexadecimal"`
}

// POST /vault/file
type InputVaultFile struct {
	Data json.RawMessage `json:"data" validate:"required"`
}
