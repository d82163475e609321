package types

import "encoding/json"

type OutputUsername struct {
	Username string `json:"username"`
}

type OutputLogin struct {
	Username                  string `json:"username"`
	PassphraseWrappedVaultKey string `json:"passphraseWrappedVaultKey"`
	PassphraseKeySalt         string `json:"passphraseKeySalt"`
}

type OutputVaultFile struct {
	Data json.RawMessage `json:"data"`
}

type OutputRegistrationVerify struct {
	CredentialID string `json:"credentialId"`
}

// KDF parameters a client needs to compute a passphrase hash the server accepts
type OutputPassphraseParams struct {
	Algorithm  string `json:"algorithm"`
	Iterations int    `json:"iterations"`
	KeyLength  int    `json:"keyLength"`
	WordCount  int    `json:"wordCount"`
	Separator  string `json:"separator"`
}
