package types

import "github.com/go-webauthn/webauthn/webauthn"

// User is the persisted account record. Username doubles as the document ID.
type User struct {
	BaseDocument              `json:",inline"`
	Username                  string                `json:"username" validate:"required"`
	Handle                    string                `json:"handle" validate:"required"` // opaque WebAuthn user handle
	PassphraseHash            string                `json:"passphraseHash,omitempty"`   // hex, pbkdf2(passphrase, username)
	PassphraseKeySalt         string                `json:"passphraseKeySalt,omitempty"`
	PassphraseWrappedVaultKey string                `json:"passphraseWrappedVaultKey,omitempty"`
	FileID                    string                `json:"fileId,omitempty"`
	Credentials               []webauthn.Credential `json:"credentials,omitempty"`
	Created                   int64                 `json:"created"`
	Modified                  int64                 `json:"modified,omitempty"`
}

// HasPassphrase reports whether the user already stored passphrase material
func (u *User) HasPassphrase() bool {
	return u.PassphraseHash != "" && u.PassphraseWrappedVaultKey != "" && u.PassphraseKeySalt != ""
}

// UserFields holds the mutable fields of a user record; nil values are left untouched
type UserFields struct {
	PassphraseHash            *string
	PassphraseKeySalt         *string
	PassphraseWrappedVaultKey *string
	FileID                    *string
	Credential                *webauthn.Credential
}
