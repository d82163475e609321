package types

import (
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// RelyingPartyConfig is the immutable configuration the registration options are built from
type RelyingPartyConfig struct {
	ID                      string
	DisplayName             string
	Origins                 []string
	TimeoutMs               int
	Attestation             protocol.ConveyancePreference
	AuthenticatorAttachment protocol.AuthenticatorAttachment
	ResidentKey             protocol.ResidentKeyRequirement
	UserVerification        protocol.UserVerificationRequirement
	Algorithms              []int
	PlaceholderUser         WebAuthnUserInfo
}

// WebAuthnUserInfo is the {id, name, displayName} triple placed in the options bundle
type WebAuthnUserInfo struct {
	ID          []byte
	Name        string
	DisplayName string
}

// WebAuhnUser adapts a stored user to the webauthn.User interface
type WebAuhnUser struct {
	ID          []byte
	Name        string
	DisplayName string
	Credentials []webauthn.Credential
}

func NewWebAuthnUser(user *User) *WebAuhnUser {
	return &WebAuhnUser{
		ID:          []byte(user.Handle),
		Name:        user.Username,
		DisplayName: user.Username,
		Credentials: user.Credentials,
	}
}

// Implementing the WebAuthnID method
func (u *WebAuhnUser) WebAuthnID() []byte {
	return u.ID
}

// Implementing the WebAuthnName method
func (u *WebAuhnUser) WebAuthnName() string {
	return u.Name
}

// Implementing the WebAuthnDisplayName method
func (u *WebAuhnUser) WebAuthnDisplayName() string {
	return u.DisplayName
}

// Implementing the WebAuthnCredentials method
func (u *WebAuhnUser) WebAuthnCredentials() []webauthn.Credential {
	return u.Credentials
}

// Implementing the WebAuthnIcon method
func (u *WebAuhnUser) WebAuthnIcon() string {
	return ""
}
