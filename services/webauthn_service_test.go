package services

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRPID     = "vault.example.com"
	testRPOrigin = "https://vault.example.com"
)

func testRelyingParty(t *testing.T) types.RelyingPartyConfig {
	t.Helper()
	rp, err := NewRelyingPartyConfig(global.WebAuthnConfig{
		RPID:          testRPID,
		RPDisplayName: "Vault",
		RPOrigins:     []string{testRPOrigin},
	})
	require.NoError(t, err)
	return rp
}

func TestNewRelyingPartyConfigDefaults(t *testing.T) {
	rp := testRelyingParty(t)

	assert.Equal(t, DefaultRegistrationTimeoutMs, rp.TimeoutMs)
	assert.Equal(t, []int{-7, -257}, rp.Algorithms)
	assert.Equal(t, protocol.ConveyancePreference("none"), rp.Attestation)
	assert.Equal(t, protocol.AuthenticatorAttachment("platform"), rp.AuthenticatorAttachment)
	assert.Equal(t, protocol.ResidentKeyRequirement("preferred"), rp.ResidentKey)
	assert.Equal(t, protocol.UserVerificationRequirement("preferred"), rp.UserVerification)
	assert.Equal(t, []byte("1234"), rp.PlaceholderUser.ID)
	assert.Equal(t, "User", rp.PlaceholderUser.Name)
	assert.Equal(t, "user", rp.PlaceholderUser.DisplayName)
}

func TestNewRelyingPartyConfigRejectsInvalid(t *testing.T) {
	valid := global.WebAuthnConfig{RPID: testRPID, RPOrigins: []string{testRPOrigin}}

	cases := map[string]func(c *global.WebAuthnConfig){
		"missing rp id":     func(c *global.WebAuthnConfig) { c.RPID = "" },
		"missing origins":   func(c *global.WebAuthnConfig) { c.RPOrigins = nil },
		"origin scheme":     func(c *global.WebAuthnConfig) { c.RPOrigins = []string{"vault.example.com"} },
		"attestation":       func(c *global.WebAuthnConfig) { c.Attestation = "always" },
		"attachment":        func(c *global.WebAuthnConfig) { c.AuthenticatorAttachment = "usb" },
		"resident key":      func(c *global.WebAuthnConfig) { c.ResidentKey = "maybe" },
		"user verification": func(c *global.WebAuthnConfig) { c.UserVerification = "always" },
		"unknown algorithm": func(c *global.WebAuthnConfig) { c.Algorithms = []int{-7, 42} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			_, err := NewRelyingPartyConfig(c)
			assert.ErrorIs(t, err, types.ErrInvalidInput)
		})
	}
}

func TestBuildRegistrationOptionsSchema(t *testing.T) {
	builder := NewRegistrationOptionsBuilder(testRelyingParty(t))
	challenge := bytes.Repeat([]byte{0xfb}, 32)

	options, err := builder.Build(challenge, nil, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(options)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, base64.RawURLEncoding.EncodeToString(challenge), doc["challenge"])
	assert.Equal(t, map[string]interface{}{"name": "Vault", "id": testRPID}, doc["rp"])

	user := doc["user"].(map[string]interface{})
	assert.Equal(t, base64.RawURLEncoding.EncodeToString([]byte("1234")), user["id"])
	assert.Equal(t, "User", user["name"])
	assert.Equal(t, "user", user["displayName"])

	assert.Equal(t, []interface{}{
		map[string]interface{}{"type": "public-key", "alg": float64(-7)},
		map[string]interface{}{"type": "public-key", "alg": float64(-257)},
	}, doc["pubKeyCredParams"])
	assert.Equal(t, float64(DefaultRegistrationTimeoutMs), doc["timeout"])
	assert.Equal(t, "none", doc["attestation"])

	selection := doc["authenticatorSelection"].(map[string]interface{})
	assert.Equal(t, "platform", selection["authenticatorAttachment"])
	assert.Equal(t, false, selection["requireResidentKey"])
	assert.Equal(t, "preferred", selection["residentKey"])
	assert.Equal(t, "preferred", selection["userVerification"])
	assert.NotContains(t, doc, "excludeCredentials")
}

func TestBuildRegistrationOptionsForUser(t *testing.T) {
	rp := testRelyingParty(t)
	rp.ResidentKey = protocol.ResidentKeyRequirementRequired
	builder := NewRegistrationOptionsBuilder(rp)

	options, err := builder.Build([]byte{1, 2, 3}, &types.WebAuthnUserInfo{
		ID:          []byte("handle"),
		Name:        "alice42",
		DisplayName: "alice42",
	}, []webauthn.Credential{{ID: []byte{9, 9}}})
	require.NoError(t, err)

	assert.Equal(t, protocol.URLEncodedBase64("handle"), options.User.ID)
	assert.Equal(t, "alice42", options.User.Name)
	require.Len(t, options.CredentialExcludeList, 1)
	assert.Equal(t, protocol.URLEncodedBase64{9, 9}, options.CredentialExcludeList[0].CredentialID)
	require.NotNil(t, options.AuthenticatorSelection.RequireResidentKey)
	assert.True(t, *options.AuthenticatorSelection.RequireResidentKey)
}

func TestBuilderIsolatedFromCallerMutation(t *testing.T) {
	rp := testRelyingParty(t)
	builder := NewRegistrationOptionsBuilder(rp)
	rp.Algorithms[0] = -8
	rp.PlaceholderUser.ID[0] = 'x'

	options, err := builder.Build([]byte{1}, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, -7, options.Parameters[0].Algorithm)
	assert.Equal(t, protocol.URLEncodedBase64("1234"), options.User.ID)
}

func TestBuildRejectsEmptyInput(t *testing.T) {
	builder := NewRegistrationOptionsBuilder(testRelyingParty(t))

	_, err := builder.Build(nil, nil, nil)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = builder.Build([]byte{1}, &types.WebAuthnUserInfo{Name: "x"}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

// noneAttestation builds a registration response as a platform authenticator with "none" attestation would
func noneAttestation(t *testing.T, challenge []byte, origin string) []byte {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	x := make([]byte, 32)
	y := make([]byte, 32)
	priv.PublicKey.X.FillBytes(x)
	priv.PublicKey.Y.FillBytes(y)
	coseKey, err := cbor.Marshal(map[int]interface{}{1: 2, 3: -7, -1: 1, -2: x, -3: y})
	require.NoError(t, err)

	credID := make([]byte, 16)
	_, err = rand.Read(credID)
	require.NoError(t, err)

	rpIDHash := sha256.Sum256([]byte(testRPID))
	var authData bytes.Buffer
	authData.Write(rpIDHash[:])
	authData.WriteByte(0x45) // user present, user verified, attested credential data
	authData.Write([]byte{0, 0, 0, 0})
	authData.Write(make([]byte, 16))
	idLen := make([]byte, 2)
	binary.BigEndian.PutUint16(idLen, uint16(len(credID)))
	authData.Write(idLen)
	authData.Write(credID)
	authData.Write(coseKey)

	attestationObject, err := cbor.Marshal(map[string]interface{}{
		"fmt":      "none",
		"attStmt":  map[string]interface{}{},
		"authData": authData.Bytes(),
	})
	require.NoError(t, err)

	clientData, err := json.Marshal(map[string]interface{}{
		"type":      "webauthn.create",
		"challenge": base64.RawURLEncoding.EncodeToString(challenge),
		"origin":    origin,
	})
	require.NoError(t, err)

	body, err := json.Marshal(map[string]interface{}{
		"id":    base64.RawURLEncoding.EncodeToString(credID),
		"rawId": base64.RawURLEncoding.EncodeToString(credID),
		"type":  "public-key",
		"response": map[string]interface{}{
			"attestationObject": base64.RawURLEncoding.EncodeToString(attestationObject),
			"clientDataJSON":    base64.RawURLEncoding.EncodeToString(clientData),
		},
	})
	require.NoError(t, err)
	return body
}

func newTestWebAuthnService(t *testing.T) *WebAuthnService {
	t.Helper()
	rp := testRelyingParty(t)
	wa, err := NewWebAuthn(rp)
	require.NoError(t, err)
	return NewWebAuthnService(&types.Environment{WebAuthN: wa}, rp)
}

func TestFinishRegistration(t *testing.T) {
	ws := newTestWebAuthnService(t)
	user := &types.User{Username: "alice42", Handle: "handle-1"}
	challenge := bytes.Repeat([]byte{7}, 32)

	credential, err := ws.FinishRegistration(user, challenge, bytes.NewReader(noneAttestation(t, challenge, testRPOrigin)))
	require.NoError(t, err)
	assert.Len(t, credential.ID, 16)
	assert.Equal(t, "none", credential.AttestationType)
	assert.NotEmpty(t, credential.PublicKey)
}

func TestFinishRegistrationRejectsOtherChallenge(t *testing.T) {
	ws := newTestWebAuthnService(t)
	user := &types.User{Username: "alice42", Handle: "handle-1"}

	body := noneAttestation(t, bytes.Repeat([]byte{7}, 32), testRPOrigin)
	_, err := ws.FinishRegistration(user, bytes.Repeat([]byte{8}, 32), bytes.NewReader(body))
	assert.ErrorIs(t, err, types.ErrInvalidCredential)
}

func TestFinishRegistrationRejectsOtherOrigin(t *testing.T) {
	ws := newTestWebAuthnService(t)
	user := &types.User{Username: "alice42", Handle: "handle-1"}
	challenge := bytes.Repeat([]byte{7}, 32)

	body := noneAttestation(t, challenge, "https://evil.example.com")
	_, err := ws.FinishRegistration(user, challenge, bytes.NewReader(body))
	assert.ErrorIs(t, err, types.ErrInvalidCredential)
}

func TestFinishRegistrationMalformedBody(t *testing.T) {
	ws := newTestWebAuthnService(t)
	_, err := ws.FinishRegistration(&types.User{Username: "a", Handle: "h"}, []byte{1}, bytes.NewReader([]byte(`{"id":"x"}`)))
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
