package services

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/types"
)

const (
	DefaultRegistrationTimeoutMs = 60000
)

// ES256 and RS256, the pair every platform authenticator supports
var DefaultCOSEAlgorithms = []int{-7, -257}

var (
	attestationValues      = []string{"none", "indirect", "direct", "enterprise"}
	attachmentValues       = []string{"platform", "cross-platform"}
	requirementValues      = []string{"discouraged", "preferred", "required"}
	supportedCOSEAlgorithm = map[int]bool{-7: true, -8: true, -35: true, -36: true, -37: true, -38: true, -39: true, -257: true, -258: true, -259: true}
)

// NewRelyingPartyConfig validates the webauthn section of the configuration and fills in defaults
func NewRelyingPartyConfig(conf global.WebAuthnConfig) (types.RelyingPartyConfig, error) {
	rp := types.RelyingPartyConfig{
		ID:                      conf.RPID,
		DisplayName:             conf.RPDisplayName,
		Origins:                 append([]string(nil), conf.RPOrigins...),
		TimeoutMs:               conf.TimeoutMs,
		Attestation:             protocol.ConveyancePreference(orDefault(conf.Attestation, "none")),
		AuthenticatorAttachment: protocol.AuthenticatorAttachment(orDefault(conf.AuthenticatorAttachment, "platform")),
		ResidentKey:             protocol.ResidentKeyRequirement(orDefault(conf.ResidentKey, "preferred")),
		UserVerification:        protocol.UserVerificationRequirement(orDefault(conf.UserVerification, "preferred")),
		Algorithms:              append([]int(nil), conf.Algorithms...),
		PlaceholderUser: types.WebAuthnUserInfo{
			ID:          []byte(orDefault(conf.PlaceholderUser.ID, "1234")),
			Name:        orDefault(conf.PlaceholderUser.Name, "User"),
			DisplayName: orDefault(conf.PlaceholderUser.DisplayName, "user"),
		},
	}
	if rp.DisplayName == "" {
		rp.DisplayName = rp.ID
	}
	if rp.TimeoutMs <= 0 {
		rp.TimeoutMs = DefaultRegistrationTimeoutMs
	}
	if len(rp.Algorithms) == 0 {
		rp.Algorithms = append([]int(nil), DefaultCOSEAlgorithms...)
	}
	if rp.ID == "" {
		return rp, fmt.Errorf("%w: webauthn rpId is required", types.ErrInvalidInput)
	}
	if len(rp.Origins) == 0 {
		return rp, fmt.Errorf("%w: at least one webauthn origin is required", types.ErrInvalidInput)
	}
	for _, origin := range rp.Origins {
		if !strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://") {
			return rp, fmt.Errorf("%w: webauthn origin %q must include the scheme", types.ErrInvalidInput, origin)
		}
	}
	if !oneOf(string(rp.Attestation), attestationValues) {
		return rp, fmt.Errorf("%w: unknown attestation preference %q", types.ErrInvalidInput, rp.Attestation)
	}
	if !oneOf(string(rp.AuthenticatorAttachment), attachmentValues) {
		return rp, fmt.Errorf("%w: unknown authenticator attachment %q", types.ErrInvalidInput, rp.AuthenticatorAttachment)
	}
	if !oneOf(string(rp.ResidentKey), requirementValues) {
		return rp, fmt.Errorf("%w: unknown resident key requirement %q", types.ErrInvalidInput, rp.ResidentKey)
	}
	if !oneOf(string(rp.UserVerification), requirementValues) {
		return rp, fmt.Errorf("%w: unknown user verification requirement %q", types.ErrInvalidInput, rp.UserVerification)
	}
	for _, alg := range rp.Algorithms {
		if !supportedCOSEAlgorithm[alg] {
			return rp, fmt.Errorf("%w: unsupported COSE algorithm %d", types.ErrInvalidInput, alg)
		}
	}
	return rp, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// RegistrationOptionsBuilder assembles the PublicKeyCredentialCreationOptions for a registration ceremony.
// It holds a private copy of the relying party configuration and is safe for concurrent use.
type RegistrationOptionsBuilder struct {
	rp types.RelyingPartyConfig
}

func NewRegistrationOptionsBuilder(rp types.RelyingPartyConfig) *RegistrationOptionsBuilder {
	rp.Origins = append([]string(nil), rp.Origins...)
	rp.Algorithms = append([]int(nil), rp.Algorithms...)
	rp.PlaceholderUser.ID = append([]byte(nil), rp.PlaceholderUser.ID...)
	return &RegistrationOptionsBuilder{rp: rp}
}

// Build returns the options for challenge. A nil user gets the placeholder identity.
// exclude lists credentials the user already registered.
func (b *RegistrationOptionsBuilder) Build(challenge []byte, user *types.WebAuthnUserInfo, exclude []webauthn.Credential) (*protocol.PublicKeyCredentialCreationOptions, error) {
	if len(challenge) == 0 {
		return nil, types.ErrInvalidInput
	}
	if user == nil {
		user = &b.rp.PlaceholderUser
	}
	if len(user.ID) == 0 || user.Name == "" {
		return nil, types.ErrInvalidInput
	}

	params := make([]protocol.CredentialParameter, 0, len(b.rp.Algorithms))
	for _, alg := range b.rp.Algorithms {
		params = append(params, protocol.CredentialParameter{
			Type:      protocol.PublicKeyCredentialType,
			Algorithm: webauthncose.COSEAlgorithmIdentifier(alg),
		})
	}

	requireResidentKey := protocol.ResidentKeyNotRequired()
	if b.rp.ResidentKey == protocol.ResidentKeyRequirementRequired {
		requireResidentKey = protocol.ResidentKeyRequired()
	}

	var excluded []protocol.CredentialDescriptor
	for _, c := range exclude {
		excluded = append(excluded, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: c.ID,
			Transport:    c.Transport,
		})
	}

	return &protocol.PublicKeyCredentialCreationOptions{
		RelyingParty: protocol.RelyingPartyEntity{
			CredentialEntity: protocol.CredentialEntity{Name: b.rp.DisplayName},
			ID:               b.rp.ID,
		},
		User: protocol.UserEntity{
			CredentialEntity: protocol.CredentialEntity{Name: user.Name},
			DisplayName:      user.DisplayName,
			ID:               protocol.URLEncodedBase64(append([]byte(nil), user.ID...)),
		},
		Challenge:             protocol.URLEncodedBase64(append([]byte(nil), challenge...)),
		Parameters:            params,
		Timeout:               b.rp.TimeoutMs,
		CredentialExcludeList: excluded,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: b.rp.AuthenticatorAttachment,
			RequireResidentKey:      requireResidentKey,
			ResidentKey:             b.rp.ResidentKey,
			UserVerification:        b.rp.UserVerification,
		},
		Attestation: b.rp.Attestation,
	}, nil
}

// WebAuthnService verifies attestation responses against a consumed challenge
type WebAuthnService struct {
	env              *types.Environment
	userVerification protocol.UserVerificationRequirement
}

func NewWebAuthnService(env *types.Environment, rp types.RelyingPartyConfig) *WebAuthnService {
	if env == nil || env.WebAuthN == nil {
		panic("webauthn not configured")
	}
	return &WebAuthnService{
		env:              env,
		userVerification: rp.UserVerification,
	}
}

// NewWebAuthn creates the attestation verifier for the relying party
func NewWebAuthn(rp types.RelyingPartyConfig) (*webauthn.WebAuthn, error) {
	return webauthn.New(&webauthn.Config{
		RPID:          rp.ID,
		RPDisplayName: rp.DisplayName,
		RPOrigins:     rp.Origins,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: rp.AuthenticatorAttachment,
			ResidentKey:             rp.ResidentKey,
			UserVerification:        rp.UserVerification,
		},
	})
}

// FinishRegistration parses the attestation response in body and verifies it was made over challenge
// by an authenticator acting for user.
func (s *WebAuthnService) FinishRegistration(user *types.User, challenge []byte, body io.Reader) (*webauthn.Credential, error) {
	parsed, pErr := protocol.ParseCredentialCreationResponseBody(body)
	if pErr != nil {
		level.Debug(global.Logger).Log("msg", "failed to parse credential creation response", "error", pErr)
		return nil, fmt.Errorf("%w: malformed attestation response", types.ErrInvalidInput)
	}
	wUser := types.NewWebAuthnUser(user)
	session := webauthn.SessionData{
		Challenge:        base64.RawURLEncoding.EncodeToString(challenge),
		UserID:           wUser.WebAuthnID(),
		UserVerification: s.userVerification,
	}
	credential, cErr := s.env.WebAuthN.CreateCredential(wUser, session, parsed)
	if cErr != nil {
		level.Warn(global.Logger).Log("msg", "failed to verify attestation", "error", cErr)
		return nil, types.ErrInvalidCredential
	}
	return credential, nil
}
