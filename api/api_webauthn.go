package api

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log/level"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/mailio/go-vault-server/api/interceptors"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/services"
	"github.com/mailio/go-vault-server/types"
)

type WebAuthnApi struct {
	challengeService *services.ChallengeService
	optionsBuilder   *services.RegistrationOptionsBuilder
	webauthnService  *services.WebAuthnService
	userService      *services.UserService
}

func NewWebAuthnApi(challengeService *services.ChallengeService, optionsBuilder *services.RegistrationOptionsBuilder, webauthnService *services.WebAuthnService, userService *services.UserService) *WebAuthnApi {
	return &WebAuthnApi{
		challengeService: challengeService,
		optionsBuilder:   optionsBuilder,
		webauthnService:  webauthnService,
		userService:      userService,
	}
}

// RegistrationOptions godoc
// @Summary Registration options for a new platform authenticator
// @Description Issues a one-time challenge (session id in the sid cookie) and returns the credential creation options
// @Tags WebAuthn
// @Produce json
// @Success 200 {object} protocol.PublicKeyCredentialCreationOptions
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Router /api/v1/registration/options [post]
func (a *WebAuthnApi) RegistrationOptions(c *gin.Context) {
	ctx := c.Request.Context()

	// options are bound to the signed in user when there is one, otherwise a placeholder identity is used
	var user *types.User
	if token, err := c.Cookie(UserCookieName()); err == nil && token != "" {
		u, uErr := a.userService.FindUserBySession(ctx, token)
		if uErr != nil && !errors.Is(uErr, types.ErrNotAuthorized) {
			ApiErrorFromErr(c, uErr)
			return
		}
		user = u
	}

	var userInfo *types.WebAuthnUserInfo
	userID := ""
	if user != nil {
		userID = user.Username
		userInfo = &types.WebAuthnUserInfo{
			ID:          []byte(user.Handle),
			Name:        user.Username,
			DisplayName: user.Username,
		}
	}

	session, err := a.challengeService.Create(ctx, userID)
	if err != nil {
		ApiErrorFromErr(c, err)
		return
	}
	options, err := a.optionsBuilder.Build(session.Challenge, userInfo, credentialsOf(user))
	if err != nil {
		ApiErrorFromErr(c, err)
		return
	}

	setCookie(c, challengeCookieName(), session.ID, a.challengeService.TTL())
	c.JSON(http.StatusOK, options)
}

func credentialsOf(user *types.User) []webauthn.Credential {
	if user == nil {
		return nil
	}
	return user.Credentials
}

// VerifyRegistration godoc
// @Summary Verifies the attestation response against the challenge of the sid cookie
// @Description The challenge is consumed whether or not verification succeeds
// @Tags WebAuthn
// @Accept json
// @Produce json
// @Success 200 {object} types.OutputRegistrationVerify
// @Failure 400 {object} api.ApiError "invalid attestation response"
// @Failure 401 {object} api.ApiError "not authorized or invalid credential"
// @Failure 404 {object} api.ApiError "unknown registration session"
// @Failure 410 {object} api.ApiError "registration session expired or consumed"
// @Router /api/v1/registration/verify [post]
func (a *WebAuthnApi) VerifyRegistration(c *gin.Context) {
	user, ok := interceptors.CurrentUser(c)
	if !ok {
		ApiErrorf(c, http.StatusUnauthorized, "not authorized")
		return
	}
	sid, err := c.Cookie(challengeCookieName())
	if err != nil || sid == "" {
		ApiErrorf(c, http.StatusNotFound, "registration session not found")
		return
	}
	ctx := c.Request.Context()

	session, cErr := a.challengeService.Consume(ctx, sid)
	setCookie(c, challengeCookieName(), "", 0)
	if cErr != nil {
		ApiErrorFromErr(c, cErr)
		return
	}
	if session.UserID != "" && session.UserID != user.Username {
		level.Warn(global.Logger).Log("msg", "registration session belongs to another user", "username", user.Username)
		ApiErrorf(c, http.StatusUnauthorized, "not authorized")
		return
	}

	credential, fErr := a.webauthnService.FinishRegistration(user, session.Challenge, c.Request.Body)
	if fErr != nil {
		ApiErrorFromErr(c, fErr)
		return
	}
	if _, uErr := a.userService.AddCredential(ctx, user.Username, credential); uErr != nil {
		ApiErrorFromErr(c, uErr)
		return
	}
	c.JSON(http.StatusOK, types.OutputRegistrationVerify{CredentialID: base64.RawURLEncoding.EncodeToString(credential.ID)})
}
