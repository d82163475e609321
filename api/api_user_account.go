package api

import (
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mailio/go-vault-server/api/interceptors"
	"github.com/mailio/go-vault-server/services"
	"github.com/mailio/go-vault-server/types"
	"github.com/mailio/go-vault-server/util"
)

type UserAccountApi struct {
	userService    *services.UserService
	sessionService *services.SessionService
	wordList       util.WordList
	kdfParams      util.KDFParams
	validate       *validator.Validate
}

func NewUserAccountApi(userService *services.UserService, sessionService *services.SessionService, wordList util.WordList, kdfParams util.KDFParams) *UserAccountApi {
	return &UserAccountApi{
		userService:    userService,
		sessionService: sessionService,
		wordList:       wordList,
		kdfParams:      kdfParams,
		validate:       validator.New(),
	}
}

// PassphraseParams godoc
// @Summary KDF parameters used for the wrap key and the passphrase hash
// @Tags User Account
// @Produce json
// @Success 200 {object} types.OutputPassphraseParams
// @Router /api/v1/passphrase/params [get]
func (ua *UserAccountApi) PassphraseParams(c *gin.Context) {
	c.JSON(http.StatusOK, types.OutputPassphraseParams{
		Algorithm:  "PBKDF2-HMAC-SHA256",
		Iterations: ua.kdfParams.Iterations,
		KeyLength:  ua.kdfParams.KeyLength,
		WordCount:  util.PassphraseWordCount,
		Separator:  util.PassphraseSeparator,
	})
}

// CreateUser godoc
// @Summary Creates a user with a generated username and signs it in
// @Tags User Account
// @Produce json
// @Success 200 {object} types.OutputUsername
// @Failure 409 {object} api.ApiError "could not find a free username"
// @Router /api/v1/user [post]
func (ua *UserAccountApi) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := ua.userService.CreateRandomUser(ctx, ua.wordList)
	if err != nil {
		ApiErrorFromErr(c, err)
		return
	}
	token, err := ua.userService.StartSession(ctx, user)
	if err != nil {
		ApiErrorFromErr(c, err)
		return
	}
	setCookie(c, UserCookieName(), token, ua.sessionService.TTL())
	c.JSON(http.StatusOK, types.OutputUsername{Username: user.Username})
}

// SetPassphrase godoc
// @Summary Stores the wrapped vault key, key salt and passphrase hash of the signed in user
// @Tags User Account
// @Accept json
// @Param passphrase body types.InputPassphrase true "client derived passphrase material (hex)"
// @Success 201
// @Failure 400 {object} api.ApiError "invalid input parameters"
// @Failure 401 {object} api.ApiError "not authorized"
// @Failure 409 {object} api.ApiError "passphrase already set"
// @Router /api/v1/account/passphrase [post]
func (ua *UserAccountApi) SetPassphrase(c *gin.Context) {
	user, ok := interceptors.CurrentUser(c)
	if !ok {
		ApiErrorf(c, http.StatusUnauthorized, "not authorized")
		return
	}
	var input types.InputPassphrase
	if !bindAndValidate(c, ua.validate, &input) {
		return
	}

	wrapped, wErr := util.DecodeHex(input.PassphraseWrappedVaultKey)
	salt, sErr := util.DecodeHex(input.PassphraseKeySalt)
	hash, hErr := util.DecodeHex(input.PassphraseHash)
	if wErr != nil || sErr != nil || hErr != nil {
		ApiErrorf(c, http.StatusBadRequest, "passphrase material must be hex encoded bytes")
		return
	}
	if len(wrapped) != util.WrappedVaultKeySize || len(salt) < util.KeySaltSize {
		ApiErrorf(c, http.StatusBadRequest, "invalid wrapped vault key or key salt length")
		return
	}
	canonical := &types.InputPassphrase{
		PassphraseWrappedVaultKey: hex.EncodeToString(wrapped),
		PassphraseKeySalt:         hex.EncodeToString(salt),
		PassphraseHash:            hex.EncodeToString(hash),
	}
	if _, err := ua.userService.SetPassphrase(c.Request.Context(), user, canonical); err != nil {
		ApiErrorFromErr(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// Login godoc
// @Summary Passphrase login
// @Description Compares the passphrase hash and returns the wrapped vault key with its salt for client side unwrapping
// @Tags User Account
// @Accept json
// @Produce json
// @Param login body types.InputLogin true "username and passphrase hash (hex)"
// @Success 200 {object} types.OutputLogin
// @Failure 400 {object} api.ApiError "invalid input parameters"
// @Failure 401 {object} api.ApiError "invalid credential"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Router /api/v1/login [post]
func (ua *UserAccountApi) Login(c *gin.Context) {
	var input types.InputLogin
	if !bindAndValidate(c, ua.validate, &input) {
		return
	}
	ctx := c.Request.Context()
	user, err := ua.userService.Login(ctx, input.Username, input.PassphraseHash)
	if err != nil {
		ApiErrorFromErr(c, err)
		return
	}
	token, err := ua.userService.StartSession(ctx, user)
	if err != nil {
		ApiErrorFromErr(c, err)
		return
	}
	setCookie(c, UserCookieName(), token, ua.sessionService.TTL())
	c.JSON(http.StatusOK, types.OutputLogin{
		Username:                  user.Username,
		PassphraseWrappedVaultKey: user.PassphraseWrappedVaultKey,
		PassphraseKeySalt:         user.PassphraseKeySalt,
	})
}

// Logout godoc
// @Summary Ends the current user session
// @Tags User Account
// @Success 204
// @Router /api/v1/logout [post]
func (ua *UserAccountApi) Logout(c *gin.Context) {
	if token, err := c.Cookie(UserCookieName()); err == nil && token != "" {
		if dErr := ua.userService.EndSession(c.Request.Context(), token); dErr != nil {
			ApiErrorFromErr(c, dErr)
			return
		}
	}
	setCookie(c, UserCookieName(), "", 0)
	c.Status(http.StatusNoContent)
}
