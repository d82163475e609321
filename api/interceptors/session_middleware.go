package interceptors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log/level"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/services"
	"github.com/mailio/go-vault-server/types"
)

const (
	ContextUser         = "user"
	ContextSessionToken = "sessionToken"
)

// SessionMiddleware resolves the user session cookie and aborts with 401 when there is no valid session
func SessionMiddleware(userService *services.UserService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "not authorized"})
			return
		}
		user, uErr := userService.FindUserBySession(c.Request.Context(), token)
		if uErr != nil {
			if errors.Is(uErr, types.ErrNotAuthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "not authorized"})
				return
			}
			level.Error(global.Logger).Log("msg", "failed to resolve user session", "error", uErr)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "failed to resolve session"})
			return
		}
		c.Set(ContextUser, user)
		c.Set(ContextSessionToken, token)
		c.Next()
	}
}

// CurrentUser returns the user set by SessionMiddleware
func CurrentUser(c *gin.Context) (*types.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*types.User)
	return user, ok && user != nil
}
