package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apiutil "github.com/mailio/go-vault-server/api/util"
	"github.com/mailio/go-vault-server/global"
)

const (
	DefaultChallengeCookie = "sid"
	DefaultUserCookie      = "session"
)

func challengeCookieName() string {
	if global.Conf.Session.ChallengeCookie != "" {
		return global.Conf.Session.ChallengeCookie
	}
	return DefaultChallengeCookie
}

// UserCookieName is the cookie carrying the user session token
func UserCookieName() string {
	if global.Conf.Session.UserCookie != "" {
		return global.Conf.Session.UserCookie
	}
	return DefaultUserCookie
}

// set cookie in the response (httpOnly); maxAge <= 0 clears it
func setCookie(c *gin.Context, name string, value string, maxAge time.Duration) {
	secure := global.Conf.Session.SecureCookies
	if apiutil.IsLocalhost(c.Request.Host) {
		secure = false
	}
	cookie := http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   global.Conf.Session.CookieDomain,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
		cookie.Expires = time.Now().Add(maxAge)
	} else {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	}
	http.SetCookie(c.Writer, &cookie)
}
