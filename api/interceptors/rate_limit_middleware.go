package interceptors

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis_rate/v10"
	apiutil "github.com/mailio/go-vault-server/api/util"
	"github.com/mailio/go-vault-server/global"
)

const (
	LimitRequestsPerSecond     = 5
	LimitSensitivePerSecond    = 1
	sensitiveRateLimitSuffix   = "_sensitive"
	unknownRateLimitRemoteAddr = "unknown"
)

// login and challenge issuing get the tighter limit
var sensitivePaths = regexp.MustCompile("^/api/v.*/(login|registration/options)$")

// RateLimitMiddleware limits requests per client fingerprint (ip, user agent, language, referer)
func RateLimitMiddleware(limiter *redis_rate.Limiter, conf global.RateLimitConfig) gin.HandlerFunc {
	perSecond := conf.RequestsPerSecond
	if perSecond <= 0 {
		perSecond = LimitRequestsPerSecond
	}
	sensitivePerSecond := conf.LoginPerSecond
	if sensitivePerSecond <= 0 {
		sensitivePerSecond = LimitSensitivePerSecond
	}

	return func(c *gin.Context) {
		ip, ipErr := apiutil.GetIPFromContext(c)
		if ipErr != nil || ip == nil {
			unkn := unknownRateLimitRemoteAddr
			ip = &unkn
		}
		all := fmt.Sprintf("%s%s%s%s", *ip, c.GetHeader("User-Agent"), c.GetHeader("Accept-Language"), c.GetHeader("Referer"))

		limit := perSecond
		if sensitivePaths.MatchString(c.Request.URL.Path) {
			limit = sensitivePerSecond
			all += sensitiveRateLimitSuffix
		}

		hash := xxhash.Sum64String(all)

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second*5)
		defer cancel()

		result, err := limiter.Allow(ctx, strconv.FormatUint(hash, 10), redis_rate.PerSecond(limit))
		if err != nil {
			level.Error(global.Logger).Log("msg", "failed to perform rate limit check", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "failed to perform rate limit check"})
			return
		}
		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit.Rate))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Writer.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(result.ResetAfter.Milliseconds())))
		if result.Allowed <= 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"code": http.StatusTooManyRequests, "message": "too many requests"})
			return
		}
		c.Next()
	}
}
