package apiroutes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/mailio/go-vault-server/api"
	restinterceptors "github.com/mailio/go-vault-server/api/interceptors"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/metrics"
	"github.com/mailio/go-vault-server/repository"
	"github.com/mailio/go-vault-server/services"
	"github.com/mailio/go-vault-server/types"
	"github.com/mailio/go-vault-server/util"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the stores and clients the REST API is built on
type Dependencies struct {
	DBSelector     repository.DBSelector
	ChallengeStore repository.KeyValueStore
	SessionStore   repository.KeyValueStore
	Environment    *types.Environment
	RelyingParty   types.RelyingPartyConfig
	WordList       util.WordList
	// optional, vault contents stay in the database when nil
	BlobStore services.BlobStore
	// optional, no rate limiting when nil
	RateLimiter *redis_rate.Limiter
}

// REST API routes
func ConfigRoutes(router *gin.Engine, deps Dependencies) *gin.Engine {
	// browsers send the session cookies cross origin only to the relying party origins
	if len(deps.RelyingParty.Origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.RelyingParty.Origins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// init metrics
	if global.Conf.Prometheus.Enabled {

		metrics.InitMetrics()

		authorized := router.Group("/metrics", gin.BasicAuth(gin.Accounts{
			global.Conf.Prometheus.Username: global.Conf.Prometheus.Password,
		}))

		authorized.GET("", gin.WrapH(promhttp.Handler()))
	}

	// SERVICE definitions
	challengeService := services.NewChallengeService(deps.ChallengeStore, seconds(global.Conf.Session.ChallengeTTLSeconds))
	sessionService := services.NewSessionService(deps.SessionStore, hours(global.Conf.Session.UserSessionTTLHours))
	userService := services.NewUserService(deps.DBSelector, sessionService)
	vaultFileService := services.NewVaultFileService(deps.DBSelector, userService, deps.BlobStore, global.Conf.Storage.Prefix)
	webauthnService := services.NewWebAuthnService(deps.Environment, deps.RelyingParty)
	optionsBuilder := services.NewRegistrationOptionsBuilder(deps.RelyingParty)

	// API definitions
	healthApi := api.NewHealthCheckAPI()
	webauthnApi := api.NewWebAuthnApi(challengeService, optionsBuilder, webauthnService, userService)
	accountApi := api.NewUserAccountApi(userService, sessionService, deps.WordList, kdfParams(global.Conf.Kdf))
	vaultApi := api.NewVaultApi(vaultFileService)

	router.GET("/healthz", healthApi.HealthCheck)

	publicMiddleware := []gin.HandlerFunc{metrics.MetricsMiddleware()}
	if deps.RateLimiter != nil && global.Conf.RateLimit.Enabled {
		publicMiddleware = append(publicMiddleware, restinterceptors.RateLimitMiddleware(deps.RateLimiter, global.Conf.RateLimit))
	}

	// PUBLIC API
	publicApi := router.Group("/api", publicMiddleware...)
	{
		publicApi.GET("/v1/passphrase/params", accountApi.PassphraseParams)
		publicApi.POST("/v1/registration/options", webauthnApi.RegistrationOptions)
		publicApi.POST("/v1/user", accountApi.CreateUser)
		publicApi.POST("/v1/login", accountApi.Login)
		publicApi.POST("/v1/logout", accountApi.Logout)
	}

	sessionMiddleware := append(append([]gin.HandlerFunc{}, publicMiddleware...), restinterceptors.SessionMiddleware(userService, api.UserCookieName()))
	rootApi := router.Group("/api", sessionMiddleware...)
	{
		rootApi.POST("/v1/registration/verify", webauthnApi.VerifyRegistration)
		rootApi.POST("/v1/account/passphrase", accountApi.SetPassphrase)
		rootApi.GET("/v1/vault/file", vaultApi.GetFile)
		rootApi.POST("/v1/vault/file", vaultApi.SaveFile)
	}

	return router
}

func kdfParams(conf global.KdfConfig) util.KDFParams {
	params := util.DefaultKDFParams
	if conf.Iterations > 0 {
		params.Iterations = conf.Iterations
	}
	if conf.KeyLength > 0 {
		params.KeyLength = conf.KeyLength
	}
	return params
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func hours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}
