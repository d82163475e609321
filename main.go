package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-kit/log/level"
	"github.com/go-redis/redis_rate/v10"
	"github.com/mailio/go-vault-server/apiroutes"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/types"
	"github.com/mailio/go-vault-server/util"
	cfg "github.com/mailio/go-web3-kit/config"
	w3srv "github.com/mailio/go-web3-kit/gingonic"
	"golang.org/x/sys/unix"
)

func main() {
	var (
		configFile string
	)
	// configuration file optional path. Default:  current dir with  filename conf.yaml
	flag.StringVar(&configFile, "c", "conf.yaml", "Configuration file path.")
	flag.StringVar(&configFile, "config", "conf.yaml", "Configuration file path.")
	flag.Usage = usage
	flag.Parse()

	// loading configuration file
	err := cfg.NewYamlConfig(configFile, &global.Conf)
	if err != nil {
		global.Logger.Log(err, "conf.yaml failed to load")
		panic("Failed to load conf.yaml")
	}
	global.ConfigureLogLevel(global.Conf.Mode)

	env := types.NewEnvironment(nil)
	defer env.Cron.Stop()

	var limiter *redis_rate.Limiter
	if global.Conf.RateLimit.Enabled {
		rrClient, l := initRedisRateLimiter(global.Conf)
		defer rrClient.Close()
		limiter = l
	}

	words, wErr := util.LoadWordList(global.Conf.Passphrase.WordListPath)
	if wErr != nil {
		level.Error(global.Logger).Log("msg", "failed to load word list", "path", global.Conf.Passphrase.WordListPath, "error", wErr)
		panic(wErr)
	}

	// server wait to shutdown monitoring channels
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt, unix.SIGTERM)

	// init routing (for RESTful API endpoints)
	router := w3srv.NewAPIRouter(&global.Conf.YamlConfig)

	dbSelector := ConfigDBSelector()
	kvStore := ConfigKeyValueStore(&global.Conf, env)
	if env.RedisClient != nil {
		defer env.RedisClient.Close()
	}
	blobStore := ConfigS3Storage(&global.Conf, env)
	rp := ConfigWebAuthN(&global.Conf, env)

	// configure routes
	router = apiroutes.ConfigRoutes(router, apiroutes.Dependencies{
		DBSelector:     dbSelector,
		ChallengeStore: kvStore,
		SessionStore:   kvStore,
		Environment:    env,
		RelyingParty:   rp,
		WordList:       words,
		BlobStore:      blobStore,
		RateLimiter:    limiter,
	})

	// start server
	srv := w3srv.Start(&global.Conf.YamlConfig, router)
	// wait for server shutdown
	go w3srv.Shutdown(srv, quit, done)

	level.Info(global.Logger).Log("msg", "server is ready to handle requests", "port", global.Conf.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("%v\n", err))
	}

	<-done
}

// usage will print out the flag options for the server.
func usage() {
	usageStr := `Usage: vault-server [options]
	Server Options:
	-c, --config <file>              Configuration file path
`
	fmt.Printf("%s\n", usageStr)
	os.Exit(0)
}
