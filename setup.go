package main

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis_rate/v10"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/repository"
	"github.com/mailio/go-vault-server/services"
	"github.com/mailio/go-vault-server/types"
	"github.com/redis/go-redis/v9"
)

const (
	sessionStoreRedis = "redis"
	storageTypeS3     = "s3"

	challengeKeyPrefix = "vault:kv:"
)

func initRedisClient(conf global.Config, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Host + ":" + strconv.Itoa(conf.Redis.Port),
		Username: conf.Redis.Username,
		Password: conf.Redis.Password,
		DB:       db,
	})
}

func initRedisRateLimiter(conf global.Config) (*redis.Client, *redis_rate.Limiter) {
	redisRateLimitClient := initRedisClient(conf, conf.Redis.DB+1)

	// clears all data in the rate limit database ignoring potential errors
	rCtx, rCancel := context.WithTimeout(context.Background(), time.Second*10)
	defer rCancel()
	_ = redisRateLimitClient.FlushDB(rCtx).Err()

	return redisRateLimitClient, redis_rate.NewLimiter(redisRateLimitClient)
}

// Configure DB Repositories and create DB Selector
func ConfigDBSelector() repository.DBSelector {
	dbSelector := repository.NewRepositorySelector()

	if !global.Conf.CouchDB.Enabled {
		level.Warn(global.Logger).Log("msg", "couchdb disabled, users and vault files are kept in memory")
		dbSelector.AddDB(repository.NewInMemoryRepository(repository.User))
		dbSelector.AddDB(repository.NewInMemoryRepository(repository.VaultFile))
		return dbSelector
	}

	// configure Repository (couchDB)
	repoUrl := global.Conf.CouchDB.Scheme + "://" + global.Conf.CouchDB.Host + ":" + strconv.Itoa(global.Conf.CouchDB.Port)
	userRepo, userRepoErr := repository.NewCouchDBRepository(repoUrl, repository.User, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)
	vaultFileRepo, vaultFileRepoErr := repository.NewCouchDBRepository(repoUrl, repository.VaultFile, global.Conf.CouchDB.Username, global.Conf.CouchDB.Password, false)

	repoErr := errors.Join(userRepoErr, vaultFileRepoErr)
	if repoErr != nil {
		level.Error(global.Logger).Log("msg", "failed to create repositories", "error", repoErr)
		panic(repoErr)
	}

	dbSelector.AddDB(userRepo)
	dbSelector.AddDB(vaultFileRepo)

	return dbSelector
}

// ConfigKeyValueStore returns the store behind challenges and user sessions.
// The in-memory store is swept by a cron job.
func ConfigKeyValueStore(conf *global.Config, env *types.Environment) repository.KeyValueStore {
	if conf.Session.Store == sessionStoreRedis {
		if env.RedisClient == nil {
			env.RedisClient = initRedisClient(*conf, conf.Redis.DB)
		}
		return repository.NewRedisKeyValueStore(env.RedisClient, challengeKeyPrefix)
	}

	store := repository.NewMemoryKeyValueStore()
	_, err := env.Cron.AddFunc("@every 1m", func() {
		if removed := store.RemoveExpired(); removed > 0 {
			level.Debug(global.Logger).Log("msg", "removed expired sessions", "count", removed)
		}
	})
	if err != nil {
		panic(err)
	}
	env.Cron.Start()
	return store
}

// ConfigS3Storage configures the S3 client when vault contents are stored in a bucket; returns nil otherwise
func ConfigS3Storage(conf *global.Config, env *types.Environment) services.BlobStore {
	if conf.Storage.Type != storageTypeS3 {
		return nil
	}
	credentials := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(conf.Storage.Key, conf.Storage.Secret, ""))
	awsConf, err := config.LoadDefaultConfig(context.TODO(), config.WithCredentialsProvider(credentials), config.WithRegion(conf.Storage.Region))
	if err != nil {
		panic(err)
	}
	s3Client := s3.NewFromConfig(awsConf)
	env.S3Client = s3Client
	env.S3Uploader = manager.NewUploader(s3Client)

	return services.NewS3Service(env, conf.Storage.Bucket)
}

func ConfigWebAuthN(conf *global.Config, env *types.Environment) types.RelyingPartyConfig {
	rp, err := services.NewRelyingPartyConfig(conf.WebAuthn)
	if err != nil {
		level.Error(global.Logger).Log("msg", "invalid webauthn configuration", "error", err)
		panic(err)
	}
	webAuthn, err := services.NewWebAuthn(rp)
	if err != nil {
		level.Error(global.Logger).Log("msg", "failed to create webauthn", "error", err)
		panic(err)
	}
	env.WebAuthN = webAuthn
	return rp
}
