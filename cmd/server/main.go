package main

import (
	"context"
	"fmt"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skybi/assetdesk/internal/api"
	"github.com/skybi/assetdesk/internal/api/portal/session"
	"github.com/skybi/assetdesk/internal/api/portal/session/storage/inmem"
	"github.com/skybi/assetdesk/internal/api/portal/session/storage/redis"
	"github.com/skybi/assetdesk/internal/config"
	"github.com/skybi/assetdesk/internal/identity"
	"github.com/skybi/assetdesk/internal/storage"
	"github.com/skybi/assetdesk/internal/storage/cache"
	"github.com/skybi/assetdesk/internal/storage/memory"
	"github.com/skybi/assetdesk/internal/storage/postgres"
	"os"
	"os/signal"
	"time"
)

const sessionCleanupInterval = 5 * time.Minute

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up...")

	// Load the application configuration
	log.Info().Msg("loading configuration...")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().Str("config", fmt.Sprintf("%+v", cfg)).Msg("")

	// Initialize the storage driver and wrap it into the caching layer
	log.Info().Str("driver", cfg.StorageDriver).Msg("initializing storage driver...")
	var underlying storage.Driver
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		underlying = postgres.New(cfg.PostgresDSN)
	default:
		log.Warn().Msg("using the in-memory storage driver; data will not survive a restart")
		underlying = memory.New()
	}
	if err := underlying.Initialize(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("could not initialize the storage driver")
	}
	driver := cache.New(underlying, cfg.StorageCacheLifetime)
	if err := driver.Initialize(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("could not initialize the storage cache")
	}
	defer driver.Close()

	// Initialize the session storage
	log.Info().Str("storage", cfg.SessionStorage).Msg("initializing session storage...")
	sessionStorage, closeSessionStorage, err := newSessionStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize the session storage")
	}
	defer closeSessionStorage()

	// Schedule a task that terminates expired sessions
	cleanupTask := identity.NewCleanupTask(sessionStorage, sessionCleanupInterval)
	cleanupTask.Start()
	defer cleanupTask.Stop(false)

	// Start up the portal
	log.Info().Str("address", cfg.ListenAddress).Msg("starting up the portal...")
	apis := &api.Service{
		Config:         cfg,
		Storage:        driver,
		SessionStorage: sessionStorage,
	}
	apiErrs := make(chan error, 1)
	apis.Startup(apiErrs)
	go func() {
		err := <-apiErrs
		log.Fatal().Err(err).Msg("the portal raised an unexpected error")
	}()
	defer func() {
		log.Info().Msg("shutting down the portal...")
		apis.Shutdown()
	}()

	log.Info().Msg("done!")
	defer log.Info().Msg("shutting down...")

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt)
	<-shutdown
}

func newSessionStorage(cfg *config.Config) (session.Storage, func(), error) {
	if cfg.SessionStorage == config.SessionStorageRedis {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		sessionStorage := redis.New(client)
		if err := sessionStorage.Ping(context.Background()); err != nil {
			client.Close()
			return nil, nil, err
		}
		return sessionStorage, func() { client.Close() }, nil
	}

	sessionStorage, err := inmem.New()
	if err != nil {
		return nil, nil, err
	}
	return sessionStorage, func() {}, nil
}
