package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"postura/api/internal/cache"
	"postura/api/internal/catalog"
	"postura/api/internal/config"
	"postura/api/internal/database"
	"postura/api/internal/email"
	"postura/api/internal/facebook"
	"postura/api/internal/handlers"
	"postura/api/internal/jobs"
	"postura/api/internal/log"
	"postura/api/internal/memstore"
	"postura/api/internal/queue"
	"postura/api/internal/repository"
	"postura/api/internal/security"
	"postura/api/internal/server"
	"postura/api/internal/service"
	"postura/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	ctx := context.Background()

	deps := service.Dependencies{
		Factory:  security.NewTokenFactory(cfg.Security.AccessTokenSecret),
		Verifier: facebook.NewClient(cfg.Facebook),
	}

	var (
		mongoClient *mongo.Client
		source      catalog.Source
		db          handlers.Pinger
	)
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn().Msg("using in-memory document store")
		store := memstore.New()
		deps.Users = store.Users()
		deps.Tokens = store.Tokens()
		deps.InternalUsers = store.InternalUsers()
		deps.Firmware = store.Firmware()
		deps.Tickets = store.Tickets()
		source = store.Catalog()
		db = store
	default:
		mongoClient, err = database.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect mongo")
		}
		mdb := mongoClient.Database(cfg.Mongo.Database)
		if err := repository.EnsureIndexes(ctx, mdb); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure indexes")
		}
		users := repository.NewUserRepository(mdb)
		deps.Users = users
		deps.Tokens = repository.NewTokenRepository(mdb)
		deps.InternalUsers = repository.NewInternalUserRepository(mdb)
		deps.Firmware = repository.NewFirmwareRepository(mdb)
		deps.Tickets = repository.NewTicketRepository(mdb)
		source = repository.NewCatalogRepository(mdb)
		db = users
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		if cfg.Storage.Driver != "memory" {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		logger.Warn().Err(err).Msg("redis unavailable, rate limiting and ticket queue disabled")
		redisClient = nil
	}
	if redisClient != nil {
		deps.Queue = queue.NewTicketProducer(redisClient, cfg.Worker.Stream)
	}

	if cfg.Storage.Endpoint == "" {
		logger.Warn().Msg("no object storage endpoint, firmware kept in memory")
		deps.Blobs = storage.NewMemoryStore()
	} else {
		objectStore, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBuckets(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure buckets failed")
		}
		deps.Blobs = objectStore
	}

	var sender email.Sender
	if cfg.Email.SMTP.Host != "" {
		smtp := cfg.Email.SMTP
		sender = email.NewSMTPSender(smtp.Host, smtp.Port, smtp.Username, smtp.Password, cfg.Email.From)
	}
	deps.Mailer = email.NewMailer(sender, cfg.Email, logger)

	deps.Catalog = catalog.New(source, time.Now, logger)
	deps.Catalog.RefreshAll(ctx)

	services := service.New(cfg, deps, logger)
	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Options{
		Services: services,
		Tokens:   deps.Tokens,
		Admins:   deps.InternalUsers,
		Database: db,
		Cache:    redisClient,
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(deps.Catalog, cfg.Catalog.RefreshInterval, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, mongoClient, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, mongoClient *mongo.Client, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("mongo disconnect error")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
