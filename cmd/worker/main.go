package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"postura/api/internal/cache"
	"postura/api/internal/config"
	"postura/api/internal/database"
	"postura/api/internal/email"
	"postura/api/internal/log"
	"postura/api/internal/queue"
	"postura/api/internal/repository"
	"postura/api/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	mongoClient, err := database.NewMongoClient(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	tickets := repository.NewTicketRepository(mongoClient.Database(cfg.Mongo.Database))

	var sender email.Sender
	if cfg.Email.SMTP.Host != "" {
		smtp := cfg.Email.SMTP
		sender = email.NewSMTPSender(smtp.Host, smtp.Port, smtp.Username, smtp.Password, cfg.Email.From)
	}
	mailer := email.NewMailer(sender, cfg.Email, logger)

	processor := tasks.NewProcessor(mailer, tickets, cfg.Worker.EmailsPerSecond, logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Worker.Stream,
		cfg.Worker.Group,
		cfg.Worker.Consumer,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
