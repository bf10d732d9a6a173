package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"expertly/internal/notifications/delivery"
	notificationsrepo "expertly/internal/notifications/repository"
	"expertly/pkg/config"
	"expertly/pkg/kafka"
	kafka_config "expertly/pkg/kafka/config"
	kafka_middleware "expertly/pkg/kafka/middleware"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kafkaCfg.Enabled() {
		cfg.Log.Fatal("KAFKA_BROKERS must be set for the notifier")
	}

	dispatcher := delivery.NewDispatcher(
		notificationsrepo.NewMongoNotificationRepository(cfg),
		cfg.Log,
		initChannels(cfg)...,
	)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		kafkaCfg.NotificationsTopic,
		kafkaCfg.ConsumerGroupID,
		kafkaCfg.NotificationsDLQTopic,
		dispatcher.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting notifier", "topic", kafkaCfg.NotificationsTopic, "group", kafkaCfg.ConsumerGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	cfg.Log.Info("Shutdown signal received, closing consumer")
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
}

func initChannels(cfg *config.Config) []delivery.Channel {
	channels := []delivery.Channel{delivery.NewPushChannel(nil)}

	if cfg.SMTPHost != "" {
		channels = append(channels, delivery.NewEmailChannel(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUsername,
			cfg.SMTPPassword,
			cfg.SMTPFrom,
			cfg.AppBaseURL,
		))
		cfg.Log.Info("Email delivery enabled", "host", cfg.SMTPHost)
	} else {
		cfg.Log.Info("SMTP_HOST not set, email delivery disabled")
	}

	return channels
}
