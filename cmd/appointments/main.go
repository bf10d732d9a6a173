package main

import (
	appointmentshandler "expertly/internal/appointments/handler"
	appointmentsrepo "expertly/internal/appointments/repository"
	appointmentsservice "expertly/internal/appointments/service"
	appointmentsvalidator "expertly/internal/appointments/validator"
	availabilityhandler "expertly/internal/availability/handler"
	availabilityservice "expertly/internal/availability/service"
	directoryrepo "expertly/internal/directory/repository"
	directoryservice "expertly/internal/directory/service"
	notificationsrepo "expertly/internal/notifications/repository"
	notificationsservice "expertly/internal/notifications/service"
	ratingshandler "expertly/internal/ratings/handler"
	ratingsrepo "expertly/internal/ratings/repository"
	ratingsservice "expertly/internal/ratings/service"
	ratingsvalidator "expertly/internal/ratings/validator"
	scheduleshandler "expertly/internal/schedules/handler"
	schedulesrepo "expertly/internal/schedules/repository"
	schedulesservice "expertly/internal/schedules/service"
	schedulesvalidator "expertly/internal/schedules/validator"
	"expertly/pkg/app"
	"expertly/pkg/auth"
	"expertly/pkg/config"
	"expertly/pkg/contracts"
	"expertly/pkg/kafka"
	kafka_config "expertly/pkg/kafka/config"
	kafka_middleware "expertly/pkg/kafka/middleware"
	"expertly/pkg/payment"
)

const (
	ServiceName = "appointments"
	TokenIssuer = "expertly"
)

func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.ValidateAPI(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Appointments service")
	serverApp := app.NewApplication()

	publisher := initPublisher(cfg, serverApp)
	handlers := initServices(cfg, publisher)

	serverApp.SetApp(cfg, handlers, auth.NewTokenManager(cfg.JWTSecret, TokenIssuer))
	serverApp.Run()
}

// initPublisher returns nil when no brokers are configured. Notifications are
// then stored in the database only.
func initPublisher(cfg *config.Config, serverApp *app.Application) notificationsservice.Publisher {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("KAFKA_BROKERS not set, notification events will not be published")
		return nil
	}

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.NotificationsTopic, kafkaCfg.NotificationsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	cfg.Log.Info("Publishing notification events", "topic", producer.Topic(), "brokers", kafkaCfg.Brokers)
	return producer
}

func initServices(cfg *config.Config, publisher notificationsservice.Publisher) contracts.Handlers {
	directory := directoryservice.NewDirectoryService(directoryrepo.NewMongoDirectoryRepository(cfg), cfg)

	scheduleService := schedulesservice.NewScheduleService(
		schedulesrepo.NewMongoScheduleRepository(cfg),
		directory,
		schedulesvalidator.NewScheduleValidator(cfg.Log),
		cfg,
	)

	appointmentRepo := appointmentsrepo.NewMongoAppointmentRepository(cfg)
	availabilityService := availabilityservice.NewAvailabilityService(directory, scheduleService, appointmentRepo, cfg)

	gateway := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey: cfg.StripeSecretKey,
		Timeout:   cfg.PaymentTimeout,
	}, cfg.Log)
	sink := notificationsservice.NewSink(notificationsrepo.NewMongoNotificationRepository(cfg), publisher, cfg.Log)

	appointmentService := appointmentsservice.NewAppointmentService(
		appointmentRepo,
		appointmentsrepo.NewBookingLockRepository(cfg),
		directory,
		scheduleService,
		gateway,
		sink,
		appointmentsvalidator.NewAppointmentValidator(cfg.Log),
		cfg,
	)

	ratingService := ratingsservice.NewRatingService(
		ratingsrepo.NewMongoRatingRepository(cfg),
		appointmentService,
		directory,
		ratingsvalidator.NewRatingValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Appointments service initialized", "database", cfg.MongoDatabaseName)
	return contracts.Handlers{
		scheduleshandler.NewScheduleHandler(scheduleService, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availabilityService, cfg.Log),
		appointmentshandler.NewAppointmentHandler(appointmentService, cfg.Log),
		ratingshandler.NewRatingHandler(ratingService, cfg.Log),
	}
}
