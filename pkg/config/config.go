package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"expertly/pkg/client"
	"expertly/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	RedisURL          string

	Port       string
	AppBaseURL string
	JWTSecret  string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	StripeSecretKey       string
	PaymentCurrency       string
	PaymentTimeout        time.Duration
	PaymentMinAmountCents int64

	MinDeposit                decimal.Decimal
	DepositRate               decimal.Decimal
	DefaultSessionDurationMin int
	MinAdvanceNotice          time.Duration
	BookingLockTTL            time.Duration
	BlockFixedBookings        bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		RedisURL:          getEnvStr(EnvRedisURL, ""),

		Port:       getEnvStr(EnvPort, DefaultPort),
		AppBaseURL: getEnvStr(EnvAppBaseURL, ""),
		JWTSecret:  getEnvStr(EnvJWTSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		StripeSecretKey:       getEnvStr(EnvStripeSecretKey, ""),
		PaymentCurrency:       strings.ToLower(getEnvStr(EnvPaymentCurrency, DefaultPaymentCurrency)),
		PaymentTimeout:        getEnvDuration(EnvPaymentTimeout, DefaultPaymentTimeout),
		PaymentMinAmountCents: int64(getEnvNum(EnvPaymentMinAmountCents, DefaultPaymentMinAmountCents)),

		MinDeposit:                getEnvDecimal(EnvMinDeposit, DefaultMinDeposit),
		DepositRate:               getEnvDecimal(EnvDepositRate, DefaultDepositRate),
		DefaultSessionDurationMin: getEnvNum(EnvDefaultSessionDurationMin, DefaultSessionDurationMin),
		MinAdvanceNotice:          getEnvDuration(EnvMinAdvanceNotice, DefaultMinAdvanceNotice),
		BookingLockTTL:            getEnvDuration(EnvBookingLockTTL, DefaultBookingLockTTL),
		BlockFixedBookings:        getEnvBool(EnvBlockFixedBookings, DefaultBlockFixedBookings),

		SMTPHost:     getEnvStr(EnvSMTPHost, ""),
		SMTPPort:     getEnvNum(EnvSMTPPort, DefaultSMTPPort),
		SMTPUsername: getEnvStr(EnvSMTPUsername, ""),
		SMTPPassword: getEnvStr(EnvSMTPPassword, ""),
		SMTPFrom:     getEnvStr(EnvSMTPFrom, ""),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects the optional shared cache. It is a no-op when REDIS_URL is unset.
func (cfg *Config) SetRedis() {
	if cfg.RedisURL == "" {
		cfg.Log.Info("REDIS_URL not set, using in-process stores")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisURL, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.RedisURL != "" && !regexp.MustCompile(`^rediss?://`).MatchString(cfg.RedisURL) {
		errors = append(errors, "RedisURL must start with 'redis://' or 'rediss://'")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"PaymentTimeout", cfg.PaymentTimeout},
		{"BookingLockTTL", cfg.BookingLockTTL},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}
	if cfg.MinAdvanceNotice < 0 {
		errors = append(errors, fmt.Sprintf("MinAdvanceNotice cannot be negative, got: %s", cfg.MinAdvanceNotice))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if !regexp.MustCompile(`^[a-z]{3}$`).MatchString(cfg.PaymentCurrency) {
		errors = append(errors, fmt.Sprintf("PaymentCurrency must be a 3-letter ISO code, got: %s", cfg.PaymentCurrency))
	}
	if cfg.PaymentMinAmountCents < 0 {
		errors = append(errors, fmt.Sprintf("PaymentMinAmountCents cannot be negative, got: %d", cfg.PaymentMinAmountCents))
	}
	if cfg.MinDeposit.IsNegative() {
		errors = append(errors, fmt.Sprintf("MinDeposit cannot be negative, got: %s", cfg.MinDeposit))
	}
	if cfg.DepositRate.IsNegative() || cfg.DepositRate.GreaterThan(decimal.NewFromInt(1)) {
		errors = append(errors, fmt.Sprintf("DepositRate must be between 0 and 1, got: %s", cfg.DepositRate))
	}
	if cfg.DefaultSessionDurationMin <= 0 {
		errors = append(errors, fmt.Sprintf("DefaultSessionDurationMin must be positive, got: %d", cfg.DefaultSessionDurationMin))
	}

	if cfg.SMTPPort < 1 || cfg.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("SMTPPort must be between 1 and 65535, got: %d", cfg.SMTPPort))
	}

	return joinErrors(errors)
}

// ValidateAPI checks the settings only the HTTP API needs.
func (cfg *Config) ValidateAPI() error {
	var errors []string
	if len(cfg.JWTSecret) < 32 {
		errors = append(errors, "JWTSecret must be at least 32 characters")
	}
	if cfg.StripeSecretKey == "" {
		errors = append(errors, "StripeSecretKey cannot be empty")
	}
	return joinErrors(errors)
}

func joinErrors(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	errMsg := "Configuration validation failed:\n"
	for i, err := range errors {
		errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
	}
	return fmt.Errorf("%s", errMsg)
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_uri", redactURI(cfg.RedisURL),
		"port", cfg.Port,
		"app_base_url", cfg.AppBaseURL,
		"jwt_secret_set", cfg.JWTSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"stripe_key_set", cfg.StripeSecretKey != "",
		"payment_currency", cfg.PaymentCurrency,
		"payment_timeout", cfg.PaymentTimeout,
		"payment_min_amount_cents", cfg.PaymentMinAmountCents,
		"min_deposit", cfg.MinDeposit.String(),
		"deposit_rate", cfg.DepositRate.String(),
		"default_session_duration_min", cfg.DefaultSessionDurationMin,
		"min_advance_notice", cfg.MinAdvanceNotice,
		"booking_lock_ttl", cfg.BookingLockTTL,
		"block_fixed_bookings", cfg.BlockFixedBookings,
		"smtp_host", cfg.SMTPHost,
		"smtp_port", cfg.SMTPPort,
		"smtp_password_set", cfg.SMTPPassword != "",
	)
}

func redactURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(\w+(\+srv)?://)[^:@/]*:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDecimal(key, fallback string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(fallback)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
