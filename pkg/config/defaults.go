package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "expertly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaymentCurrency       = "usd"
	DefaultPaymentTimeout        = 10 * time.Second
	DefaultPaymentMinAmountCents = 50

	DefaultMinDeposit         = "10"
	DefaultDepositRate        = "0.2"
	DefaultSessionDurationMin = 60
	DefaultMinAdvanceNotice   = 24 * time.Hour
	DefaultBookingLockTTL     = 10 * time.Second
	DefaultBlockFixedBookings = false

	DefaultSMTPPort = 587
)
