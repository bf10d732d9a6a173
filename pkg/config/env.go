package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvRedisURL          = "REDIS_URL"

	EnvPort       = "PORT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvAppBaseURL = "APP_BASE_URL"
	EnvJWTSecret  = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvStripeSecretKey       = "STRIPE_SECRET_KEY"
	EnvPaymentCurrency       = "PAYMENT_CURRENCY"
	EnvPaymentTimeout        = "PAYMENT_TIMEOUT"
	EnvPaymentMinAmountCents = "PAYMENT_MIN_AMOUNT_CENTS"

	EnvMinDeposit                = "MIN_DEPOSIT"
	EnvDepositRate               = "DEPOSIT_RATE"
	EnvDefaultSessionDurationMin = "DEFAULT_SESSION_DURATION_MIN"
	EnvMinAdvanceNotice          = "MIN_ADVANCE_NOTICE"
	EnvBookingLockTTL            = "BOOKING_LOCK_TTL"
	EnvBlockFixedBookings        = "BLOCK_FIXED_BOOKINGS"

	EnvSMTPHost     = "SMTP_HOST"
	EnvSMTPPort     = "SMTP_PORT"
	EnvSMTPUsername = "SMTP_USERNAME"
	EnvSMTPPassword = "SMTP_PASSWORD"
	EnvSMTPFrom     = "SMTP_FROM"
)
