package kafka_config

import "time"

const (
	// Empty disables publishing; notifications then live only in the database outbox.
	DefaultKafkaBrokers = ""

	DefaultNotificationsTopic    = "appointment-notifications"
	DefaultNotificationsDLQTopic = "appointment-notifications-dlq"
	DefaultConsumerGroupID       = "expertly-notifier"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
	DefaultProducerWriteTimeout = 5 * time.Second

	DefaultConsumerStartOffset       = -2 // oldest, so a fresh group drains the backlog
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 10 * 1024 * 1024 // 10MB
	DefaultConsumerMaxWait           = 500 * time.Millisecond
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 10 * time.Second
	DefaultConsumerRebalanceTimeout  = 60 * time.Second
	DefaultConsumerMaxRetries        = 3
	DefaultConsumerRetryBackoff      = 500 * time.Millisecond
)
