package service

import (
	"context"
	"time"

	"expertly/internal/notifications/repository"
	"expertly/pkg/kafka"
	"expertly/pkg/logger"
	"expertly/pkg/middleware"
	"expertly/pkg/model"

	"github.com/google/uuid"
)

const (
	EventSource   = "appointments"
	SchemaVersion = "1"
)

// Publisher is the outbound event stream. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Sink records notifications in the database inside the booking transaction and
// forwards them to the event stream once the transaction has committed.
type Sink struct {
	repo      repository.NotificationRepository
	publisher Publisher
	log       *logger.Logger
	now       func() time.Time
}

// NewSink builds a sink. A nil publisher keeps the database channel only.
func NewSink(repo repository.NotificationRepository, publisher Publisher, log *logger.Logger) *Sink {
	return &Sink{
		repo:      repo,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

func (s *Sink) Stage(ctx context.Context, recipient model.Contact, payload model.NotificationPayload) (*model.Notification, error) {
	n := &model.Notification{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Payload:   payload,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Publish never fails the caller. An unpublished notification stays in the database channel.
func (s *Sink) Publish(ctx context.Context, notifications ...*model.Notification) {
	if s.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	correlationID := middleware.RequestIDFromContext(ctx)

	for _, n := range notifications {
		if n == nil {
			continue
		}
		msg, err := kafka.NewMessage().
			WithKey(n.Payload.AppointmentID).
			WithValue(n).
			WithEventID(n.ID).
			WithEventType(string(n.Payload.Type)).
			WithCorrelationID(correlationID).
			WithSource(EventSource).
			WithSchemaVersion(SchemaVersion).
			Build()
		if err != nil {
			s.log.Error("Failed to build notification event", "notification_id", n.ID, "error", err)
			continue
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.log.Error("Failed to publish notification",
				"notification_id", n.ID,
				"appointment_id", n.Payload.AppointmentID,
				"type", n.Payload.Type,
				"error", err,
			)
		}
	}
}
