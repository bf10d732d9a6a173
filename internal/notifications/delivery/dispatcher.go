package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	notificationserrors "expertly/internal/notifications/errors"
	"expertly/internal/notifications/repository"
	"expertly/pkg/kafka"
	"expertly/pkg/logger"
	"expertly/pkg/model"
)

// Dispatcher turns notification events into deliveries. It is the notifier's Kafka handler.
type Dispatcher struct {
	repo     repository.NotificationRepository
	channels []Channel
	log      *logger.Logger
	now      func() time.Time
}

func NewDispatcher(repo repository.NotificationRepository, log *logger.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		channels: channels,
		log:      log,
		now:      time.Now,
	}
}

// Handle delivers one event. Redelivered events that were already delivered are acknowledged
// without sending again.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.Notification
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("malformed notification event", err)
	}
	if event.ID == "" {
		return kafka.NewPermanentError("notification event without id", nil)
	}

	stored, err := d.repo.FindByID(ctx, event.ID)
	switch {
	case errors.Is(err, notificationserrors.ErrNotFound):
		// The producing transaction never committed.
		d.log.Warn("Dropping event for unknown notification", "notification_id", event.ID)
		return nil
	case err != nil:
		return kafka.NewTransientError("failed to load notification", err)
	case stored.DeliveredAt != nil:
		d.log.Debug("Notification already delivered", "notification_id", stored.ID)
		return nil
	}

	var (
		sent     []string
		failures []error
	)
	for _, ch := range d.channels {
		if !ch.Accepts(stored.Recipient) {
			continue
		}
		if err := ch.Send(ctx, stored); err != nil {
			d.log.Error("Notification delivery failed",
				"notification_id", stored.ID,
				"channel", ch.Name(),
				"recipient_kind", stored.Recipient.Kind,
				"recipient_id", stored.Recipient.ID,
				"error", err,
			)
			failures = append(failures, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		sent = append(sent, ch.Name())
	}

	// Partial success is recorded as delivered so a retry does not resend on the channels that worked.
	if len(sent) == 0 && len(failures) > 0 {
		return errors.Join(failures...)
	}

	if err := d.repo.MarkDelivered(ctx, stored.ID, sent, d.now().UTC()); err != nil {
		return kafka.NewTransientError("failed to mark notification delivered", err)
	}

	d.log.Info("Notification delivered",
		"notification_id", stored.ID,
		"type", stored.Payload.Type,
		"channels", sent,
	)
	return nil
}
