package delivery

import (
	"context"
	"errors"
	"fmt"

	"expertly/pkg/kafka"
	"expertly/pkg/model"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

const ChannelPush = "push"

type pushPublisher interface {
	Publish(message *expo.PushMessage) (expo.PushResponse, error)
}

type PushChannel struct {
	client pushPublisher
}

// NewPushChannel talks to the Expo push service. config may be nil for the public endpoint.
func NewPushChannel(config *expo.ClientConfig) *PushChannel {
	return &PushChannel{client: expo.NewPushClient(config)}
}

func (c *PushChannel) Name() string { return ChannelPush }

func (c *PushChannel) Accepts(recipient model.Contact) bool {
	return recipient.PushToken != ""
}

func (c *PushChannel) Send(_ context.Context, n *model.Notification) error {
	token, err := expo.NewExponentPushToken(n.Recipient.PushToken)
	if err != nil {
		return kafka.NewPermanentError("invalid push token", err)
	}

	data := map[string]string{"type": string(n.Payload.Type)}
	if n.Payload.AppointmentID != "" {
		data["appointment_id"] = n.Payload.AppointmentID
	}

	response, err := c.client.Publish(&expo.PushMessage{
		To:       []expo.ExponentPushToken{token},
		Title:    n.Payload.Subject(),
		Body:     n.Payload.Message,
		Sound:    "default",
		Priority: expo.DefaultPriority,
		Data:     data,
	})
	if err != nil {
		return kafka.NewTransientError("failed to publish push notification", err)
	}

	if err := response.ValidateResponse(); err != nil {
		var notRegistered *expo.DeviceNotRegisteredError
		if errors.As(err, &notRegistered) {
			return kafka.NewPermanentError("push token no longer registered", err)
		}
		return fmt.Errorf("push notification rejected: %w", err)
	}
	return nil
}
