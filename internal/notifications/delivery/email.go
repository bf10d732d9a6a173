package delivery

import (
	"context"
	"fmt"
	"strings"

	"expertly/pkg/model"

	"gopkg.in/gomail.v2"
)

const ChannelEmail = "email"

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailChannel struct {
	sender  mailSender
	from    string
	baseURL string
}

func NewEmailChannel(host string, port int, username, password, from, baseURL string) *EmailChannel {
	if from == "" {
		from = username
	}
	return &EmailChannel{
		sender:  gomail.NewDialer(host, port, username, password),
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *EmailChannel) Name() string { return ChannelEmail }

func (c *EmailChannel) Accepts(recipient model.Contact) bool {
	return recipient.Email != ""
}

// Send has no context support in gomail; the dialer's own timeout bounds it.
func (c *EmailChannel) Send(_ context.Context, n *model.Notification) error {
	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	if n.Recipient.Name != "" {
		m.SetAddressHeader("To", n.Recipient.Email, n.Recipient.Name)
	} else {
		m.SetHeader("To", n.Recipient.Email)
	}
	m.SetHeader("Subject", n.Payload.Subject())
	m.SetBody("text/plain", c.body(n))

	if err := c.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (c *EmailChannel) body(n *model.Notification) string {
	var b strings.Builder
	b.WriteString(n.Payload.Message)
	if n.Payload.AppointmentID != "" && c.baseURL != "" {
		fmt.Fprintf(&b, "\n\n%s/appointments/%s", c.baseURL, n.Payload.AppointmentID)
	}
	if loc := n.Payload.Location; loc != nil {
		fmt.Fprintf(&b, "\n\nLocation: %.6f, %.6f", loc.Latitude, loc.Longitude)
	}
	return b.String()
}
