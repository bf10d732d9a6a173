package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	notificationserrors "expertly/internal/notifications/errors"
	"expertly/pkg/kafka"
	"expertly/pkg/logger"
	"expertly/pkg/model"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type mockRepo struct {
	stored    map[string]*model.Notification
	findErr   error
	delivered map[string][]string
}

func (m *mockRepo) Insert(ctx context.Context, n *model.Notification) error {
	m.stored[n.ID] = n
	return nil
}

func (m *mockRepo) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	n, ok := m.stored[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", notificationserrors.ErrNotFound, id)
	}
	return n, nil
}

func (m *mockRepo) MarkDelivered(ctx context.Context, id string, channels []string, at time.Time) error {
	if m.delivered == nil {
		m.delivered = map[string][]string{}
	}
	m.delivered[id] = channels
	return nil
}

type fakeChannel struct {
	name    string
	accepts bool
	err     error
	sent    int
}

func (f *fakeChannel) Name() string                         { return f.name }
func (f *fakeChannel) Accepts(recipient model.Contact) bool { return f.accepts }
func (f *fakeChannel) Send(ctx context.Context, n *model.Notification) error {
	f.sent++
	return f.err
}

func event(t *testing.T, n *model.Notification) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().WithKey(n.Payload.AppointmentID).WithValue(n).WithEventID(n.ID).Build()
	require.NoError(t, err)
	return msg
}

func storedNotification() *model.Notification {
	return &model.Notification{
		ID:        "n1",
		Recipient: model.Contact{Kind: model.PartyUser, ID: "u1", Email: "u1@example.com", PushToken: "ExponentPushToken[abc]"},
		Payload:   model.NotificationPayload{Type: model.NotificationAppointmentRejected, Message: "Your appointment request has been rejected by the expert.", AppointmentID: "a1"},
	}
}

func TestDispatcher_DeliversOnAcceptingChannels(t *testing.T) {
	n := storedNotification()
	repo := &mockRepo{stored: map[string]*model.Notification{"n1": n}}
	email := &fakeChannel{name: ChannelEmail, accepts: true}
	push := &fakeChannel{name: ChannelPush, accepts: false}

	err := NewDispatcher(repo, logger.Discard(), email, push).Handle(context.Background(), event(t, n))
	require.NoError(t, err)
	assert.Equal(t, 1, email.sent)
	assert.Equal(t, 0, push.sent)
	assert.Equal(t, []string{ChannelEmail}, repo.delivered["n1"])
}

func TestDispatcher_SkipsAlreadyDelivered(t *testing.T) {
	n := storedNotification()
	at := time.Now()
	n.DeliveredAt = &at
	repo := &mockRepo{stored: map[string]*model.Notification{"n1": n}}
	email := &fakeChannel{name: ChannelEmail, accepts: true}

	require.NoError(t, NewDispatcher(repo, logger.Discard(), email).Handle(context.Background(), event(t, n)))
	assert.Equal(t, 0, email.sent)
}

func TestDispatcher_UnknownNotificationIsDropped(t *testing.T) {
	repo := &mockRepo{stored: map[string]*model.Notification{}}
	email := &fakeChannel{name: ChannelEmail, accepts: true}

	require.NoError(t, NewDispatcher(repo, logger.Discard(), email).Handle(context.Background(), event(t, storedNotification())))
	assert.Equal(t, 0, email.sent)
}

func TestDispatcher_Errors(t *testing.T) {
	t.Run("malformed payload is permanent", func(t *testing.T) {
		d := NewDispatcher(&mockRepo{}, logger.Discard())
		err := d.Handle(context.Background(), kafka.Message{Value: []byte("{not json")})
		assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
	})

	t.Run("lookup failure is transient", func(t *testing.T) {
		d := NewDispatcher(&mockRepo{findErr: errors.New("server selection error")}, logger.Discard())
		err := d.Handle(context.Background(), event(t, storedNotification()))
		assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(err))
	})

	t.Run("all channels failing surfaces the cause", func(t *testing.T) {
		n := storedNotification()
		repo := &mockRepo{stored: map[string]*model.Notification{"n1": n}}
		email := &fakeChannel{name: ChannelEmail, accepts: true, err: kafka.NewTransientError("smtp", errors.New("connection refused"))}

		err := NewDispatcher(repo, logger.Discard(), email).Handle(context.Background(), event(t, n))
		assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(err))
		assert.Empty(t, repo.delivered)
	})

	t.Run("partial success is recorded", func(t *testing.T) {
		n := storedNotification()
		repo := &mockRepo{stored: map[string]*model.Notification{"n1": n}}
		email := &fakeChannel{name: ChannelEmail, accepts: true, err: errors.New("mailbox full")}
		push := &fakeChannel{name: ChannelPush, accepts: true}

		require.NoError(t, NewDispatcher(repo, logger.Discard(), email, push).Handle(context.Background(), event(t, n)))
		assert.Equal(t, []string{ChannelPush}, repo.delivered["n1"])
	})
}

type recordingSender struct {
	messages []*gomail.Message
	err      error
}

func (r *recordingSender) DialAndSend(m ...*gomail.Message) error {
	r.messages = append(r.messages, m...)
	return r.err
}

func TestEmailChannel_Send(t *testing.T) {
	sender := &recordingSender{}
	ch := &EmailChannel{sender: sender, from: "noreply@example.com", baseURL: "https://app.example.com"}

	n := storedNotification()
	n.Payload.Location = &model.GeoLocation{Latitude: 52.52, Longitude: 13.405}
	require.True(t, ch.Accepts(n.Recipient))
	require.NoError(t, ch.Send(context.Background(), n))
	require.Len(t, sender.messages, 1)

	m := sender.messages[0]
	assert.Equal(t, []string{"u1@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Appointment rejected"}, m.GetHeader("Subject"))

	body := ch.body(n)
	assert.True(t, strings.HasPrefix(body, n.Payload.Message))
	assert.Contains(t, body, "https://app.example.com/appointments/a1")
	assert.Contains(t, body, "Location: 52.520000, 13.405000")

	assert.False(t, ch.Accepts(model.Contact{ID: "u2"}))
}

func TestEmailChannel_SendError(t *testing.T) {
	ch := &EmailChannel{sender: &recordingSender{err: errors.New("dial tcp: connection refused")}, from: "noreply@example.com"}
	err := ch.Send(context.Background(), storedNotification())
	assert.Error(t, err)
	assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(err))
}

type fakePush struct {
	got      *expo.PushMessage
	response expo.PushResponse
	err      error
}

func (f *fakePush) Publish(message *expo.PushMessage) (expo.PushResponse, error) {
	f.got = message
	return f.response, f.err
}

func TestPushChannel_Send(t *testing.T) {
	client := &fakePush{response: expo.PushResponse{ID: "r1", Status: expo.SuccessStatus}}
	ch := &PushChannel{client: client}

	n := storedNotification()
	require.NoError(t, ch.Send(context.Background(), n))
	require.NotNil(t, client.got)
	assert.Equal(t, "Appointment rejected", client.got.Title)
	assert.Equal(t, "a1", client.got.Data["appointment_id"])
	assert.Equal(t, expo.ExponentPushToken("ExponentPushToken[abc]"), client.got.To[0])
}

func TestPushChannel_Errors(t *testing.T) {
	t.Run("malformed token", func(t *testing.T) {
		n := storedNotification()
		n.Recipient.PushToken = "not-a-token"
		err := (&PushChannel{client: &fakePush{}}).Send(context.Background(), n)
		assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
	})

	t.Run("device not registered", func(t *testing.T) {
		client := &fakePush{response: expo.PushResponse{
			Status:  "error",
			Message: "not registered",
			Details: map[string]string{"error": expo.ErrorDeviceNotRegistered},
		}}
		err := (&PushChannel{client: client}).Send(context.Background(), storedNotification())
		assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
	})

	t.Run("transport failure", func(t *testing.T) {
		client := &fakePush{err: errors.New("unexpected EOF")}
		err := (&PushChannel{client: client}).Send(context.Background(), storedNotification())
		assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(err))
	})
}
