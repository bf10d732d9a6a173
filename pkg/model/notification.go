package model

import "time"

type NotificationType string

const (
	NotificationNewRequest           NotificationType = "new_request"
	NotificationAppointmentAccepted  NotificationType = "appointment_accepted"
	NotificationAppointmentRejected  NotificationType = "appointment_rejected"
	NotificationAppointmentConfirmed NotificationType = "appointment_confirmed"
	NotificationAppointmentCancelled NotificationType = "appointment_cancelled"
)

type NotificationPayload struct {
	Type          NotificationType `json:"type" bson:"type"`
	Message       string           `json:"message" bson:"message"`
	AppointmentID string           `json:"appointment_id,omitempty" bson:"appointment_id,omitempty"`
	PaymentSecret string           `json:"payment_secret,omitempty" bson:"payment_secret,omitempty"`
	Location      *GeoLocation     `json:"location,omitempty" bson:"location,omitempty"`
}

// Notification is the durable record of one message to one recipient.
type Notification struct {
	ID          string              `json:"id" bson:"_id"`
	Recipient   Contact             `json:"recipient" bson:"recipient"`
	Payload     NotificationPayload `json:"payload" bson:"payload"`
	Channels    []string            `json:"channels,omitempty" bson:"channels,omitempty"`
	DeliveredAt *time.Time          `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	ReadAt      *time.Time          `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at" bson:"created_at"`
}

// Subject is a short title for email and push channels.
func (p NotificationPayload) Subject() string {
	switch p.Type {
	case NotificationNewRequest:
		return "New appointment request"
	case NotificationAppointmentAccepted:
		return "Appointment accepted"
	case NotificationAppointmentRejected:
		return "Appointment rejected"
	case NotificationAppointmentConfirmed:
		return "Appointment confirmed"
	case NotificationAppointmentCancelled:
		return "Appointment cancelled"
	}
	return "Appointment update"
}
