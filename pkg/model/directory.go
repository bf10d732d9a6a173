package model

import "github.com/shopspring/decimal"

type Expert struct {
	ID                 string          `json:"id" bson:"_id,omitempty"`
	UserName           string          `json:"user_name" bson:"user_name"`
	Email              string          `json:"email,omitempty" bson:"email"`
	TimeZone           string          `json:"time_zone" bson:"time_zone"`
	HourlyRate         decimal.Decimal `json:"hourly_rate" bson:"hourly_rate"`
	SessionDurationMin int             `json:"session_duration_min,omitempty" bson:"session_duration_min"`
	Rate               float64         `json:"rate" bson:"rate"`
	PushToken          string          `json:"-" bson:"push_token,omitempty"`
}

type User struct {
	ID        string  `json:"id" bson:"_id,omitempty"`
	UserName  string  `json:"user_name" bson:"user_name"`
	Email     string  `json:"email,omitempty" bson:"email"`
	Rate      float64 `json:"rate" bson:"rate"`
	PushToken string  `json:"-" bson:"push_token,omitempty"`
}

// PartyKind tags which side of an appointment an actor is on.
type PartyKind string

const (
	PartyUser   PartyKind = "user"
	PartyExpert PartyKind = "expert"
)

func (k PartyKind) Valid() bool {
	return k == PartyUser || k == PartyExpert
}

// Counterpart is the other side of an appointment.
func (k PartyKind) Counterpart() PartyKind {
	if k == PartyUser {
		return PartyExpert
	}
	return PartyUser
}

// Contact is what notification delivery needs to reach a party.
type Contact struct {
	Kind      PartyKind `json:"kind" bson:"kind"`
	ID        string    `json:"id" bson:"id"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty"`
	PushToken string    `json:"push_token,omitempty" bson:"push_token,omitempty"`
}
