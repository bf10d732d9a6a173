package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusAccepted  AppointmentStatus = "accepted"
	StatusRejected  AppointmentStatus = "rejected"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:  {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted: {StatusConfirmed, StatusCancelled},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s AppointmentStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Occupies reports whether an appointment in status s still holds its time range.
func (s AppointmentStatus) Occupies() bool {
	return s != StatusRejected && s != StatusCancelled
}

type GeoLocation struct {
	Latitude  float64 `json:"latitude" bson:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude" validate:"longitude"`
}

type Appointment struct {
	ID              string            `json:"id" bson:"_id,omitempty"`
	UserID          string            `json:"user_id" bson:"user_id"`
	ExpertID        string            `json:"expert_id" bson:"expert_id"`
	From            time.Time         `json:"from" bson:"from"`
	To              *time.Time        `json:"to,omitempty" bson:"to,omitempty"`
	TimeZone        string            `json:"time_zone" bson:"time_zone"`
	Status          AppointmentStatus `json:"status" bson:"status"`
	IsOpen          bool              `json:"is_open" bson:"is_open"`
	IsLocked        bool              `json:"is_locked" bson:"is_locked"`
	IsCompleted     bool              `json:"is_completed" bson:"is_completed"`
	DepositAmount   decimal.Decimal   `json:"deposit_amount" bson:"deposit_amount"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty" bson:"payment_intent_id"`
	Location        *GeoLocation      `json:"location,omitempty" bson:"location,omitempty"`
	CreatedAt       time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" bson:"updated_at"`

	// Populated on reads that preload the other party.
	Expert *Expert `json:"expert,omitempty" bson:"-"`
	User   *User   `json:"user,omitempty" bson:"-"`
}

// Covers reports whether t falls in [From, To). Open appointments without an end cover nothing by range.
func (a *Appointment) Covers(t time.Time) bool {
	if a.To == nil {
		return false
	}
	return !t.Before(a.From) && t.Before(*a.To)
}

// AppointmentRequest is the body of a booking request. Date is wall-clock time in TimeZone.
type AppointmentRequest struct {
	Date     string       `json:"date" validate:"required,booking_date"`
	TimeZone string       `json:"timezone" validate:"omitempty,timezone"`
	IsOpen   bool         `json:"is_open"`
	Location *GeoLocation `json:"location,omitempty" validate:"omitempty"`
}

type ExpertResponse string

const (
	ResponseAccept ExpertResponse = "accept"
	ResponseReject ExpertResponse = "reject"
)

type RespondRequest struct {
	Response ExpertResponse `json:"response" validate:"required,oneof=accept reject"`
}

type ConfirmPaymentRequest struct {
	PaymentMethod string `json:"payment_method,omitempty" validate:"omitempty,max=255"`
}

type CloseRequest struct {
	To *time.Time `json:"to,omitempty"`
}

// PaymentStatus is returned when the deposit has not settled yet, so the client can retry.
type PaymentStatus struct {
	AppointmentID   string `json:"appointment_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	PaymentStatus   string `json:"payment_status"`
	ClientSecret    string `json:"client_secret,omitempty"`
}

// AcceptResult carries what the user needs to pay the deposit.
type AcceptResult struct {
	Appointment  *Appointment `json:"appointment"`
	ClientSecret string       `json:"client_secret,omitempty"`
}
