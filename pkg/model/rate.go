package model

import "time"

type Rate struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty"`
	AppointmentID   string    `json:"appointment_id" bson:"appointment_id"`
	ExpertID        string    `json:"expert_id" bson:"expert_id"`
	UserID          string    `json:"user_id" bson:"user_id"`
	Stars           float64   `json:"stars" bson:"stars"`
	Comment         string    `json:"comment,omitempty" bson:"comment,omitempty"`
	LowRatingReason string    `json:"low_rating_reason,omitempty" bson:"low_rating_reason,omitempty"`
	RatedBy         PartyKind `json:"rated_by" bson:"rated_by"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// LowRatingThreshold is the star count below which a reason is mandatory.
const LowRatingThreshold = 3

type RateRequest struct {
	Stars           *float64 `json:"stars" validate:"required,min=0,max=5"`
	Comment         string   `json:"comment,omitempty" validate:"omitempty,max=1000"`
	LowRatingReason string   `json:"low_rating_reason,omitempty" validate:"omitempty,max=1000"`
}

// RateResult reports the stored rating and the rated party's new mean.
type RateResult struct {
	Rate    *Rate   `json:"rate"`
	Average float64 `json:"average"`
	Created bool    `json:"created"`
}
