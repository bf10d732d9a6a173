package model

import "time"

// BookingLock is an advisory lock held while an expert's calendar is checked and written.
// The unique _id makes a second concurrent holder fail with a duplicate key.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
