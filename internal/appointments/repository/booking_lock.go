package repository

import (
	"context"
	"fmt"
	"time"

	appointmentserrors "expertly/internal/appointments/errors"
	"expertly/pkg/config"
	"expertly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Booking_locks"

// BookingLockRepository provides advisory locks keyed by a caller-chosen _id.
type BookingLockRepository interface {
	// Acquire returns ErrLockHeld while another owner holds an unexpired lock with the same id.
	Acquire(ctx context.Context, lock *model.BookingLock) error
	Release(ctx context.Context, id, owner string) error
}

type mongoBookingLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoBookingLockRepository) Acquire(ctx context.Context, lock *model.BookingLock) error {
	lock.CreatedAt = time.Now().UTC()

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to acquire booking lock: %w", err)
	}

	// The TTL monitor runs about once a minute, so take over a lock that has expired
	// but not been swept yet.
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": lock.ID, "expires_at": bson.M{"$lt": lock.CreatedAt}},
		bson.M{"$set": bson.M{
			"owner":      lock.Owner,
			"expires_at": lock.ExpiresAt,
			"created_at": lock.CreatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to take over expired booking lock: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrLockHeld, lock.ID)
	}
	return nil
}

// Release only deletes the lock if owner still holds it.
func (r *mongoBookingLockRepository) Release(ctx context.Context, id, owner string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	if err != nil {
		return fmt.Errorf("failed to release booking lock: %w", err)
	}
	return nil
}
