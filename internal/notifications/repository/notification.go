package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	notificationserrors "expertly/internal/notifications/errors"
	"expertly/pkg/config"
	"expertly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Notifications"

// NotificationRepository is the database channel of the notification sink.
type NotificationRepository interface {
	Insert(ctx context.Context, n *model.Notification) error
	FindByID(ctx context.Context, id string) (*model.Notification, error)
	MarkDelivered(ctx context.Context, id string, channels []string, at time.Time) error
}

type mongoNotificationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoNotificationRepository(cfg *config.Config) NotificationRepository {
	return &mongoNotificationRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

// Insert runs inside the caller's session when ctx is a mongo.SessionContext, so it commits
// or aborts together with the appointment write.
func (r *mongoNotificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	if _, ok := ctx.(mongo.SessionContext); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.WriteTimeout)
		defer cancel()
	}

	if _, err := r.collection.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *mongoNotificationRepository) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var n model.Notification
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", notificationserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return &n, nil
}

func (r *mongoNotificationRepository) MarkDelivered(ctx context.Context, id string, channels []string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"delivered_at": at, "channels": channels}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", notificationserrors.ErrNotFound, id)
	}
	return nil
}
