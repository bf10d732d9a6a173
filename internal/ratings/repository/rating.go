package repository

import (
	"context"
	"fmt"
	"time"

	"expertly/pkg/config"
	mongotx "expertly/pkg/db/mongo"
	"expertly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Ratings"

type RatingRepository interface {
	// Upsert stores r keyed by (appointment_id, rated_by) and reports whether it was new.
	Upsert(ctx context.Context, r *model.Rate) (*model.Rate, bool, error)
	// Average is the mean of all stars the party received from the other side, 0 if none.
	Average(ctx context.Context, rated model.PartyKind, partyID string) (float64, error)
	ListByAppointment(ctx context.Context, appointmentID string) ([]*model.Rate, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoRatingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoRatingRepository(cfg *config.Config) RatingRepository {
	return &mongoRatingRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
func (r *mongoRatingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoRatingRepository) Upsert(ctx context.Context, rate *model.Rate) (*model.Rate, bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	filter := bson.M{"appointment_id": rate.AppointmentID, "rated_by": rate.RatedBy}
	update := bson.M{
		"$set": bson.M{
			"expert_id":         rate.ExpertID,
			"user_id":           rate.UserID,
			"stars":             rate.Stars,
			"comment":           rate.Comment,
			"low_rating_reason": rate.LowRatingReason,
			"updated_at":        now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored model.Rate
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		// Two first submissions raced on the unique index; the loser updates the winner's row.
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert rating: %w", err)
	}

	return &stored, stored.CreatedAt.Equal(stored.UpdatedAt), nil
}

func (r *mongoRatingRepository) Average(ctx context.Context, rated model.PartyKind, partyID string) (float64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	field := "user_id"
	if rated == model.PartyExpert {
		field = "expert_id"
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{field: partyID, "rated_by": rated.Counterpart()}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "average": bson.M{"$avg": "$stars"}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Average float64 `bson:"average"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode rating average: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Average, nil
}

func (r *mongoRatingRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]*model.Rate, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"appointment_id": appointmentID},
		options.Find().SetSort(bson.D{{Key: "rated_by", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer cursor.Close(ctx)

	rates := []*model.Rate{}
	if err := cursor.All(ctx, &rates); err != nil {
		return nil, fmt.Errorf("failed to decode ratings: %w", err)
	}
	return rates, nil
}

func (r *mongoRatingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
