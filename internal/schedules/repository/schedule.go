package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"expertly/pkg/config"
	mongotx "expertly/pkg/db/mongo"
	"expertly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Schedules"
)

type mongoScheduleRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type ScheduleRepository interface {
	FindByExpert(ctx context.Context, expertID string) ([]*model.ScheduleWindow, error)
	FindAvailable(ctx context.Context, expertID string, day model.Weekday) ([]*model.ScheduleWindow, error)
	DeleteByExpert(ctx context.Context, expertID string) (int64, error)
	InsertMany(ctx context.Context, windows []*model.ScheduleWindow) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoScheduleRepository(cfg *config.Config) ScheduleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoScheduleRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext cannot be wrapped without losing the session, so it is returned as is.
func (r *mongoScheduleRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoScheduleRepository) FindByExpert(ctx context.Context, expertID string) ([]*model.ScheduleWindow, error) {
	return r.find(ctx, bson.M{"expert_id": expertID})
}

func (r *mongoScheduleRepository) FindAvailable(ctx context.Context, expertID string, day model.Weekday) ([]*model.ScheduleWindow, error) {
	return r.find(ctx, bson.M{
		"expert_id":    expertID,
		"day":          day,
		"is_available": true,
	})
}

func (r *mongoScheduleRepository) find(ctx context.Context, filter bson.M) ([]*model.ScheduleWindow, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer cursor.Close(ctx)

	windows := []*model.ScheduleWindow{}
	if err = cursor.All(ctx, &windows); err != nil {
		return nil, fmt.Errorf("failed to decode schedules: %w", err)
	}

	// "HH:MM" sorts lexically; the day label does not, so order by week position here.
	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].Day.Index() < windows[j].Day.Index()
	})
	return windows, nil
}

func (r *mongoScheduleRepository) DeleteByExpert(ctx context.Context, expertID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"expert_id": expertID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete schedules: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoScheduleRepository) InsertMany(ctx context.Context, windows []*model.ScheduleWindow) error {
	if len(windows) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, len(windows))
	for i, w := range windows {
		w.ID = ""
		w.CreatedAt = now
		w.UpdatedAt = now
		docs[i] = w
	}

	result, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to create schedules: %w", err)
	}
	for i, id := range result.InsertedIDs {
		if oid, ok := id.(primitive.ObjectID); ok {
			windows[i].ID = oid.Hex()
		}
	}
	return nil
}

func (r *mongoScheduleRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
