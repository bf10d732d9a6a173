package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	directoryerrors "expertly/internal/directory/errors"
	"expertly/pkg/config"
	"expertly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ExpertsCollection = "Experts"
	UsersCollection   = "Users"
)

// DirectoryRepository reads expert and user profiles. Profiles are owned by another service;
// the only write here is the denormalized rating mean.
type DirectoryRepository interface {
	FindExpert(ctx context.Context, id string) (*model.Expert, error)
	FindUser(ctx context.Context, id string) (*model.User, error)
	FindExperts(ctx context.Context, ids []string) (map[string]*model.Expert, error)
	FindUsers(ctx context.Context, ids []string) (map[string]*model.User, error)
	UpdateRate(ctx context.Context, kind model.PartyKind, id string, rate float64) error
}

type mongoDirectoryRepository struct {
	cfg     *config.Config
	experts *mongo.Collection
	users   *mongo.Collection
}

func NewMongoDirectoryRepository(cfg *config.Config) DirectoryRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDirectoryRepository{
		cfg:     cfg,
		experts: db.Collection(ExpertsCollection),
		users:   db.Collection(UsersCollection),
	}
}

func (r *mongoDirectoryRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoDirectoryRepository) FindExpert(ctx context.Context, id string) (*model.Expert, error) {
	var expert model.Expert
	if err := r.findOne(ctx, r.experts, id, &expert); err != nil {
		return nil, err
	}
	return &expert, nil
}

func (r *mongoDirectoryRepository) FindUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.findOne(ctx, r.users, id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *mongoDirectoryRepository) findOne(ctx context.Context, coll *mongo.Collection, id string, out any) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", directoryerrors.ErrInvalidID, id)
	}

	err = coll.FindOne(ctx, bson.M{"_id": objectID}).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: %s", directoryerrors.ErrNotFound, id)
		}
		return fmt.Errorf("failed to find %s: %w", coll.Name(), err)
	}
	return nil
}

func (r *mongoDirectoryRepository) FindExperts(ctx context.Context, ids []string) (map[string]*model.Expert, error) {
	var experts []*model.Expert
	if err := r.findMany(ctx, r.experts, ids, &experts); err != nil {
		return nil, err
	}
	out := make(map[string]*model.Expert, len(experts))
	for _, e := range experts {
		out[e.ID] = e
	}
	return out, nil
}

func (r *mongoDirectoryRepository) FindUsers(ctx context.Context, ids []string) (map[string]*model.User, error) {
	var users []*model.User
	if err := r.findMany(ctx, r.users, ids, &users); err != nil {
		return nil, err
	}
	out := make(map[string]*model.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// findMany skips ids that are not valid ObjectIDs; callers treat a missing entry as unknown.
func (r *mongoDirectoryRepository) findMany(ctx context.Context, coll *mongo.Collection, ids []string, out any) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}
	if len(objectIDs) == 0 {
		return nil
	}

	cursor, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return nil
}

func (r *mongoDirectoryRepository) UpdateRate(ctx context.Context, kind model.PartyKind, id string, rate float64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", directoryerrors.ErrInvalidID, id)
	}

	coll := r.users
	if kind == model.PartyExpert {
		coll = r.experts
	}

	result, err := coll.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{"rate": rate}})
	if err != nil {
		return fmt.Errorf("failed to update %s rate: %w", kind, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", directoryerrors.ErrNotFound, id)
	}
	return nil
}
