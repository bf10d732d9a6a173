package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmentserrors "expertly/internal/appointments/errors"
	"expertly/pkg/config"
	mongotx "expertly/pkg/db/mongo"
	"expertly/pkg/model"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Appointments"

	maxListResults = 500
)

// occupyingStatuses are the statuses whose appointments still hold calendar time.
var occupyingStatuses = []model.AppointmentStatus{model.StatusPending, model.StatusAccepted, model.StatusConfirmed}

// Change is a partial update applied together with a status guard. Nil fields are left alone,
// an empty Status keeps the current one.
type Change struct {
	Status          model.AppointmentStatus
	DepositAmount   *decimal.Decimal
	PaymentIntentID *string
	IsLocked        *bool
	IsOpen          *bool
	To              *time.Time
	IsCompleted     *bool
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	FindByExpertBetween(ctx context.Context, expertID string, from, to time.Time) ([]*model.Appointment, error)
	FindCovering(ctx context.Context, expertID string, t time.Time) ([]*model.Appointment, error)
	FindOpen(ctx context.Context, expertID string) ([]*model.Appointment, error)
	ListForParty(ctx context.Context, kind model.PartyKind, partyID string, statuses []model.AppointmentStatus) ([]*model.Appointment, error)
	// Transition applies change only while the stored status is still expected.
	Transition(ctx context.Context, id string, expected model.AppointmentStatus, change Change) (*model.Appointment, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoAppointmentRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext cannot be wrapped without losing the session, so it is returned as is.
func (r *mongoAppointmentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoAppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	a.CreatedAt = now
	a.UpdatedAt = now
	result, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}

	var a model.Appointment
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}
	return &a, nil
}

func (r *mongoAppointmentRepository) FindByExpertBetween(ctx context.Context, expertID string, from, to time.Time) ([]*model.Appointment, error) {
	return r.find(ctx, bson.M{
		"expert_id": expertID,
		"status":    bson.M{"$in": occupyingStatuses},
		"from":      bson.M{"$gte": from, "$lt": to},
	}, options.Find().SetSort(bson.D{{Key: "from", Value: 1}}))
}

func (r *mongoAppointmentRepository) FindCovering(ctx context.Context, expertID string, t time.Time) ([]*model.Appointment, error) {
	return r.find(ctx, bson.M{
		"expert_id": expertID,
		"status":    bson.M{"$in": occupyingStatuses},
		"from":      bson.M{"$lte": t},
		"to":        bson.M{"$gt": t},
	}, options.Find())
}

func (r *mongoAppointmentRepository) FindOpen(ctx context.Context, expertID string) ([]*model.Appointment, error) {
	return r.find(ctx, bson.M{
		"expert_id": expertID,
		"is_open":   true,
		"status":    bson.M{"$in": occupyingStatuses},
	}, options.Find())
}

func (r *mongoAppointmentRepository) ListForParty(ctx context.Context, kind model.PartyKind, partyID string, statuses []model.AppointmentStatus) ([]*model.Appointment, error) {
	field := "user_id"
	if kind == model.PartyExpert {
		field = "expert_id"
	}
	return r.find(ctx, bson.M{
		field:    partyID,
		"status": bson.M{"$in": statuses},
	}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(maxListResults))
}

func (r *mongoAppointmentRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer cursor.Close(ctx)

	appointments := []*model.Appointment{}
	if err = cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}

func (r *mongoAppointmentRepository) Transition(ctx context.Context, id string, expected model.AppointmentStatus, change Change) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}

	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	if change.Status != "" {
		set["status"] = change.Status
	}
	if change.DepositAmount != nil {
		set["deposit_amount"] = *change.DepositAmount
	}
	if change.PaymentIntentID != nil {
		set["payment_intent_id"] = *change.PaymentIntentID
	}
	if change.IsLocked != nil {
		set["is_locked"] = *change.IsLocked
	}
	if change.IsOpen != nil {
		set["is_open"] = *change.IsOpen
	}
	if change.To != nil {
		set["to"] = *change.To
	}
	if change.IsCompleted != nil {
		set["is_completed"] = *change.IsCompleted
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.Appointment
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID, "status": expected},
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.missOrRace(ctx, objectID, id)
		}
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return &updated, nil
}

// missOrRace tells a missing appointment apart from one whose status moved on.
func (r *mongoAppointmentRepository) missOrRace(ctx context.Context, objectID primitive.ObjectID, id string) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to check appointment: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s", appointmentserrors.ErrStatusChanged, id)
}

func (r *mongoAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
