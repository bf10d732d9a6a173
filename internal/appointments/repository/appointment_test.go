package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	appointmentserrors "expertly/internal/appointments/errors"
	"expertly/pkg/client"
	"expertly/pkg/config"
	mongotx "expertly/pkg/db/mongo"
	"expertly/pkg/logger"
	"expertly/pkg/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testConfig connects to TEST_MONGO_URI and skips the test when it is unset.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetRegistry(mongotx.NewRegistry()))
	require.NoError(t, err)

	dbName := "expertly_test_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_ = mc.Database(dbName).Drop(context.Background())
		_ = mc.Disconnect(context.Background())
	})

	return &config.Config{
		MongoDatabaseName: dbName,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		Log:               logger.Discard(),
		Client:            &client.Client{Mongo: mc},
	}
}

func TestMongoAppointmentRepository_Queries(t *testing.T) {
	cfg := testConfig(t)
	repo := NewMongoAppointmentRepository(cfg)
	ctx := context.Background()

	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }
	end := at(11)

	fixed := &model.Appointment{UserID: "u1", ExpertID: "e1", From: at(10), To: &end, Status: model.StatusPending, DepositAmount: decimal.Zero}
	open := &model.Appointment{UserID: "u1", ExpertID: "e1", From: at(14), IsOpen: true, Status: model.StatusAccepted}
	gone := &model.Appointment{UserID: "u1", ExpertID: "e1", From: at(12), To: &end, Status: model.StatusCancelled}
	for _, a := range []*model.Appointment{fixed, open, gone} {
		require.NoError(t, repo.Create(ctx, a))
		require.NotEmpty(t, a.ID)
	}

	got, err := repo.FindByID(ctx, fixed.ID)
	require.NoError(t, err)
	assert.True(t, got.From.Equal(fixed.From))

	between, err := repo.FindByExpertBetween(ctx, "e1", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, between, 2, "cancelled appointments do not occupy time")

	covering, err := repo.FindCovering(ctx, "e1", at(10).Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, covering, 1)
	assert.Equal(t, fixed.ID, covering[0].ID)

	covering, err = repo.FindCovering(ctx, "e1", end)
	require.NoError(t, err)
	assert.Empty(t, covering, "the end of a booking is free")

	openOnes, err := repo.FindOpen(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, openOnes, 1)
	assert.Equal(t, open.ID, openOnes[0].ID)

	mine, err := repo.ListForParty(ctx, model.PartyUser, "u1", []model.AppointmentStatus{model.StatusPending, model.StatusAccepted})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = repo.FindByID(ctx, "not-an-id")
	assert.True(t, errors.Is(err, appointmentserrors.ErrInvalidID))
}

func TestMongoAppointmentRepository_Transition(t *testing.T) {
	cfg := testConfig(t)
	repo := NewMongoAppointmentRepository(cfg)
	ctx := context.Background()

	a := &model.Appointment{UserID: "u1", ExpertID: "e1", From: time.Now().Add(48 * time.Hour), Status: model.StatusPending}
	require.NoError(t, repo.Create(ctx, a))

	deposit := decimal.RequireFromString("20.00")
	intent := "pi_123"
	updated, err := repo.Transition(ctx, a.ID, model.StatusPending, Change{
		Status:          model.StatusAccepted,
		DepositAmount:   &deposit,
		PaymentIntentID: &intent,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, updated.Status)
	assert.True(t, updated.DepositAmount.Equal(deposit))
	assert.Equal(t, intent, updated.PaymentIntentID)

	_, err = repo.Transition(ctx, a.ID, model.StatusPending, Change{Status: model.StatusRejected})
	assert.True(t, errors.Is(err, appointmentserrors.ErrStatusChanged), "got %v", err)

	_, err = repo.Transition(ctx, "5f1d7f3e9b1e8a0012345678", model.StatusPending, Change{Status: model.StatusRejected})
	assert.True(t, errors.Is(err, appointmentserrors.ErrNotFound), "got %v", err)
}

func TestMongoBookingLockRepository(t *testing.T) {
	cfg := testConfig(t)
	locks := NewBookingLockRepository(cfg)
	ctx := context.Background()

	first := &model.BookingLock{ID: "expert:e1", Owner: "a", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, locks.Acquire(ctx, first))

	second := &model.BookingLock{ID: "expert:e1", Owner: "b", ExpiresAt: time.Now().Add(time.Minute)}
	assert.True(t, errors.Is(locks.Acquire(ctx, second), appointmentserrors.ErrLockHeld))

	// Only the owner releases.
	require.NoError(t, locks.Release(ctx, "expert:e1", "b"))
	assert.True(t, errors.Is(locks.Acquire(ctx, second), appointmentserrors.ErrLockHeld))

	require.NoError(t, locks.Release(ctx, "expert:e1", "a"))
	assert.NoError(t, locks.Acquire(ctx, second))

	stale := &model.BookingLock{ID: "expert:e2", Owner: "c", ExpiresAt: time.Now().Add(-time.Second)}
	require.NoError(t, locks.Acquire(ctx, stale))
	takeover := &model.BookingLock{ID: "expert:e2", Owner: "d", ExpiresAt: time.Now().Add(time.Minute)}
	assert.NoError(t, locks.Acquire(ctx, takeover), "expired locks are taken over")
}
