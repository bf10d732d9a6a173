package service

import (
	"context"
	"testing"
	"time"

	"expertly/internal/ratings/validator"
	"expertly/pkg/auth"
	"expertly/pkg/config"
	mongotx "expertly/pkg/db/mongo"
	apperrors "expertly/pkg/errors"
	"expertly/pkg/logger"
	"expertly/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

type memoryRatings struct {
	rows map[string]*model.Rate
}

func key(appointmentID string, by model.PartyKind) string { return appointmentID + "|" + string(by) }

func (m *memoryRatings) Upsert(ctx context.Context, r *model.Rate) (*model.Rate, bool, error) {
	if m.rows == nil {
		m.rows = map[string]*model.Rate{}
	}
	now := time.Now()
	existing, ok := m.rows[key(r.AppointmentID, r.RatedBy)]
	cp := *r
	cp.UpdatedAt = now
	cp.CreatedAt = now
	if ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.ID = key(r.AppointmentID, r.RatedBy)
	}
	m.rows[key(r.AppointmentID, r.RatedBy)] = &cp
	return &cp, !ok, nil
}

func (m *memoryRatings) Average(ctx context.Context, rated model.PartyKind, partyID string) (float64, error) {
	var sum float64
	var n int
	for _, r := range m.rows {
		if r.RatedBy != rated.Counterpart() {
			continue
		}
		if (rated == model.PartyExpert && r.ExpertID == partyID) || (rated == model.PartyUser && r.UserID == partyID) {
			sum += r.Stars
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (m *memoryRatings) ListByAppointment(ctx context.Context, appointmentID string) ([]*model.Rate, error) {
	var out []*model.Rate
	for _, r := range m.rows {
		if r.AppointmentID == appointmentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRatings) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockAppointments struct {
	items map[string]*model.Appointment
}

func (m *mockAppointments) Get(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, apperrors.NotFoundWithID("Appointment", id)
	}
	if !p.Owns(a) {
		return nil, apperrors.Forbidden("You are not a party to this appointment")
	}
	return a, nil
}

type recordingDirectory struct {
	rates map[string]float64
}

func (d *recordingDirectory) UpdateRate(ctx context.Context, kind model.PartyKind, id string, rate float64) error {
	if d.rates == nil {
		d.rates = map[string]float64{}
	}
	d.rates[string(kind)+":"+id] = rate
	return nil
}

var (
	user   = auth.Principal{Kind: model.PartyUser, ID: "u1"}
	expert = auth.Principal{Kind: model.PartyExpert, ID: "e1"}
)

func stars(v float64) *float64 { return &v }

func newService() (*ratingService, *memoryRatings, *recordingDirectory) {
	repo := &memoryRatings{}
	dir := &recordingDirectory{}
	cfg := &config.Config{Log: logger.Discard()}
	appointments := &mockAppointments{items: map[string]*model.Appointment{
		"done1":   {ID: "done1", UserID: "u1", ExpertID: "e1", Status: model.StatusConfirmed, IsCompleted: true},
		"done2":   {ID: "done2", UserID: "u1", ExpertID: "e1", Status: model.StatusConfirmed, IsCompleted: true},
		"pending": {ID: "pending", UserID: "u1", ExpertID: "e1", Status: model.StatusConfirmed},
	}}
	svc := &ratingService{
		repo:         repo,
		appointments: appointments,
		directory:    dir,
		validator:    validator.NewRatingValidator(cfg.Log),
		cfg:          cfg,
	}
	return svc, repo, dir
}

func TestRate_UserRatesExpert(t *testing.T) {
	svc, _, dir := newService()

	res, err := svc.Rate(context.Background(), user, "done1", &model.RateRequest{Stars: stars(4), Comment: "  great session \n"})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, model.PartyUser, res.Rate.RatedBy)
	assert.Equal(t, "great session", res.Rate.Comment)
	assert.Equal(t, 4.0, res.Average)
	assert.Equal(t, 4.0, dir.rates["expert:e1"])
}

func TestRate_IsIdempotentPerDirection(t *testing.T) {
	svc, repo, dir := newService()
	ctx := context.Background()

	_, err := svc.Rate(ctx, user, "done1", &model.RateRequest{Stars: stars(5)})
	require.NoError(t, err)
	_, err = svc.Rate(ctx, user, "done2", &model.RateRequest{Stars: stars(3)})
	require.NoError(t, err)
	assert.Equal(t, 4.0, dir.rates["expert:e1"])

	res, err := svc.Rate(ctx, user, "done1", &model.RateRequest{Stars: stars(1), LowRatingReason: "late"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Len(t, repo.rows, 2)
	assert.Equal(t, 2.0, dir.rates["expert:e1"], "only the latest rating counts")

	// The expert's rating of the user is a separate row and a separate mean.
	res, err = svc.Rate(ctx, expert, "done1", &model.RateRequest{Stars: stars(3)})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Len(t, repo.rows, 3)
	assert.Equal(t, 3.0, dir.rates["user:u1"])
	assert.Equal(t, 2.0, dir.rates["expert:e1"])
}

func TestRate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		p    auth.Principal
		id   string
		req  *model.RateRequest
		code string
	}{
		{"not completed", user, "pending", &model.RateRequest{Stars: stars(5)}, apperrors.CodePreconditionFailed},
		{"low without reason", user, "done1", &model.RateRequest{Stars: stars(2)}, apperrors.CodeValidation},
		{"whitespace reason", user, "done1", &model.RateRequest{Stars: stars(0), LowRatingReason: "   "}, apperrors.CodeValidation},
		{"too many stars", user, "done1", &model.RateRequest{Stars: stars(6)}, apperrors.CodeValidation},
		{"negative stars", user, "done1", &model.RateRequest{Stars: stars(-1)}, apperrors.CodeValidation},
		{"missing stars", user, "done1", &model.RateRequest{}, apperrors.CodeValidation},
		{"stranger", auth.Principal{Kind: model.PartyUser, ID: "u9"}, "done1", &model.RateRequest{Stars: stars(5)}, apperrors.CodeForbidden},
		{"unknown appointment", user, "nope", &model.RateRequest{Stars: stars(5)}, apperrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newService()
			_, err := svc.Rate(context.Background(), tt.p, tt.id, tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
			assert.Empty(t, repo.rows)
		})
	}
}

func TestRate_ReasonDroppedForGoodRatings(t *testing.T) {
	svc, _, _ := newService()
	res, err := svc.Rate(context.Background(), user, "done1", &model.RateRequest{Stars: stars(3), LowRatingReason: "n/a"})
	require.NoError(t, err)
	assert.Empty(t, res.Rate.LowRatingReason)
}

func TestForAppointment(t *testing.T) {
	svc, _, _ := newService()
	_, err := svc.Rate(context.Background(), user, "done1", &model.RateRequest{Stars: stars(5)})
	require.NoError(t, err)

	rates, err := svc.ForAppointment(context.Background(), expert, "done1")
	require.NoError(t, err)
	assert.Len(t, rates, 1)
}
