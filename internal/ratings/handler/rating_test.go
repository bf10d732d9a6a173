package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expertly/pkg/auth"
	apperrors "expertly/pkg/errors"
	"expertly/pkg/logger"
	"expertly/pkg/model"

	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRatingService struct {
	rateFunc func(ctx context.Context, p auth.Principal, appointmentID string, req *model.RateRequest) (*model.RateResult, error)
	listFunc func(ctx context.Context, p auth.Principal, appointmentID string) ([]*model.Rate, error)
}

func (m *mockRatingService) Rate(ctx context.Context, p auth.Principal, appointmentID string, req *model.RateRequest) (*model.RateResult, error) {
	return m.rateFunc(ctx, p, appointmentID, req)
}

func (m *mockRatingService) ForAppointment(ctx context.Context, p auth.Principal, appointmentID string) ([]*model.Rate, error) {
	return m.listFunc(ctx, p, appointmentID)
}

type envelope struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, svc *mockRatingService, p *auth.Principal, method, url, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	router := httprouter.New()
	NewRatingHandler(svc, logger.Discard()).RegisterRoutes(router)

	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if p != nil {
		req = req.WithContext(auth.NewContext(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

var user = &auth.Principal{Kind: model.PartyUser, ID: "u1"}

func TestRate_CreatedThenUpdated(t *testing.T) {
	calls := 0
	var gotID string
	var gotStars float64
	svc := &mockRatingService{rateFunc: func(_ context.Context, p auth.Principal, id string, req *model.RateRequest) (*model.RateResult, error) {
		calls++
		gotID, gotStars = id, *req.Stars
		return &model.RateResult{
			Rate:    &model.Rate{AppointmentID: id, Stars: *req.Stars, RatedBy: p.Kind},
			Average: *req.Stars,
			Created: calls == 1,
		}, nil
	}}

	rec, env := serve(t, svc, user, http.MethodPost, "/appointments/a1/rate", `{"stars":4,"comment":"helpful"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, env.Status)
	assert.Equal(t, "a1", gotID)
	assert.Equal(t, 4.0, gotStars)

	rec, _ = serve(t, svc, user, http.MethodPost, "/appointments/a1/rate", `{"stars":5}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var result model.RateResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, model.PartyUser, result.Rate.RatedBy)
}

func TestRate_Errors(t *testing.T) {
	svc := &mockRatingService{rateFunc: func(context.Context, auth.Principal, string, *model.RateRequest) (*model.RateResult, error) {
		return nil, apperrors.PreconditionFailed("Appointment must be completed before it can be rated")
	}}

	rec, env := serve(t, svc, nil, http.MethodPost, "/appointments/a1/rate", `{"stars":4}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, env.Status)

	rec, env = serve(t, svc, user, http.MethodPost, "/appointments/a1/rate", `{"stars":4,"extra":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeValidation, env.Code)

	rec, env = serve(t, svc, user, http.MethodPost, "/appointments/a1/rate", `{"stars":4}`)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, apperrors.CodePreconditionFailed, env.Code)
}

func TestList(t *testing.T) {
	svc := &mockRatingService{listFunc: func(_ context.Context, _ auth.Principal, id string) ([]*model.Rate, error) {
		return []*model.Rate{
			{AppointmentID: id, Stars: 5, RatedBy: model.PartyUser},
			{AppointmentID: id, Stars: 2, LowRatingReason: "late", RatedBy: model.PartyExpert},
		}, nil
	}}

	rec, env := serve(t, svc, user, http.MethodGet, "/appointments/a1/rates", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var rates []*model.Rate
	require.NoError(t, json.Unmarshal(env.Data, &rates))
	require.Len(t, rates, 2)
	assert.Equal(t, "late", rates[1].LowRatingReason)
}
