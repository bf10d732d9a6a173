package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expertly/pkg/auth"
	apperrors "expertly/pkg/errors"
	httputil "expertly/pkg/http"
	"expertly/pkg/logger"
	"expertly/pkg/model"

	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAppointmentService answers every call through the func fields; unset ones fail the test.
type mockAppointmentService struct {
	t                  *testing.T
	createFunc         func(ctx context.Context, p auth.Principal, expertID string, req *model.AppointmentRequest) (*model.Appointment, error)
	respondFunc        func(ctx context.Context, p auth.Principal, expertID, appointmentID string, req *model.RespondRequest) (*model.AcceptResult, error)
	confirmPaymentFunc func(ctx context.Context, p auth.Principal, id string, req *model.ConfirmPaymentRequest) (*model.Appointment, *model.PaymentStatus, error)
	toggleLockFunc     func(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error)
	cancelFunc         func(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error)
	myFunc             func(ctx context.Context, p auth.Principal) ([]*model.Appointment, error)
}

func (m *mockAppointmentService) Create(ctx context.Context, p auth.Principal, expertID string, req *model.AppointmentRequest) (*model.Appointment, error) {
	return m.createFunc(ctx, p, expertID, req)
}

func (m *mockAppointmentService) Respond(ctx context.Context, p auth.Principal, expertID, appointmentID string, req *model.RespondRequest) (*model.AcceptResult, error) {
	return m.respondFunc(ctx, p, expertID, appointmentID, req)
}

func (m *mockAppointmentService) ConfirmPayment(ctx context.Context, p auth.Principal, id string, req *model.ConfirmPaymentRequest) (*model.Appointment, *model.PaymentStatus, error) {
	return m.confirmPaymentFunc(ctx, p, id, req)
}

func (m *mockAppointmentService) PaymentStatus(ctx context.Context, p auth.Principal, id string) (*model.PaymentStatus, error) {
	m.t.Fatal("PaymentStatus not expected")
	return nil, nil
}

func (m *mockAppointmentService) ToggleLock(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error) {
	return m.toggleLockFunc(ctx, p, id)
}

func (m *mockAppointmentService) Close(ctx context.Context, p auth.Principal, id string, req *model.CloseRequest) (*model.Appointment, error) {
	m.t.Fatal("Close not expected")
	return nil, nil
}

func (m *mockAppointmentService) Complete(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error) {
	m.t.Fatal("Complete not expected")
	return nil, nil
}

func (m *mockAppointmentService) Cancel(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error) {
	return m.cancelFunc(ctx, p, id)
}

func (m *mockAppointmentService) Get(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error) {
	m.t.Fatal("Get not expected")
	return nil, nil
}

func (m *mockAppointmentService) MyAppointments(ctx context.Context, p auth.Principal) ([]*model.Appointment, error) {
	return m.myFunc(ctx, p)
}

type envelope struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, svc *mockAppointmentService, p *auth.Principal, method, url, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	svc.t = t
	router := httprouter.New()
	NewAppointmentHandler(svc, logger.Discard()).RegisterRoutes(router)

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

var (
	user   = &auth.Principal{Kind: model.PartyUser, ID: "u1"}
	expert = &auth.Principal{Kind: model.PartyExpert, ID: "e1"}
)

func TestCreate(t *testing.T) {
	var gotExpert string
	var gotReq *model.AppointmentRequest
	svc := &mockAppointmentService{createFunc: func(ctx context.Context, p auth.Principal, expertID string, req *model.AppointmentRequest) (*model.Appointment, error) {
		gotExpert, gotReq = expertID, req
		return &model.Appointment{ID: "a1", Status: model.StatusPending}, nil
	}}

	rec, env := serve(t, svc, user, http.MethodPost, "/expert/e1/appointments", `{"date":"2026-10-19 10:00","is_open":true}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, httputil.StatusSuccess, env.Status)
	assert.Equal(t, "e1", gotExpert)
	assert.Equal(t, "2026-10-19 10:00", gotReq.Date)
	assert.True(t, gotReq.IsOpen)
}

func TestCreate_Failures(t *testing.T) {
	tests := []struct {
		name       string
		principal  *auth.Principal
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"anonymous", nil, `{"date":"x"}`, nil, http.StatusUnauthorized, apperrors.CodeUnauthorized},
		{"expert", expert, `{"date":"x"}`, nil, http.StatusForbidden, apperrors.CodeForbidden},
		{"unknown field", user, `{"when":"x"}`, nil, http.StatusBadRequest, apperrors.CodeValidation},
		{"slot taken", user, `{"date":"2026-10-19 10:00"}`, apperrors.SlotUnavailable("Time slot not available"), http.StatusBadRequest, apperrors.CodeSlotUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAppointmentService{createFunc: func(ctx context.Context, p auth.Principal, expertID string, req *model.AppointmentRequest) (*model.Appointment, error) {
				if tt.svcErr == nil {
					t.Fatal("service should not be reached")
				}
				return nil, tt.svcErr
			}}

			rec, env := serve(t, svc, tt.principal, http.MethodPost, "/expert/e1/appointments", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, httputil.StatusFailure, env.Status)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

func TestRespond_PassesBothIDs(t *testing.T) {
	svc := &mockAppointmentService{respondFunc: func(ctx context.Context, p auth.Principal, expertID, appointmentID string, req *model.RespondRequest) (*model.AcceptResult, error) {
		assert.Equal(t, "e1", expertID)
		assert.Equal(t, "a1", appointmentID)
		return &model.AcceptResult{Appointment: &model.Appointment{ID: "a1", Status: model.StatusAccepted}, ClientSecret: "sec"}, nil
	}}

	rec, env := serve(t, svc, expert, http.MethodPut, "/expert/e1/appointments/a1/respond", `{"response":"accept"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Appointment accepted", env.Message)

	var result model.AcceptResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "sec", result.ClientSecret)
}

func TestConfirmPayment_PendingIsAccepted(t *testing.T) {
	svc := &mockAppointmentService{confirmPaymentFunc: func(ctx context.Context, p auth.Principal, id string, req *model.ConfirmPaymentRequest) (*model.Appointment, *model.PaymentStatus, error) {
		return nil, &model.PaymentStatus{AppointmentID: id, PaymentStatus: "requires_action", ClientSecret: "sec"}, nil
	}}

	rec, env := serve(t, svc, user, http.MethodPost, "/appointments/a1/confirm-payment", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, httputil.StatusSuccess, env.Status)

	var status model.PaymentStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "requires_action", status.PaymentStatus)
}

func TestConfirmPayment_Confirmed(t *testing.T) {
	svc := &mockAppointmentService{confirmPaymentFunc: func(ctx context.Context, p auth.Principal, id string, req *model.ConfirmPaymentRequest) (*model.Appointment, *model.PaymentStatus, error) {
		assert.Equal(t, "pm_1", req.PaymentMethod)
		return &model.Appointment{ID: id, Status: model.StatusConfirmed}, nil, nil
	}}

	rec, env := serve(t, svc, user, http.MethodPost, "/appointments/a1/confirm-payment", `{"payment_method":"pm_1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Payment confirmed", env.Message)
}

func TestToggleLock_Message(t *testing.T) {
	svc := &mockAppointmentService{toggleLockFunc: func(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error) {
		return &model.Appointment{ID: id, IsOpen: true, IsLocked: true}, nil
	}}

	_, env := serve(t, svc, expert, http.MethodPatch, "/appointments/a1/lock", "")
	assert.Equal(t, "Appointment locked successfully", env.Message)
}

func TestCancel_AnyParty(t *testing.T) {
	for _, p := range []*auth.Principal{user, expert} {
		t.Run(string(p.Kind), func(t *testing.T) {
			svc := &mockAppointmentService{cancelFunc: func(ctx context.Context, got auth.Principal, id string) (*model.Appointment, error) {
				assert.Equal(t, *p, got)
				return &model.Appointment{ID: id, Status: model.StatusCancelled}, nil
			}}
			rec, _ := serve(t, svc, p, http.MethodDelete, "/appointments/a1", "")
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestMyAppointments(t *testing.T) {
	svc := &mockAppointmentService{myFunc: func(ctx context.Context, p auth.Principal) ([]*model.Appointment, error) {
		return []*model.Appointment{{ID: "a2"}, {ID: "a1"}}, nil
	}}

	rec, env := serve(t, svc, user, http.MethodGet, "/my-appointments", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var list []model.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)
}
