package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("mongo: server selection timeout")

	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"new", New(CodeValidation, "validation failed", http.StatusUnprocessableEntity), CodeValidation, http.StatusUnprocessableEntity},
		{"wrap", Wrap(cause, CodeInternal, "internal error", http.StatusInternalServerError), CodeInternal, http.StatusInternalServerError},
		{"not found", NotFound("Appointment"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("invalid request", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"bad request", BadRequest("missing date"), CodeValidation, http.StatusBadRequest},
		{"invalid input", InvalidInput("Appointment ID cannot be empty"), CodeInvalidInput, http.StatusBadRequest},
		{"invalid state", InvalidState("Invalid appointment status"), CodeInvalidState, http.StatusBadRequest},
		{"slot unavailable", SlotUnavailable("Time slot not available"), CodeSlotUnavailable, http.StatusBadRequest},
		{"precondition failed", PreconditionFailed("appointment not completed"), CodePreconditionFailed, http.StatusPreconditionFailed},
		{"payment gateway", PaymentGateway("Payment processing failed", cause), CodePaymentGateway, http.StatusInternalServerError},
		{"persistence", Persistence("Failed to save appointment", cause), CodePersistence, http.StatusInternalServerError},
		{"unauthorized", Unauthorized("missing bearer token"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden("Only users can book appointments"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("Appointment was modified concurrently"), CodeConflict, http.StatusConflict},
		{"internal", Internal("unexpected", cause), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("request timed out"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("Payment provider"), CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode())
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestAppError_Error(t *testing.T) {
	plain := NotFound("Appointment")
	assert.Equal(t, "NOT_FOUND: Appointment not found", plain.Error())

	wrapped := Persistence("Failed to save appointment", errors.New("write conflict"))
	assert.Equal(t, "PERSISTENCE_ERROR: Failed to save appointment (caused by: write conflict)", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("write conflict")
	appErr := Persistence("Failed to save appointment", cause)

	assert.ErrorIs(t, appErr, cause)
	assert.Same(t, cause, errors.Unwrap(appErr))
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Expert", "e1")

	assert.Equal(t, "Expert not found", err.Message)
	assert.Equal(t, map[string]any{"resource": "Expert", "id": "e1"}, err.Details)
}

func TestWithDetails(t *testing.T) {
	err := SlotUnavailable("Time slot not available").WithDetails(map[string]any{"reason": "overlap"})
	assert.Equal(t, "overlap", err.Details["reason"])
}

func TestPaymentGateway_MessagePassThrough(t *testing.T) {
	err := PaymentGateway("Payment processing failed", errors.New("card_declined"))
	assert.Equal(t, "Payment processing failed: card_declined", err.Message)
	assert.Error(t, err.Unwrap())

	bare := PaymentGateway("Payment processing failed", nil)
	assert.Equal(t, "Payment processing failed", bare.Message)
}

func TestHasCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("transaction failed: %w", SlotUnavailable("taken"))

	assert.True(t, HasCode(err, CodeSlotUnavailable))
	assert.False(t, HasCode(err, CodeConflict))
	assert.True(t, IsAppError(err))
	assert.False(t, HasCode(errors.New("plain"), CodeSlotUnavailable))
}

func TestAsAppError(t *testing.T) {
	original := Conflict("taken")
	assert.Same(t, original, AsAppError(fmt.Errorf("tx: %w", original)))

	plain := errors.New("boom")
	converted := AsAppError(plain)
	assert.Equal(t, CodeInternal, converted.Code)
	assert.Same(t, plain, converted.Err)
}

func TestAppError_ToJSON(t *testing.T) {
	err := SlotUnavailable("Time slot not available").WithDetails(map[string]any{"reason": "overlap"})

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(err.ToJSON(), &body))
	assert.Equal(t, CodeSlotUnavailable, body.Code)
	assert.Equal(t, "Time slot not available", body.Message)
	assert.Equal(t, "overlap", body.Details["reason"])
}
