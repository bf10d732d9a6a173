package http

import (
	"net/http"

	apperrors "expertly/pkg/errors"

	"github.com/goccy/go-json"
)

const (
	StatusFailure = 0
	StatusSuccess = 1
)

type ErrorResponse struct {
	Status  int            `json:"status"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type SuccessResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, err error) error {
	appErr := apperrors.AsAppError(err)

	statusCode := appErr.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}

	message := appErr.Message
	if appErr.Code == apperrors.CodeInternal {
		message = "Internal server error"
	}

	return WriteJSON(w, statusCode, ErrorResponse{
		Status:  StatusFailure,
		Code:    appErr.Code,
		Message: message,
		Details: appErr.Details,
	})
}

func WriteSuccess(w http.ResponseWriter, message string, data any) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Status: StatusSuccess, Message: message, Data: data})
}

func WriteCreated(w http.ResponseWriter, message string, data any) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Status: StatusSuccess, Message: message, Data: data})
}

// WriteAccepted is used for outcomes the client is expected to retry, such as a payment still in flight.
func WriteAccepted(w http.ResponseWriter, message string, data any) error {
	return WriteJSON(w, http.StatusAccepted, SuccessResponse{Status: StatusFailure, Message: message, Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
