package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"expertly/pkg/logger"
	"expertly/pkg/model"

	"github.com/go-playground/validator/v10"
)

// requestLayouts are the wall-clock forms accepted for a booking date, tried in order.
var requestLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type AppointmentValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAppointmentValidator(log *logger.Logger) *AppointmentValidator {
	v := validator.New()

	if err := v.RegisterValidation("booking_date", validateBookingDate); err != nil {
		log.Fatal("Failed to register 'booking_date' validator", "error", err)
	}

	log.Info("Appointment validator initialized successfully")

	return &AppointmentValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingDate(fl validator.FieldLevel) bool {
	_, err := ParseRequestTime(fl.Field().String(), time.UTC)
	return err == nil
}

// ParseRequestTime reads a booking date. RFC 3339 values carry their own offset,
// anything else is wall-clock time in loc.
func ParseRequestTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("date is empty")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range requestLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

func (v *AppointmentValidator) ValidateRequest(req *model.AppointmentRequest) error {
	return v.validateStruct(req)
}

func (v *AppointmentValidator) ValidateRespond(req *model.RespondRequest) error {
	return v.validateStruct(req)
}

func (v *AppointmentValidator) ValidateConfirmPayment(req *model.ConfirmPaymentRequest) error {
	return v.validateStruct(req)
}

func (v *AppointmentValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *AppointmentValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "timezone":
			message = fmt.Sprintf("%s must be an IANA time zone such as Europe/Berlin", err.Field())
		case "booking_date":
			message = fmt.Sprintf("%s must be RFC 3339 or YYYY-MM-DD HH:MM", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "latitude", "longitude":
			message = fmt.Sprintf("%s is not a valid coordinate", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Namespace(),
			Message: message,
		})
	}

	return validationErrors
}
