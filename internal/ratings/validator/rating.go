package validator

import (
	"errors"
	"fmt"
	"strings"

	"expertly/pkg/logger"
	"expertly/pkg/model"

	"github.com/go-playground/validator/v10"
)

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

type RatingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewRatingValidator(log *logger.Logger) *RatingValidator {
	v := validator.New()
	v.RegisterStructValidation(validateLowRatingReason, model.RateRequest{})

	log.Info("Rating validator initialized successfully")

	return &RatingValidator{
		validate: v,
		logger:   log,
	}
}

// validateLowRatingReason requires a reason for anything under the threshold.
func validateLowRatingReason(sl validator.StructLevel) {
	req := sl.Current().Interface().(model.RateRequest)
	if req.Stars == nil || *req.Stars >= model.LowRatingThreshold {
		return
	}
	if strings.TrimSpace(req.LowRatingReason) == "" {
		sl.ReportError(req.LowRatingReason, "low_rating_reason", "LowRatingReason", "required_below", fmt.Sprint(model.LowRatingThreshold))
	}
}

func (v *RatingValidator) Validate(req *model.RateRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *RatingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min", "max":
			if err.Field() == "Stars" {
				message = "stars must be between 0 and 5"
			} else {
				message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
			}
		case "required_below":
			message = fmt.Sprintf("a reason is required for ratings below %s stars", err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Namespace(),
			Message: message,
		})
	}

	return validationErrors
}
