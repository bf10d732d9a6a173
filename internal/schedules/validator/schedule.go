package validator

import (
	"errors"
	"fmt"
	"sort"
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

type ScheduleValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewScheduleValidator(log *logger.Logger) *ScheduleValidator {
	v := validator.New()

	if err := v.RegisterValidation("hhmm", validateClock); err != nil {
		log.Fatal("Failed to register 'hhmm' validator", "error", err)
	}
	if err := v.RegisterValidation("weekday", validateWeekday); err != nil {
		log.Fatal("Failed to register 'weekday' validator", "error", err)
	}

	log.Info("Schedule validator initialized successfully")

	return &ScheduleValidator{
		validate: v,
		logger:   log,
	}
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := model.ParseClock(strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func validateWeekday(fl validator.FieldLevel) bool {
	return model.Weekday(fl.Field().String()).Valid()
}

// ValidateWeek checks field formats, then that every window ends after it starts and
// windows of the same day do not overlap.
func (v *ScheduleValidator) ValidateWeek(week *model.WeeklySchedule) error {
	if err := v.validate.Struct(week); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	var errs ValidationErrors
	byDay := make(map[model.Weekday][][2]int)
	for i, w := range week.Windows {
		start, end, err := w.Bounds()
		if err != nil {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("windows[%d]", i), Message: err.Error()})
			continue
		}
		if start >= end {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("windows[%d]", i),
				Message: fmt.Sprintf("end_time %s must be after start_time %s", w.EndTime, w.StartTime),
			})
			continue
		}
		byDay[w.Day] = append(byDay[w.Day], [2]int{start, end})
	}

	for _, day := range model.Weekdays {
		ranges := byDay[day]
		sort.Slice(ranges, func(i, j int) bool { return ranges[i][0] < ranges[j][0] })
		for i := 1; i < len(ranges); i++ {
			if ranges[i][0] < ranges[i-1][1] {
				errs = append(errs, ValidationError{
					Field: string(day),
					Message: fmt.Sprintf("window %s-%s overlaps %s-%s",
						model.FormatClock(ranges[i][0]), model.FormatClock(ranges[i][1]),
						model.FormatClock(ranges[i-1][0]), model.FormatClock(ranges[i-1][1])),
				})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *ScheduleValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must contain at most %s entries", err.Field(), err.Param())
		case "hhmm":
			message = fmt.Sprintf("%s must be in HH:MM 24-hour format", err.Field())
		case "weekday":
			message = "day must be one of Mon, Tue, Wed, Thu, Fri, Sat, Sun"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Namespace(),
			Message: message,
		})
	}

	return validationErrors
}
