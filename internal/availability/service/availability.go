package service

import (
	"context"
	"time"

	"expertly/internal/availability/calculator"
	"expertly/pkg/config"
	apperrors "expertly/pkg/errors"
	"expertly/pkg/model"
)

const noAvailabilityMessage = "Sorry, the expert is not available for appointments on this date or all slots are already taken."

// westernmostZone is UTC-12, the last zone where any calendar date ends.
var westernmostZone = time.FixedZone("UTC-12", -12*60*60)

func pastDate() *apperrors.AppError {
	return apperrors.InvalidInput("Invalid date: selected date cannot be in the past")
}

type AvailabilityService interface {
	ForDate(ctx context.Context, expertID string, date string) (*model.Availability, error)
}

type ExpertDirectory interface {
	GetExpert(ctx context.Context, id string) (*model.Expert, error)
	ExpertLocation(expert *model.Expert) *time.Location
}

type ScheduleSource interface {
	AvailableWindows(ctx context.Context, expertID string, day model.Weekday) ([]*model.ScheduleWindow, error)
}

// AppointmentLedger returns the expert's appointments starting in [from, to).
type AppointmentLedger interface {
	FindByExpertBetween(ctx context.Context, expertID string, from, to time.Time) ([]*model.Appointment, error)
}

type availabilityService struct {
	experts   ExpertDirectory
	schedules ScheduleSource
	ledger    AppointmentLedger
	cfg       *config.Config
	now       func() time.Time
}

func NewAvailabilityService(
	experts ExpertDirectory,
	schedules ScheduleSource,
	ledger AppointmentLedger,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		experts:   experts,
		schedules: schedules,
		ledger:    ledger,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *availabilityService) ForDate(ctx context.Context, expertID string, date string) (*model.Availability, error) {
	if date == "" {
		return nil, apperrors.BadRequest("Missing required parameter: selectedDate")
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, apperrors.BadRequest("Invalid selectedDate, expected YYYY-MM-DD: " + date)
	}

	// A date already over in the westernmost zone is past for every expert, so it is
	// rejected before the expert is looked up.
	if s.isPast(date, westernmostZone) {
		s.cfg.Log.Warn("Availability requested for a past date", "expert_id", expertID, "date", date)
		return nil, pastDate()
	}

	expert, err := s.experts.GetExpert(ctx, expertID)
	if err != nil {
		return nil, err
	}
	loc := s.experts.ExpertLocation(expert)

	// Day boundaries are the expert's, so "today" is today where the expert works.
	if s.isPast(date, loc) {
		s.cfg.Log.Warn("Availability requested for a past date", "expert_id", expertID, "date", date)
		return nil, pastDate()
	}
	day, _ := time.ParseInLocation(time.DateOnly, date, loc)

	weekday := model.WeekdayOf(day)
	result := &model.Availability{
		ExpertID: expertID,
		Date:     date,
		Day:      weekday,
		TimeZone: loc.String(),
		Windows:  []model.WindowAvailability{},
	}

	windows, err := s.schedules.AvailableWindows(ctx, expertID, weekday)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		result.Message = noAvailabilityMessage
		return result, nil
	}

	nextDay := time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc)
	appointments, err := s.ledger.FindByExpertBetween(ctx, expertID, day, nextDay)
	if err != nil {
		s.cfg.Log.Error("Failed to load appointments for availability",
			"expert_id", expertID,
			"date", date,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve appointments", err)
	}

	for _, w := range windows {
		wa, err := calculator.ForWindow(w, day, appointments, s.cfg.BlockFixedBookings)
		if err != nil {
			s.cfg.Log.Error("Stored schedule window is malformed", "window_id", w.ID, "error", err)
			return nil, apperrors.Internal("Stored schedule is invalid", err)
		}
		if len(wa.Slots) > 0 {
			result.Available = true
		}
		result.Windows = append(result.Windows, wa)
	}
	if !result.Available {
		result.Message = noAvailabilityMessage
	}

	s.cfg.Log.Debug("Availability computed",
		"expert_id", expertID,
		"date", date,
		"windows", len(windows),
		"appointments", len(appointments),
		"available", result.Available,
	)
	return result, nil
}

// isPast reports whether the YYYY-MM-DD date is before today in loc.
func (s *availabilityService) isPast(date string, loc *time.Location) bool {
	day, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return false
	}
	return day.Before(model.AtClock(s.now().In(loc), 0))
}
