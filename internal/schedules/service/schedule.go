package service

import (
	"context"

	"expertly/internal/schedules/repository"
	"expertly/internal/schedules/validator"
	"expertly/pkg/config"
	apperrors "expertly/pkg/errors"
	"expertly/pkg/model"
	"expertly/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type ScheduleService interface {
	ListForExpert(ctx context.Context, expertID string) ([]*model.ScheduleWindow, error)
	ReplaceWeek(ctx context.Context, expertID string, week *model.WeeklySchedule) ([]*model.ScheduleWindow, error)
	AvailableWindows(ctx context.Context, expertID string, day model.Weekday) ([]*model.ScheduleWindow, error)
}

// ExpertLookup is the part of the directory the schedule store needs.
type ExpertLookup interface {
	GetExpert(ctx context.Context, id string) (*model.Expert, error)
}

type scheduleService struct {
	repo      repository.ScheduleRepository
	experts   ExpertLookup
	validator *validator.ScheduleValidator
	cfg       *config.Config
}

func NewScheduleService(
	repo repository.ScheduleRepository,
	experts ExpertLookup,
	validator *validator.ScheduleValidator,
	cfg *config.Config,
) ScheduleService {
	return &scheduleService{
		repo:      repo,
		experts:   experts,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *scheduleService) ListForExpert(ctx context.Context, expertID string) ([]*model.ScheduleWindow, error) {
	if _, err := s.experts.GetExpert(ctx, expertID); err != nil {
		return nil, err
	}

	windows, err := s.repo.FindByExpert(ctx, expertID)
	if err != nil {
		s.cfg.Log.Error("Failed to list schedules", "expert_id", expertID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve schedules", err)
	}

	s.cfg.Log.Debug("Schedules listed", "expert_id", expertID, "count", len(windows))
	return windows, nil
}

// ReplaceWeek swaps the expert's whole working week. Days missing from week end up with no windows.
func (s *scheduleService) ReplaceWeek(ctx context.Context, expertID string, week *model.WeeklySchedule) ([]*model.ScheduleWindow, error) {
	if week == nil {
		return nil, apperrors.BadRequest("Schedule body is required")
	}
	s.sanitize(week)

	if err := s.validator.ValidateWeek(week); err != nil {
		s.cfg.Log.Warn("Schedule validation failed",
			"expert_id", expertID,
			"error", err,
		)
		return nil, apperrors.Validation("Schedule validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	windows := make([]*model.ScheduleWindow, len(week.Windows))
	for i := range week.Windows {
		w := week.Windows[i]
		w.ExpertID = expertID
		windows[i] = &w
	}

	var removed int64
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var err error
		if removed, err = s.repo.DeleteByExpert(sessCtx, expertID); err != nil {
			return apperrors.Persistence("Failed to clear schedule", err)
		}
		if err := s.repo.InsertMany(sessCtx, windows); err != nil {
			return apperrors.Persistence("Failed to save schedule", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to replace schedule",
			"expert_id", expertID,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Schedule replaced successfully",
		"expert_id", expertID,
		"removed", removed,
		"windows", len(windows),
		"days", len(week.Days()),
	)
	return windows, nil
}

func (s *scheduleService) AvailableWindows(ctx context.Context, expertID string, day model.Weekday) ([]*model.ScheduleWindow, error) {
	if !day.Valid() {
		return nil, apperrors.InvalidInput("Invalid weekday: " + string(day))
	}
	windows, err := s.repo.FindAvailable(ctx, expertID, day)
	if err != nil {
		s.cfg.Log.Error("Failed to load available windows",
			"expert_id", expertID,
			"day", day,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve schedule", err)
	}
	return windows, nil
}

func (s *scheduleService) sanitize(week *model.WeeklySchedule) {
	for i := range week.Windows {
		w := &week.Windows[i]
		w.Day = model.Weekday(sanitizer.TrimAndNormalize(string(w.Day)))
		w.StartTime = sanitizer.TrimAndNormalize(w.StartTime)
		w.EndTime = sanitizer.TrimAndNormalize(w.EndTime)
	}
}
