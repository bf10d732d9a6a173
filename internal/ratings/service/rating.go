package service

import (
	"context"

	"expertly/internal/ratings/repository"
	"expertly/internal/ratings/validator"
	"expertly/pkg/auth"
	"expertly/pkg/config"
	mongotx "expertly/pkg/db/mongo"
	apperrors "expertly/pkg/errors"
	"expertly/pkg/model"
	"expertly/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

const maxTextRunes = 1000

type RatingService interface {
	Rate(ctx context.Context, p auth.Principal, appointmentID string, req *model.RateRequest) (*model.RateResult, error)
	ForAppointment(ctx context.Context, p auth.Principal, appointmentID string) ([]*model.Rate, error)
}

// AppointmentReader returns an appointment the caller is a party to.
type AppointmentReader interface {
	Get(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error)
}

type RateUpdater interface {
	UpdateRate(ctx context.Context, kind model.PartyKind, id string, rate float64) error
}

type ratingService struct {
	repo         repository.RatingRepository
	appointments AppointmentReader
	directory    RateUpdater
	validator    *validator.RatingValidator
	cfg          *config.Config
}

func NewRatingService(
	repo repository.RatingRepository,
	appointments AppointmentReader,
	directory RateUpdater,
	validator *validator.RatingValidator,
	cfg *config.Config,
) RatingService {
	return &ratingService{
		repo:         repo,
		appointments: appointments,
		directory:    directory,
		validator:    validator,
		cfg:          cfg,
	}
}

// Rate records the caller's rating of the other party and refreshes that party's mean.
// Submitting again for the same appointment replaces the earlier rating.
func (s *ratingService) Rate(ctx context.Context, p auth.Principal, appointmentID string, req *model.RateRequest) (*model.RateResult, error) {
	if req == nil {
		return nil, apperrors.BadRequest("Rating body is required")
	}
	req.Comment = sanitizer.SanitizeText(req.Comment, maxTextRunes)
	req.LowRatingReason = sanitizer.SanitizeText(req.LowRatingReason, maxTextRunes)

	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Rating validation failed", "appointment_id", appointmentID, "error", err)
		return nil, apperrors.BadRequest("Invalid rating").WithDetails(map[string]any{"error": err.Error()})
	}

	appointment, err := s.appointments.Get(ctx, p, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appointment.IsCompleted {
		return nil, apperrors.PreconditionFailed("Appointment must be completed before it can be rated")
	}

	rate := &model.Rate{
		AppointmentID: appointment.ID,
		ExpertID:      appointment.ExpertID,
		UserID:        appointment.UserID,
		Stars:         *req.Stars,
		Comment:       req.Comment,
		RatedBy:       p.Kind,
	}
	if rate.Stars < model.LowRatingThreshold {
		rate.LowRatingReason = req.LowRatingReason
	}

	rated := p.Kind.Counterpart()
	ratedID := appointment.ExpertID
	if rated == model.PartyUser {
		ratedID = appointment.UserID
	}

	result := &model.RateResult{}
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		stored, created, err := s.repo.Upsert(sessCtx, rate)
		if err != nil {
			return apperrors.Persistence("Failed to save rating", err)
		}
		average, err := s.repo.Average(sessCtx, rated, ratedID)
		if err != nil {
			return apperrors.Persistence("Failed to compute rating", err)
		}
		if err := s.directory.UpdateRate(sessCtx, rated, ratedID, average); err != nil {
			return err
		}
		result.Rate, result.Created, result.Average = stored, created, average
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to rate appointment", "appointment_id", appointmentID, "rated_by", p.Kind, "error", err)
		if mongotx.IsWriteConflict(err) {
			return nil, apperrors.Conflict("Rating was updated concurrently, please retry")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Persistence("Failed to save rating", err)
	}

	s.cfg.Log.Info("Appointment rated",
		"appointment_id", appointment.ID,
		"rated_by", p.Kind,
		"stars", rate.Stars,
		"created", result.Created,
		"average", result.Average,
	)
	return result, nil
}

func (s *ratingService) ForAppointment(ctx context.Context, p auth.Principal, appointmentID string) ([]*model.Rate, error) {
	appointment, err := s.appointments.Get(ctx, p, appointmentID)
	if err != nil {
		return nil, err
	}

	rates, err := s.repo.ListByAppointment(ctx, appointment.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to list ratings", "appointment_id", appointment.ID, "error", err)
		return nil, apperrors.Persistence("Failed to retrieve ratings", err)
	}
	return rates, nil
}
