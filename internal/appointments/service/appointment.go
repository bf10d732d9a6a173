package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmentserrors "expertly/internal/appointments/errors"
	"expertly/internal/appointments/repository"
	"expertly/internal/appointments/validator"
	"expertly/pkg/auth"
	"expertly/pkg/config"
	mongotx "expertly/pkg/db/mongo"
	apperrors "expertly/pkg/errors"
	"expertly/pkg/model"
	"expertly/pkg/payment"
	"expertly/pkg/sanitizer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const notificationTimeLayout = "2006-01-02 15:04"

// Reasons attached to SlotUnavailable details so clients can branch without parsing messages.
const (
	ReasonPast          = "past"
	ReasonAdvanceNotice = "advance_notice"
	ReasonNoSchedule    = "no_schedule"
	ReasonOutsideHours  = "outside_working_hours"
	ReasonOverlap       = "overlap"
	ReasonOpenCollision = "open_appointment_exists"
)

var listedStatuses = []model.AppointmentStatus{model.StatusPending, model.StatusAccepted, model.StatusRejected}

type AppointmentService interface {
	Create(ctx context.Context, p auth.Principal, expertID string, req *model.AppointmentRequest) (*model.Appointment, error)
	Respond(ctx context.Context, p auth.Principal, expertID, appointmentID string, req *model.RespondRequest) (*model.AcceptResult, error)
	// ConfirmPayment returns the confirmed appointment, or a PaymentStatus when the deposit has not settled yet.
	ConfirmPayment(ctx context.Context, p auth.Principal, id string, req *model.ConfirmPaymentRequest) (*model.Appointment, *model.PaymentStatus, error)
	PaymentStatus(ctx context.Context, p auth.Principal, id string) (*model.PaymentStatus, error)
	ToggleLock(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error)
	Close(ctx context.Context, p auth.Principal, id string, req *model.CloseRequest) (*model.Appointment, error)
	Complete(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error)
	Cancel(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error)
	Get(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error)
	MyAppointments(ctx context.Context, p auth.Principal) ([]*model.Appointment, error)
}

// Directory is the expert and user lookup the booking flow needs.
type Directory interface {
	GetExpert(ctx context.Context, id string) (*model.Expert, error)
	ExpertLocation(expert *model.Expert) *time.Location
	Contact(ctx context.Context, kind model.PartyKind, id string) (model.Contact, error)
	Preload(ctx context.Context, appointments []*model.Appointment, viewer model.PartyKind) error
}

type ScheduleSource interface {
	AvailableWindows(ctx context.Context, expertID string, day model.Weekday) ([]*model.ScheduleWindow, error)
}

// Notifier stages a notification inside the caller's transaction and publishes it once committed.
type Notifier interface {
	Stage(ctx context.Context, recipient model.Contact, payload model.NotificationPayload) (*model.Notification, error)
	Publish(ctx context.Context, notifications ...*model.Notification)
}

type appointmentService struct {
	repo      repository.AppointmentRepository
	locks     repository.BookingLockRepository
	directory Directory
	schedules ScheduleSource
	gateway   payment.Gateway
	notifier  Notifier
	validator *validator.AppointmentValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	locks repository.BookingLockRepository,
	directory Directory,
	schedules ScheduleSource,
	gateway payment.Gateway,
	notifier Notifier,
	validator *validator.AppointmentValidator,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		repo:      repo,
		locks:     locks,
		directory: directory,
		schedules: schedules,
		gateway:   gateway,
		notifier:  notifier,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *appointmentService) Create(ctx context.Context, p auth.Principal, expertID string, req *model.AppointmentRequest) (*model.Appointment, error) {
	if !p.IsUser() {
		return nil, apperrors.Forbidden("Only users can book appointments")
	}
	if req == nil {
		return nil, apperrors.BadRequest("Appointment body is required")
	}
	// An unsalvageable zone is left as sent so validation rejects it.
	if tz := sanitizer.SanitizeTimeZone(req.TimeZone); tz != "" {
		req.TimeZone = tz
	}
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Appointment validation failed", "expert_id", expertID, "error", err)
		return nil, apperrors.BadRequest("Invalid appointment request").WithDetails(map[string]any{
			"error": err.Error(),
		})
	}

	expert, err := s.directory.GetExpert(ctx, expertID)
	if err != nil {
		return nil, err
	}
	loc := s.directory.ExpertLocation(expert)

	from, err := s.requestedTime(req, loc)
	if err != nil {
		return nil, err
	}

	if err := s.checkSchedule(ctx, expert.ID, from); err != nil {
		s.cfg.Log.Warn("Appointment request rejected",
			"expert_id", expert.ID,
			"user_id", p.ID,
			"from", from,
			"error", err,
		)
		return nil, err
	}

	appointment := &model.Appointment{
		UserID:   p.ID,
		ExpertID: expert.ID,
		From:     from.UTC(),
		TimeZone: loc.String(),
		Status:   model.StatusPending,
		IsOpen:   req.IsOpen,
		Location: req.Location,
	}
	if !req.IsOpen {
		to := appointment.From.Add(time.Duration(expert.SessionDurationMin) * time.Minute)
		appointment.To = &to
	}

	recipient, err := s.directory.Contact(ctx, model.PartyExpert, expert.ID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquireExpertLock(ctx, expert.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	var staged *model.Notification
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoCollision(sessCtx, appointment); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, appointment); err != nil {
			return apperrors.Persistence("Failed to create appointment", err)
		}

		notification, stageErr := s.notifier.Stage(sessCtx, recipient, model.NotificationPayload{
			Type:          model.NotificationNewRequest,
			Message:       "New appointment request for: " + from.Format(notificationTimeLayout),
			AppointmentID: appointment.ID,
			Location:      appointment.Location,
		})
		if stageErr != nil {
			return apperrors.Persistence("Failed to create appointment", stageErr)
		}
		staged = notification
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create appointment", "expert_id", expert.ID, "user_id", p.ID, "error", err)
		return nil, s.mapError(err, appointment.ID)
	}

	s.notifier.Publish(ctx, staged)

	s.cfg.Log.Info("Appointment requested",
		"id", appointment.ID,
		"expert_id", appointment.ExpertID,
		"user_id", appointment.UserID,
		"from", appointment.From,
		"is_open", appointment.IsOpen,
	)
	return appointment, nil
}

// requestedTime parses the requested date in the stated zone (the expert's when none is given),
// moves it to the expert's zone and enforces the past and advance-notice rules.
func (s *appointmentService) requestedTime(req *model.AppointmentRequest, expertLoc *time.Location) (time.Time, error) {
	sourceLoc := expertLoc
	if req.TimeZone != "" {
		loc, err := time.LoadLocation(req.TimeZone)
		if err != nil {
			return time.Time{}, apperrors.BadRequest("Invalid time zone: " + req.TimeZone)
		}
		sourceLoc = loc
	}

	requested, err := validator.ParseRequestTime(req.Date, sourceLoc)
	if err != nil {
		return time.Time{}, apperrors.BadRequest("Invalid appointment date")
	}
	from := requested.In(expertLoc)

	now := s.now().In(expertLoc)
	if from.Before(now) {
		return time.Time{}, slotUnavailable("Cannot book appointments in the past", ReasonPast)
	}
	if from.Before(now.Add(s.cfg.MinAdvanceNotice)) {
		return time.Time{}, slotUnavailable(
			fmt.Sprintf("Appointments must be booked at least %s in advance", humanDuration(s.cfg.MinAdvanceNotice)),
			ReasonAdvanceNotice,
		)
	}
	return from, nil
}

// checkSchedule requires an available window on from's weekday whose [start, end] contains from.
func (s *appointmentService) checkSchedule(ctx context.Context, expertID string, from time.Time) error {
	windows, err := s.schedules.AvailableWindows(ctx, expertID, model.WeekdayOf(from))
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		return slotUnavailable("Expert unavailable on this day", ReasonNoSchedule)
	}

	// Bounds are inclusive, compared to the second: 17:00:30 is past a 17:00 close.
	for _, w := range windows {
		start, end, err := w.Bounds()
		if err != nil {
			s.cfg.Log.Warn("Skipping malformed schedule window", "window_id", w.ID, "error", err)
			continue
		}
		if !from.Before(model.AtClock(from, start)) && !from.After(model.AtClock(from, end)) {
			return nil
		}
	}
	return slotUnavailable("Appointment time is outside working hours", ReasonOutsideHours)
}

// verifyNoCollision runs inside the booking transaction while the expert's lock is held.
func (s *appointmentService) verifyNoCollision(ctx context.Context, a *model.Appointment) error {
	covering, err := s.repo.FindCovering(ctx, a.ExpertID, a.From)
	if err != nil {
		return apperrors.Persistence("Failed to check appointment overlap", err)
	}
	if len(covering) > 0 {
		return slotUnavailable("Time slot not available", ReasonOverlap)
	}

	if !a.IsOpen {
		return nil
	}
	open, err := s.repo.FindOpen(ctx, a.ExpertID)
	if err != nil {
		return apperrors.Persistence("Failed to check open appointments", err)
	}
	if len(open) > 0 {
		return slotUnavailable("Time slot not available", ReasonOpenCollision)
	}
	return nil
}

// acquireExpertLock serializes calendar writes for one expert. The returned func releases it.
func (s *appointmentService) acquireExpertLock(ctx context.Context, expertID string) (func(), error) {
	lock := &model.BookingLock{
		ID:        "expert:" + expertID,
		Owner:     uuid.NewString(),
		ExpiresAt: s.now().UTC().Add(s.cfg.BookingLockTTL),
	}

	if err := s.locks.Acquire(ctx, lock); err != nil {
		if errors.Is(err, appointmentserrors.ErrLockHeld) {
			s.cfg.Log.Warn("Booking lock busy", "expert_id", expertID)
			return nil, apperrors.Conflict("Another booking for this expert is in progress, please retry")
		}
		s.cfg.Log.Error("Failed to acquire booking lock", "expert_id", expertID, "error", err)
		return nil, apperrors.Persistence("Failed to acquire booking lock", err)
	}

	return func() {
		// Release even if the request context was cancelled mid-flight.
		if err := s.locks.Release(context.WithoutCancel(ctx), lock.ID, lock.Owner); err != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lock.ID, "error", err)
		}
	}, nil
}

func (s *appointmentService) Get(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error) {
	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Owns(appointment) {
		return nil, apperrors.Forbidden("You are not a party to this appointment")
	}

	if err := s.directory.Preload(ctx, []*model.Appointment{appointment}, p.Kind); err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *appointmentService) MyAppointments(ctx context.Context, p auth.Principal) ([]*model.Appointment, error) {
	if !p.Kind.Valid() || p.ID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	appointments, err := s.repo.ListForParty(ctx, p.Kind, p.ID, listedStatuses)
	if err != nil {
		s.cfg.Log.Error("Failed to list appointments", "kind", p.Kind, "id", p.ID, "error", err)
		return nil, apperrors.Persistence("Failed to retrieve appointments", err)
	}

	if err := s.directory.Preload(ctx, appointments, p.Kind); err != nil {
		return nil, err
	}

	s.cfg.Log.Debug("Appointments listed", "kind", p.Kind, "id", p.ID, "count", len(appointments))
	return appointments, nil
}

func (s *appointmentService) load(ctx context.Context, id string) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}
	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	return appointment, nil
}

// loadOwnedByExpert loads the appointment and requires p to be its expert.
func (s *appointmentService) loadOwnedByExpert(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error) {
	if !p.IsExpert() {
		return nil, apperrors.Forbidden("Only the expert can perform this action")
	}
	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.ExpertID != p.ID {
		return nil, apperrors.Forbidden("You are not the expert of this appointment")
	}
	return appointment, nil
}

func (s *appointmentService) mapError(err error, id string) error {
	switch {
	case err == nil:
		return nil
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, appointmentserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Appointment", id)
	case errors.Is(err, appointmentserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid appointment ID format")
	case errors.Is(err, appointmentserrors.ErrStatusChanged), mongotx.IsWriteConflict(err):
		return apperrors.Conflict("Appointment was modified concurrently, please retry")
	default:
		return apperrors.Persistence("Failed to persist appointment", err)
	}
}

func slotUnavailable(message, reason string) error {
	return apperrors.SlotUnavailable(message).WithDetails(map[string]any{"reason": reason})
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
