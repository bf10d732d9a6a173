package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"expertly/internal/appointments/repository"
	"expertly/pkg/auth"
	apperrors "expertly/pkg/errors"
	"expertly/pkg/model"
	"expertly/pkg/payment"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
)

// ComputeDeposit is max(minimum, hourlyRate*rate) rounded to cents.
func ComputeDeposit(hourlyRate, minimum, rate decimal.Decimal) decimal.Decimal {
	return decimal.Max(minimum, hourlyRate.Mul(rate)).Round(2)
}

func (s *appointmentService) Respond(ctx context.Context, p auth.Principal, expertID, appointmentID string, req *model.RespondRequest) (*model.AcceptResult, error) {
	if req == nil {
		return nil, apperrors.BadRequest("Response body is required")
	}
	if err := s.validator.ValidateRespond(req); err != nil {
		return nil, apperrors.BadRequest("Invalid response").WithDetails(map[string]any{"error": err.Error()})
	}
	if p.IsExpert() && expertID != p.ID {
		return nil, apperrors.Forbidden("You can only respond to your own appointments")
	}

	appointment, err := s.loadOwnedByExpert(ctx, p, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.Status != model.StatusPending {
		return nil, apperrors.InvalidState(fmt.Sprintf("Appointment is %s, only pending appointments can be answered", appointment.Status))
	}

	if req.Response == model.ResponseReject {
		updated, err := s.transitionAndNotify(ctx, appointment, model.StatusPending,
			repository.Change{Status: model.StatusRejected},
			model.PartyUser,
			model.NotificationPayload{
				Type:    model.NotificationAppointmentRejected,
				Message: "Your appointment request has been rejected by the expert.",
			},
		)
		if err != nil {
			return nil, err
		}
		return &model.AcceptResult{Appointment: updated}, nil
	}

	return s.accept(ctx, appointment)
}

// accept creates the deposit intent first, outside any lock or transaction, and only then
// moves the appointment to accepted. A gateway failure leaves the appointment untouched.
func (s *appointmentService) accept(ctx context.Context, appointment *model.Appointment) (*model.AcceptResult, error) {
	expert, err := s.directory.GetExpert(ctx, appointment.ExpertID)
	if err != nil {
		return nil, err
	}

	deposit := ComputeDeposit(expert.HourlyRate, s.cfg.MinDeposit, s.cfg.DepositRate)
	amountCents := payment.ToMinorUnits(deposit)
	if amountCents < s.cfg.PaymentMinAmountCents {
		s.cfg.Log.Warn("Deposit below payment minimum",
			"appointment_id", appointment.ID,
			"deposit", deposit.String(),
			"minimum_cents", s.cfg.PaymentMinAmountCents,
		)
		return nil, apperrors.Wrap(payment.ErrBelowMinimum, apperrors.CodeInvalidInput,
			"Deposit amount is below the minimum payable amount", http.StatusBadRequest)
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	intent, err := s.gateway.CreateIntent(gatewayCtx, payment.CreateIntentParams{
		AmountCents: amountCents,
		Currency:    s.cfg.PaymentCurrency,
		Metadata: map[string]string{
			"appointment_id": appointment.ID,
			"user_id":        appointment.UserID,
			"expert_id":      appointment.ExpertID,
		},
		IdempotencyKey: "appointment-" + appointment.ID + "-deposit",
	})
	if err != nil {
		s.cfg.Log.Error("Payment intent creation failed",
			"appointment_id", appointment.ID,
			"amount_cents", amountCents,
			"error", err,
		)
		return nil, apperrors.PaymentGateway("Payment processing failed", err)
	}

	updated, err := s.transitionAndNotify(ctx, appointment, model.StatusPending,
		repository.Change{
			Status:          model.StatusAccepted,
			DepositAmount:   &deposit,
			PaymentIntentID: &intent.ID,
		},
		model.PartyUser,
		model.NotificationPayload{
			Type:          model.NotificationAppointmentAccepted,
			Message:       "Your appointment request has been accepted. Please complete the payment.",
			PaymentSecret: intent.ClientSecret,
		},
	)
	if err != nil {
		return nil, err
	}

	return &model.AcceptResult{Appointment: updated, ClientSecret: intent.ClientSecret}, nil
}

func (s *appointmentService) ConfirmPayment(ctx context.Context, p auth.Principal, id string, req *model.ConfirmPaymentRequest) (*model.Appointment, *model.PaymentStatus, error) {
	if !p.IsUser() {
		return nil, nil, apperrors.Forbidden("Only the user can confirm the payment")
	}
	if req == nil {
		req = &model.ConfirmPaymentRequest{}
	}
	if err := s.validator.ValidateConfirmPayment(req); err != nil {
		return nil, nil, apperrors.BadRequest("Invalid payment confirmation").WithDetails(map[string]any{"error": err.Error()})
	}

	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if appointment.UserID != p.ID {
		return nil, nil, apperrors.Forbidden("You are not the user of this appointment")
	}
	if appointment.Status != model.StatusAccepted {
		return nil, nil, apperrors.InvalidState("Invalid appointment status")
	}
	if appointment.PaymentIntentID == "" {
		return nil, nil, apperrors.InvalidState("Appointment has no pending payment")
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	intent, err := s.gateway.RetrieveIntent(gatewayCtx, appointment.PaymentIntentID)
	if err != nil {
		return nil, nil, s.gatewayError(appointment, "RetrieveIntent", err)
	}
	if req.PaymentMethod != "" && needsConfirmation(intent.Status) {
		intent, err = s.gateway.ConfirmIntent(gatewayCtx, appointment.PaymentIntentID, req.PaymentMethod)
		if err != nil {
			return nil, nil, s.gatewayError(appointment, "ConfirmIntent", err)
		}
	}

	if intent.Status != payment.IntentSucceeded {
		s.cfg.Log.Info("Payment not completed yet",
			"appointment_id", appointment.ID,
			"payment_status", intent.Status,
		)
		return nil, &model.PaymentStatus{
			AppointmentID:   appointment.ID,
			PaymentIntentID: intent.ID,
			PaymentStatus:   string(intent.Status),
			ClientSecret:    intent.ClientSecret,
		}, nil
	}

	updated, err := s.transitionAndNotify(ctx, appointment, model.StatusAccepted,
		repository.Change{Status: model.StatusConfirmed},
		model.PartyExpert,
		model.NotificationPayload{
			Type:    model.NotificationAppointmentConfirmed,
			Message: "Appointment has been confirmed and payment received.",
		},
	)
	if err != nil {
		return nil, nil, err
	}
	return updated, nil, nil
}

func needsConfirmation(status payment.IntentStatus) bool {
	return status == payment.IntentRequiresConfirmation || status == payment.IntentRequiresPaymentMethod
}

func (s *appointmentService) gatewayError(appointment *model.Appointment, operation string, err error) error {
	s.cfg.Log.Error("Payment gateway call failed",
		"appointment_id", appointment.ID,
		"payment_intent_id", appointment.PaymentIntentID,
		"operation", operation,
		"error", err,
	)
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.PaymentGateway("Payment processing failed", errors.New("payment provider timed out"))
	}
	return apperrors.PaymentGateway("Payment processing failed", err)
}

func (s *appointmentService) PaymentStatus(ctx context.Context, p auth.Principal, id string) (*model.PaymentStatus, error) {
	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Owns(appointment) {
		return nil, apperrors.Forbidden("You are not a party to this appointment")
	}
	if appointment.PaymentIntentID == "" {
		return nil, apperrors.InvalidState("Appointment has no payment")
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	intent, err := s.gateway.RetrieveIntent(gatewayCtx, appointment.PaymentIntentID)
	if err != nil {
		return nil, s.gatewayError(appointment, "RetrieveIntent", err)
	}

	status := &model.PaymentStatus{
		AppointmentID:   appointment.ID,
		PaymentIntentID: intent.ID,
		PaymentStatus:   string(intent.Status),
	}
	// Only the paying user needs the secret.
	if p.IsUser() {
		status.ClientSecret = intent.ClientSecret
	}
	return status, nil
}

func (s *appointmentService) ToggleLock(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error) {
	appointment, err := s.loadOwnedByExpert(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !appointment.IsOpen {
		return nil, apperrors.InvalidState("Only open appointments can be locked")
	}
	if !appointment.Status.Occupies() {
		return nil, apperrors.InvalidState(fmt.Sprintf("Appointment is %s", appointment.Status))
	}

	locked := !appointment.IsLocked
	updated, err := s.repo.Transition(ctx, appointment.ID, appointment.Status, repository.Change{IsLocked: &locked})
	if err != nil {
		return nil, s.mapError(err, id)
	}

	s.cfg.Log.Info("Appointment lock toggled", "id", updated.ID, "is_locked", updated.IsLocked)
	return updated, nil
}

func (s *appointmentService) Close(ctx context.Context, p auth.Principal, id string, req *model.CloseRequest) (*model.Appointment, error) {
	appointment, err := s.loadOwnedByExpert(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !appointment.IsOpen {
		return nil, apperrors.InvalidState("Only open appointments can be closed")
	}
	if !appointment.Status.Occupies() {
		return nil, apperrors.InvalidState(fmt.Sprintf("Appointment is %s", appointment.Status))
	}

	to := s.now().UTC()
	if req != nil && req.To != nil {
		to = req.To.UTC()
	}
	if !to.After(appointment.From) {
		return nil, apperrors.InvalidInput("Closing time must be after the appointment start")
	}

	open := false
	updated, err := s.repo.Transition(ctx, appointment.ID, appointment.Status, repository.Change{
		IsOpen: &open,
		To:     &to,
	})
	if err != nil {
		return nil, s.mapError(err, id)
	}

	s.cfg.Log.Info("Open appointment closed", "id", updated.ID, "to", to)
	return updated, nil
}

func (s *appointmentService) Complete(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error) {
	appointment, err := s.loadOwnedByExpert(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != model.StatusConfirmed {
		return nil, apperrors.InvalidState("Only confirmed appointments can be completed")
	}
	if appointment.IsCompleted {
		return nil, apperrors.InvalidState("Appointment is already completed")
	}
	if s.now().Before(appointment.From) {
		return nil, apperrors.InvalidState("Appointment has not started yet")
	}

	completed := true
	updated, err := s.repo.Transition(ctx, appointment.ID, model.StatusConfirmed, repository.Change{IsCompleted: &completed})
	if err != nil {
		return nil, s.mapError(err, id)
	}

	s.cfg.Log.Info("Appointment completed", "id", updated.ID)
	return updated, nil
}

// Cancel moves a pending or accepted appointment to cancelled and tells the other party.
// A deposit intent that was already created is left for the provider to expire.
func (s *appointmentService) Cancel(ctx context.Context, p auth.Principal, id string) (*model.Appointment, error) {
	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Owns(appointment) {
		return nil, apperrors.Forbidden("You are not a party to this appointment")
	}
	if !appointment.Status.CanTransitionTo(model.StatusCancelled) {
		return nil, apperrors.InvalidState(fmt.Sprintf("Appointment is %s and can no longer be cancelled", appointment.Status))
	}

	return s.transitionAndNotify(ctx, appointment, appointment.Status,
		repository.Change{Status: model.StatusCancelled},
		p.Kind.Counterpart(),
		model.NotificationPayload{
			Type:    model.NotificationAppointmentCancelled,
			Message: fmt.Sprintf("Appointment for %s has been cancelled by the %s.", s.localStart(appointment), p.Kind),
		},
	)
}

// transitionAndNotify applies a guarded status change and stages the notification in one
// transaction, then publishes it.
func (s *appointmentService) transitionAndNotify(
	ctx context.Context,
	appointment *model.Appointment,
	expected model.AppointmentStatus,
	change repository.Change,
	notify model.PartyKind,
	payload model.NotificationPayload,
) (*model.Appointment, error) {
	if change.Status != "" && !expected.CanTransitionTo(change.Status) {
		return nil, apperrors.InvalidState(fmt.Sprintf("Cannot move appointment from %s to %s", expected, change.Status))
	}

	recipientID := appointment.UserID
	if notify == model.PartyExpert {
		recipientID = appointment.ExpertID
	}
	recipient, err := s.directory.Contact(ctx, notify, recipientID)
	if err != nil {
		return nil, err
	}
	payload.AppointmentID = appointment.ID

	var (
		updated *model.Appointment
		staged  *model.Notification
	)
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		a, err := s.repo.Transition(sessCtx, appointment.ID, expected, change)
		if err != nil {
			return err
		}
		n, err := s.notifier.Stage(sessCtx, recipient, payload)
		if err != nil {
			return apperrors.Persistence("Failed to update appointment", err)
		}
		updated, staged = a, n
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update appointment status",
			"id", appointment.ID,
			"from", expected,
			"to", change.Status,
			"error", err,
		)
		return nil, s.mapError(err, appointment.ID)
	}

	s.notifier.Publish(ctx, staged)

	s.cfg.Log.Info("Appointment status changed",
		"id", updated.ID,
		"from", expected,
		"to", updated.Status,
	)
	return updated, nil
}

func (s *appointmentService) localStart(a *model.Appointment) string {
	loc := s.directory.ExpertLocation(&model.Expert{ID: a.ExpertID, TimeZone: a.TimeZone})
	return a.From.In(loc).Format(notificationTimeLayout)
}
