package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"expertly/internal/appointments/service"
	"expertly/pkg/auth"
	httputil "expertly/pkg/http"
	"expertly/pkg/logger"
	"expertly/pkg/model"
)

type AppointmentHandler struct {
	service service.AppointmentService
	log     *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log,
	}
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.Require(r.Context(), model.PartyUser)
	if err != nil {
		h.fail(w, "Create", err)
		return
	}

	var req model.AppointmentRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, "Create", err)
		return
	}

	appointment, err := h.service.Create(r.Context(), principal, ps.ByName("id"), &req)
	if err != nil {
		h.fail(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, "Appointment request sent", appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *AppointmentHandler) Respond(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.Require(r.Context(), model.PartyExpert)
	if err != nil {
		h.fail(w, "Respond", err)
		return
	}

	var req model.RespondRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.fail(w, "Respond", err)
		return
	}

	result, err := h.service.Respond(r.Context(), principal, ps.ByName("id"), ps.ByName("appointment_id"), &req)
	if err != nil {
		h.fail(w, "Respond", err)
		return
	}

	message := "Appointment rejected"
	if req.Response == model.ResponseAccept {
		message = "Appointment accepted"
	}
	if err := httputil.WriteSuccess(w, message, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Respond", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.Require(r.Context(), model.PartyUser)
	if err != nil {
		h.fail(w, "ConfirmPayment", err)
		return
	}

	var req model.ConfirmPaymentRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.fail(w, "ConfirmPayment", err)
		return
	}

	appointment, pending, err := h.service.ConfirmPayment(r.Context(), principal, ps.ByName("id"), &req)
	if err != nil {
		h.fail(w, "ConfirmPayment", err)
		return
	}

	if pending != nil {
		if err := httputil.WriteAccepted(w, "Payment not completed", pending); err != nil {
			h.log.Error("failed to write success response", "handler", "ConfirmPayment", "operation", "WriteAccepted", "error", err)
		}
		return
	}
	if err := httputil.WriteSuccess(w, "Payment confirmed", appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "ConfirmPayment", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) PaymentStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.Require(r.Context())
	if err != nil {
		h.fail(w, "PaymentStatus", err)
		return
	}

	status, err := h.service.PaymentStatus(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.fail(w, "PaymentStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, "", status); err != nil {
		h.log.Error("failed to write success response", "handler", "PaymentStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) ToggleLock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.Require(r.Context(), model.PartyExpert)
	if err != nil {
		h.fail(w, "ToggleLock", err)
		return
	}

	appointment, err := h.service.ToggleLock(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.fail(w, "ToggleLock", err)
		return
	}

	message := "Appointment unlocked successfully"
	if appointment.IsLocked {
		message = "Appointment locked successfully"
	}
	if err := httputil.WriteSuccess(w, message, appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "ToggleLock", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) Close(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.Require(r.Context(), model.PartyExpert)
	if err != nil {
		h.fail(w, "Close", err)
		return
	}

	var req model.CloseRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.fail(w, "Close", err)
		return
	}

	appointment, err := h.service.Close(r.Context(), principal, ps.ByName("id"), &req)
	if err != nil {
		h.fail(w, "Close", err)
		return
	}

	if err := httputil.WriteSuccess(w, "Appointment closed", appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "Close", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.Require(r.Context(), model.PartyExpert)
	if err != nil {
		h.fail(w, "Complete", err)
		return
	}

	appointment, err := h.service.Complete(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.fail(w, "Complete", err)
		return
	}

	if err := httputil.WriteSuccess(w, "Appointment completed", appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "Complete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.Require(r.Context())
	if err != nil {
		h.fail(w, "Cancel", err)
		return
	}

	appointment, err := h.service.Cancel(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.fail(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, "Appointment cancelled", appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.Require(r.Context())
	if err != nil {
		h.fail(w, "Get", err)
		return
	}

	appointment, err := h.service.Get(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.fail(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, "", appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) MyAppointments(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := auth.Require(r.Context())
	if err != nil {
		h.fail(w, "MyAppointments", err)
		return
	}

	appointments, err := h.service.MyAppointments(r.Context(), principal)
	if err != nil {
		h.fail(w, "MyAppointments", err)
		return
	}

	if err := httputil.WriteSuccess(w, "", appointments); err != nil {
		h.log.Error("failed to write success response", "handler", "MyAppointments", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) fail(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/expert/:id/appointments", h.Create)
	router.PUT("/expert/:id/appointments/:appointment_id/respond", h.Respond)
	router.GET("/my-appointments", h.MyAppointments)
	router.GET("/appointments/:id", h.Get)
	router.DELETE("/appointments/:id", h.Cancel)
	router.POST("/appointments/:id/confirm-payment", h.ConfirmPayment)
	router.GET("/appointments/:id/payment-status", h.PaymentStatus)
	router.PATCH("/appointments/:id/lock", h.ToggleLock)
	router.PATCH("/appointments/:id/close", h.Close)
	router.PATCH("/appointments/:id/complete", h.Complete)
}
