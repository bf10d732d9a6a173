package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"expertly/internal/schedules/service"
	"expertly/pkg/auth"
	httputil "expertly/pkg/http"
	"expertly/pkg/logger"
	"expertly/pkg/model"
)

type ScheduleHandler struct {
	service service.ScheduleService
	log     *logger.Logger
}

func NewScheduleHandler(service service.ScheduleService, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
		log:     log,
	}
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	windows, err := h.service.ListForExpert(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, "", windows); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ScheduleHandler) ReplaceWeek(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := auth.Require(r.Context(), model.PartyExpert)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ReplaceWeek", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	var week model.WeeklySchedule
	if err := httputil.DecodeJSON(r, &week, false); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ReplaceWeek", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	windows, err := h.service.ReplaceWeek(r.Context(), principal.ID, &week)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ReplaceWeek", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, "Schedule updated", windows); err != nil {
		h.log.Error("failed to write success response", "handler", "ReplaceWeek", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ScheduleHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/experts/:id/schedules", h.List)
	router.PUT("/experts/me/schedules", h.ReplaceWeek)
}
