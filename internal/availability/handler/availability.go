package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"expertly/internal/availability/service"
	httputil "expertly/pkg/http"
	"expertly/pkg/logger"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

// ForDate serves GET /expert/:id/appointments?selectedDate=YYYY-MM-DD.
func (h *AvailabilityHandler) ForDate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	availability, err := h.service.ForDate(r.Context(), ps.ByName("id"), r.URL.Query().Get("selectedDate"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ForDate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, availability.Message, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "ForDate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/expert/:id/appointments", h.ForDate)
}
