package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"expertly/internal/ratings/service"
	"expertly/pkg/auth"
	httputil "expertly/pkg/http"
	"expertly/pkg/logger"
	"expertly/pkg/model"
)

type RatingHandler struct {
	service service.RatingService
	log     *logger.Logger
}

func NewRatingHandler(service service.RatingService, log *logger.Logger) *RatingHandler {
	return &RatingHandler{
		service: service,
		log:     log,
	}
}

func (h *RatingHandler) Rate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.Require(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Rate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	var req model.RateRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Rate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	result, err := h.service.Rate(r.Context(), principal, ps.ByName("id"), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Rate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if result.Created {
		if err := httputil.WriteCreated(w, "Rating saved", result); err != nil {
			h.log.Error("failed to write success response", "handler", "Rate", "operation", "WriteCreated", "error", err)
		}
		return
	}
	if err := httputil.WriteSuccess(w, "Rating updated", result); err != nil {
		h.log.Error("failed to write success response", "handler", "Rate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RatingHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.Require(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	rates, err := h.service.ForAppointment(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, "", rates); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RatingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/appointments/:id/rate", h.Rate)
	router.GET("/appointments/:id/rates", h.List)
}
