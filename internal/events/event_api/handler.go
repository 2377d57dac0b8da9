package event_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-reservations/internal/auth"
	"ms-reservations/internal/events"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/utils"
)

type Handler struct {
	EventService *events.EventService
	Logger       *logger.Logger
}

// RegisterPublicRoutes mounts the participant-facing catalogue.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.ListPublished)
	r.Get("/{eventId}", h.GetPublishedDetail)
}

// RegisterAdminRoutes mounts event management; r must already enforce the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin", h.ListAll)
	r.Post("/", h.CreateEvent)
	r.Patch("/{eventId}", h.UpdateEvent)
	r.Post("/{eventId}/publish", h.PublishEvent)
	r.Post("/{eventId}/cancel", h.CancelEvent)
}

func (h *Handler) ListPublished(w http.ResponseWriter, r *http.Request) {
	evs, err := h.EventService.ListPublished(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "events", evs)
}

func (h *Handler) GetPublishedDetail(w http.ResponseWriter, r *http.Request) {
	ev, err := h.EventService.GetPublishedDetail(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "event", ev)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	evs, err := h.EventService.ListAll(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "events", evs)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	ev, err := h.EventService.CreateEvent(r.Context(), req, auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "event created", ev)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateEventRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	ev, err := h.EventService.UpdateEvent(r.Context(), chi.URLParam(r, "eventId"), req)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "event updated", ev)
}

func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.EventService.PublishEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "event published", ev)
}

func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.EventService.CancelEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "event canceled", ev)
}
