package location_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-reservations/internal/locations"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/utils"
)

type Handler struct {
	LocationService *locations.LocationService
	Logger          *logger.Logger
}

// RegisterRoutes mounts the admin location endpoints; r must already enforce the admin role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListLocations)
	r.Post("/", h.CreateLocation)
	r.Get("/{locationId}", h.GetLocation)
}

func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLocationRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	loc, err := h.LocationService.CreateLocation(r.Context(), req)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "location created", loc)
}

func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.LocationService.ListLocations(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "locations", locs)
}

func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.LocationService.GetLocation(r.Context(), chi.URLParam(r, "locationId"))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "location", loc)
}
