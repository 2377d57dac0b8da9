package stats_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-reservations/internal/logger"
	"ms-reservations/internal/stats"
	"ms-reservations/internal/utils"
)

type Handler struct {
	Service *stats.Service
	Logger  *logger.Logger
}

func NewHandler(service *stats.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts the statistics endpoints; r must already enforce the admin role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/overview", h.GetOverview)
	r.Get("/occupancy", h.GetOccupancy)
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Service.GetOverview(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "overview", overview)
}

func (h *Handler) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	rates, err := h.Service.GetOccupancyRates(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "occupancy", rates)
}
