package user_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/users"
	"ms-reservations/internal/utils"
)

type Handler struct {
	UserService *users.UserService
	Logger      *logger.Logger
}

// RegisterRoutes mounts user administration; r must already enforce the admin role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListUsers)
	r.Patch("/{userId}/role", h.UpdateRole)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.UserService.ListUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "users", list)
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRoleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	u, err := h.UserService.UpdateRole(r.Context(), chi.URLParam(r, "userId"), req.Role)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "role updated", u)
}
