package reservation_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-reservations/internal/auth"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/reservation"
	"ms-reservations/internal/utils"
)

// QRRenderer turns ticket data into a PNG QR code.
type QRRenderer interface {
	GenerateEncryptedQR(ticket models.TicketData) ([]byte, error)
}

// PDFRenderer lays a ticket out as a PDF document.
type PDFRenderer interface {
	Generate(ticket models.TicketData, qrCode []byte) ([]byte, error)
}

type Handler struct {
	ReservationService *reservation.Service
	QR                 QRRenderer
	PDF                PDFRenderer
	Logger             *logger.Logger
}

// RegisterRoutes mounts the endpoints any authenticated caller may use.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.CreateReservation)
	r.Get("/me", h.ListMyReservations)
	r.Post("/{reservationId}/cancel", h.CancelReservation)
	r.Get("/{reservationId}/ticket", h.GetTicket)
	r.Get("/{reservationId}/ticket/qr", h.GetTicketQR)
}

// RegisterAdminRoutes mounts the decision endpoints; r must already enforce the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.ListAllReservations)
	r.Post("/{reservationId}/confirm", h.ConfirmReservation)
	r.Post("/{reservationId}/refuse", h.RefuseReservation)
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReservationRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	res, err := h.ReservationService.CreateReservation(r.Context(), auth.UserID(r.Context()), req.EventID)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "reservation requested", res)
}

func (h *Handler) ListMyReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.ReservationService.ListMyReservations(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "reservations", list)
}

func (h *Handler) ListAllReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.ReservationService.ListAllReservations(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "reservations", list)
}

func (h *Handler) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	var req models.DecisionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	res, err := h.ReservationService.ConfirmReservation(r.Context(), chi.URLParam(r, "reservationId"), auth.UserID(r.Context()), req.AdminNote)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "reservation confirmed", res)
}

func (h *Handler) RefuseReservation(w http.ResponseWriter, r *http.Request) {
	var req models.DecisionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	res, err := h.ReservationService.RefuseReservation(r.Context(), chi.URLParam(r, "reservationId"), auth.UserID(r.Context()), req.AdminNote)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "reservation refused", res)
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	var req models.CancelRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}

	principal, _ := auth.PrincipalFrom(r.Context())
	res, err := h.ReservationService.CancelReservation(r.Context(), chi.URLParam(r, "reservationId"), principal, req.CancelReason)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "reservation canceled", res)
}

// GetTicket returns the ticket as a PDF, or as JSON with ?format=json.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.ticketData(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "json" {
		utils.WriteSuccess(w, http.StatusOK, "ticket", ticket)
		return
	}

	qrCode, err := h.QR.GenerateEncryptedQR(ticket)
	if err != nil {
		utils.WriteError(w, h.Logger, fmt.Errorf("generate QR code: %w", err))
		return
	}
	pdf, err := h.PDF.Generate(ticket, qrCode)
	if err != nil {
		utils.WriteError(w, h.Logger, fmt.Errorf("generate ticket PDF: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ticket-%s.pdf", ticket.TicketCode))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) GetTicketQR(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.ticketData(w, r)
	if !ok {
		return
	}

	qrCode, err := h.QR.GenerateEncryptedQR(ticket)
	if err != nil {
		utils.WriteError(w, h.Logger, fmt.Errorf("generate QR code: %w", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(qrCode)
}

func (h *Handler) ticketData(w http.ResponseWriter, r *http.Request) (models.TicketData, bool) {
	principal, _ := auth.PrincipalFrom(r.Context())
	res, err := h.ReservationService.GetTicketData(r.Context(), chi.URLParam(r, "reservationId"), principal)
	if err != nil {
		utils.WriteError(w, h.Logger, err)
		return models.TicketData{}, false
	}
	return models.NewTicketData(res), true
}
