package models

import (
	"time"
)

// TicketData is the payload handed to ticket renderers for a confirmed reservation.
type TicketData struct {
	ReservationID    string            `json:"reservation_id"`
	TicketCode       string            `json:"ticket_code"`
	Status           ReservationStatus `json:"status"`
	ParticipantName  string            `json:"participant_name"`
	ParticipantEmail string            `json:"participant_email"`
	EventID          string            `json:"event_id"`
	EventTitle       string            `json:"event_title"`
	StartAt          time.Time         `json:"start_at"`
	EndAt            *time.Time        `json:"end_at,omitempty"`
	LocationName     string            `json:"location_name,omitempty"`
	LocationAddress  string            `json:"location_address,omitempty"`
	LocationCity     string            `json:"location_city,omitempty"`
	LocationCountry  string            `json:"location_country,omitempty"`
	ConfirmedAt      *time.Time        `json:"confirmed_at,omitempty"`
}

// NewTicketData flattens a reservation loaded with its user, event and location.
func NewTicketData(r *Reservation) TicketData {
	td := TicketData{
		ReservationID: r.ID,
		Status:        r.Status,
		EventID:       r.EventID,
		ConfirmedAt:   r.ConfirmedAt,
	}
	if r.TicketCode != nil {
		td.TicketCode = *r.TicketCode
	}
	if r.User != nil {
		td.ParticipantName = r.User.DisplayName()
		td.ParticipantEmail = r.User.Email
	}
	if r.Event != nil {
		td.EventTitle = r.Event.Title
		td.StartAt = r.Event.StartAt
		td.EndAt = r.Event.EndAt
		if loc := r.Event.Location; loc != nil {
			td.LocationName = loc.Name
			td.LocationAddress = loc.AddressLine
			td.LocationCity = loc.City
			td.LocationCountry = loc.Country
		}
	}
	return td
}
