package models

import "time"

const (
	ReservationCreatedType   = "reservation.created"
	ReservationConfirmedType = "reservation.confirmed"
	ReservationRefusedType   = "reservation.refused"
	ReservationCanceledType  = "reservation.canceled"
	ReservationTicketType    = "reservation.ticket_issued"

	EventPublishedType = "event.published"
	EventCanceledType  = "event.canceled"
)

// ReservationEvent is published to Kafka and streamed to SSE subscribers after a commit.
type ReservationEvent struct {
	Type          string            `json:"type"`
	ReservationID string            `json:"reservation_id"`
	EventID       string            `json:"event_id"`
	UserID        string            `json:"user_id"`
	Status        ReservationStatus `json:"status"`
	DecidedByID   *string           `json:"decided_by_id,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

func NewReservationEvent(eventType string, r *Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          eventType,
		ReservationID: r.ID,
		EventID:       r.EventID,
		UserID:        r.UserID,
		Status:        r.Status,
		DecidedByID:   r.DecidedByID,
		OccurredAt:    at,
	}
}

type EventLifecycle struct {
	Type       string      `json:"type"`
	EventID    string      `json:"event_id"`
	Status     EventStatus `json:"status"`
	OccurredAt time.Time   `json:"occurred_at"`
}
