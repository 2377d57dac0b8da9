package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationRefused   ReservationStatus = "REFUSED"
	ReservationCanceled  ReservationStatus = "CANCELED"
)

func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch st := ReservationStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case ReservationPending, ReservationConfirmed, ReservationRefused, ReservationCanceled:
		return st, true
	default:
		return "", false
	}
}

// CanTransition reports whether the allocator may move a reservation from s to next.
// Cancellation is accepted from every status except CANCELED itself.
func (s ReservationStatus) CanTransition(next ReservationStatus) bool {
	switch next {
	case ReservationConfirmed, ReservationRefused:
		return s == ReservationPending
	case ReservationCanceled:
		return s != ReservationCanceled
	default:
		return false
	}
}

type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID           string            `bun:"id,pk" json:"id"`
	UserID       string            `bun:"user_id,notnull,unique:uq_reservation_user_event" json:"user_id"`
	User         *User             `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	EventID      string            `bun:"event_id,notnull,unique:uq_reservation_user_event" json:"event_id"`
	Event        *Event            `bun:"rel:belongs-to,join:event_id=id" json:"event,omitempty"`
	Status       ReservationStatus `bun:"status,notnull" json:"status"`
	RequestedAt  time.Time         `bun:"requested_at,notnull" json:"requested_at"`
	ConfirmedAt  *time.Time        `bun:"confirmed_at" json:"confirmed_at,omitempty"`
	RefusedAt    *time.Time        `bun:"refused_at" json:"refused_at,omitempty"`
	CanceledAt   *time.Time        `bun:"canceled_at" json:"canceled_at,omitempty"`
	DecidedByID  *string           `bun:"decided_by_id" json:"decided_by_id,omitempty"`
	AdminNote    *string           `bun:"admin_note,type:text" json:"admin_note,omitempty"`
	CancelReason *string           `bun:"cancel_reason,type:text" json:"cancel_reason,omitempty"`
	TicketCode   *string           `bun:"ticket_code,unique" json:"ticket_code,omitempty"`
	CreatedAt    time.Time         `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

type CreateReservationRequest struct {
	EventID string `json:"event_id"`
}

type DecisionRequest struct {
	AdminNote *string `json:"admin_note"`
}

type CancelRequest struct {
	CancelReason *string `json:"cancel_reason"`
}
