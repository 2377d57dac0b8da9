package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventCanceled  EventStatus = "CANCELED"
)

func ParseEventStatus(s string) (EventStatus, bool) {
	switch st := EventStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case EventDraft, EventPublished, EventCanceled:
		return st, true
	default:
		return "", false
	}
}

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string      `bun:"id,pk" json:"id"`
	Title       string      `bun:"title,notnull" json:"title"`
	Description string      `bun:"description,type:text,nullzero" json:"description,omitempty"`
	StartAt     time.Time   `bun:"start_at,notnull" json:"start_at"`
	EndAt       *time.Time  `bun:"end_at" json:"end_at,omitempty"`
	Status      EventStatus `bun:"status,notnull" json:"status"`
	CapacityMax int         `bun:"capacity_max,notnull" json:"capacity_max"`
	LocationID  string      `bun:"location_id,notnull" json:"location_id"`
	Location    *Location   `bun:"rel:belongs-to,join:location_id=id" json:"location,omitempty"`
	PublishedAt *time.Time  `bun:"published_at" json:"published_at,omitempty"`
	CanceledAt  *time.Time  `bun:"canceled_at" json:"canceled_at,omitempty"`
	CreatedByID string      `bun:"created_by_id,notnull" json:"created_by_id"`
	CreatedAt   time.Time   `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time   `bun:"updated_at,notnull" json:"updated_at"`
}

func (e *Event) IsPublished() bool {
	return e.Status == EventPublished
}

// CreateEventRequest carries raw RFC 3339 timestamps so the event service owns date validation.
type CreateEventRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	StartAt     string  `json:"start_at"`
	EndAt       *string `json:"end_at"`
	CapacityMax int     `json:"capacity_max"`
	LocationID  string  `json:"location_id"`
}

// UpdateEventRequest holds only the fields the caller supplied.
type UpdateEventRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartAt     *string `json:"start_at"`
	EndAt       *string `json:"end_at"`
	CapacityMax *int    `json:"capacity_max"`
	LocationID  *string `json:"location_id"`
}

// PublishedEvent is the participant-facing view of a published event.
type PublishedEvent struct {
	Event
	RemainingCapacity int `json:"remaining_capacity"`
}

// AdminEvent is the back-office view; RemainingCapacity is negative when capacity
// was lowered below the confirmed count.
type AdminEvent struct {
	Event
	ConfirmedReservations int `json:"confirmed_reservations"`
	RemainingCapacity     int `json:"remaining_capacity"`
}

func NewPublishedEvent(e Event, confirmed int) PublishedEvent {
	return PublishedEvent{Event: e, RemainingCapacity: e.CapacityMax - confirmed}
}

func NewAdminEvent(e Event, confirmed int) AdminEvent {
	return AdminEvent{Event: e, ConfirmedReservations: confirmed, RemainingCapacity: e.CapacityMax - confirmed}
}
