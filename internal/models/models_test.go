package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReservationStatusTransitions(t *testing.T) {
	all := []ReservationStatus{ReservationPending, ReservationConfirmed, ReservationRefused, ReservationCanceled}

	for _, from := range all {
		assert.Equal(t, from == ReservationPending, from.CanTransition(ReservationConfirmed), "confirm from %s", from)
		assert.Equal(t, from == ReservationPending, from.CanTransition(ReservationRefused), "refuse from %s", from)
		assert.Equal(t, from != ReservationCanceled, from.CanTransition(ReservationCanceled), "cancel from %s", from)
		assert.False(t, from.CanTransition(ReservationPending), "back to pending from %s", from)
	}
}

func TestParseEnums(t *testing.T) {
	st, ok := ParseReservationStatus("confirmed")
	assert.True(t, ok)
	assert.Equal(t, ReservationConfirmed, st)

	_, ok = ParseReservationStatus("ARCHIVED")
	assert.False(t, ok)

	es, ok := ParseEventStatus(" published ")
	assert.True(t, ok)
	assert.Equal(t, EventPublished, es)

	r, ok := ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	_, ok = ParseRole("ROOT")
	assert.False(t, ok)
}

func TestPrincipalCanAccess(t *testing.T) {
	admin := Principal{UserID: "a", Role: RoleAdmin}
	owner := Principal{UserID: "u1", Role: RoleParticipant}
	other := Principal{UserID: "u2", Role: RoleParticipant}

	assert.True(t, admin.CanAccess("u1"))
	assert.True(t, owner.CanAccess("u1"))
	assert.False(t, other.CanAccess("u1"))
	assert.False(t, Principal{Role: RoleParticipant}.CanAccess(""))
}

func TestRemainingCapacityIsNotClamped(t *testing.T) {
	e := Event{ID: "e1", CapacityMax: 2}

	assert.Equal(t, 2, NewPublishedEvent(e, 0).RemainingCapacity)
	assert.Equal(t, -1, NewAdminEvent(e, 3).RemainingCapacity)
	assert.Equal(t, 3, NewAdminEvent(e, 3).ConfirmedReservations)
}

func TestFillRate(t *testing.T) {
	assert.Equal(t, 0.0, FillRate(3, 0))
	assert.InDelta(t, 0.5, FillRate(2, 4), 1e-9)
}

func TestNewTicketData(t *testing.T) {
	code := "abc"
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	r := &Reservation{
		ID:         "r1",
		EventID:    "e1",
		Status:     ReservationConfirmed,
		TicketCode: &code,
		User:       &User{Email: "p@example.com"},
		Event: &Event{
			Title:    "Go Meetup",
			StartAt:  start,
			Location: &Location{Name: "Hall A", City: "Rabat"},
		},
	}

	td := NewTicketData(r)

	assert.Equal(t, "abc", td.TicketCode)
	assert.Equal(t, "p@example.com", td.ParticipantName)
	assert.Equal(t, "Go Meetup", td.EventTitle)
	assert.Equal(t, start, td.StartAt)
	assert.Equal(t, "Hall A", td.LocationName)
	assert.Equal(t, "Rabat", td.LocationCity)
}
