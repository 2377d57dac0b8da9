package models

import "time"

type Overview struct {
	TotalEvents           int `json:"total_events"`
	PublishedEvents       int `json:"published_events"`
	UpcomingEvents        int `json:"upcoming_events"`
	TotalReservations     int `json:"total_reservations"`
	ConfirmedReservations int `json:"confirmed_reservations"`
	PendingReservations   int `json:"pending_reservations"`
	CanceledReservations  int `json:"canceled_reservations"`
}

type OccupancyRate struct {
	EventID     string    `json:"event_id"`
	Title       string    `json:"title"`
	CapacityMax int       `json:"capacity_max"`
	Confirmed   int       `json:"confirmed"`
	FillRate    float64   `json:"fill_rate"`
	StartAt     time.Time `json:"start_at"`
}

// FillRate is confirmed/capacity, or 0 when capacity is not positive.
func FillRate(confirmed, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(confirmed) / float64(capacity)
}
