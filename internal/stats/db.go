package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-reservations/internal/database"
	"ms-reservations/internal/models"
)

// DB runs the read-only aggregate queries behind the statistics endpoints.
type DB struct {
	bun *bun.DB
}

func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

type occupancyRow struct {
	EventID     string    `bun:"event_id"`
	Title       string    `bun:"title"`
	CapacityMax int       `bun:"capacity_max"`
	StartAt     time.Time `bun:"start_at"`
	Confirmed   int       `bun:"confirmed"`
}

// CountOverview takes all seven counts inside one transaction. Postgres and MySQL
// read them from a single repeatable-read snapshot.
func (db *DB) CountOverview(ctx context.Context, now time.Time) (*models.Overview, error) {
	var opts *sql.TxOptions
	if database.SupportsRowLocks(db.bun) {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}

	out := &models.Overview{}
	err := db.bun.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		events := func() *bun.SelectQuery { return tx.NewSelect().Model((*models.Event)(nil)) }
		reservations := func() *bun.SelectQuery { return tx.NewSelect().Model((*models.Reservation)(nil)) }

		counts := []struct {
			dst *int
			q   *bun.SelectQuery
		}{
			{&out.TotalEvents, events()},
			{&out.PublishedEvents, events().Where("status = ?", models.EventPublished)},
			{&out.UpcomingEvents, events().Where("status = ?", models.EventPublished).Where("start_at > ?", now)},
			{&out.TotalReservations, reservations()},
			{&out.ConfirmedReservations, reservations().Where("status = ?", models.ReservationConfirmed)},
			{&out.PendingReservations, reservations().Where("status = ?", models.ReservationPending)},
			{&out.CanceledReservations, reservations().Where("status = ?", models.ReservationCanceled)},
		}
		for _, c := range counts {
			n, err := c.q.Count(ctx)
			if err != nil {
				return err
			}
			*c.dst = n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count overview: %w", err)
	}
	return out, nil
}

// PublishedOccupancy returns each published event with its confirmed count, by start date.
func (db *DB) PublishedOccupancy(ctx context.Context) ([]occupancyRow, error) {
	var rows []occupancyRow
	err := db.bun.NewSelect().
		TableExpr("events AS e").
		ColumnExpr("e.id AS event_id").
		ColumnExpr("e.title, e.capacity_max, e.start_at").
		ColumnExpr("COUNT(r.id) AS confirmed").
		Join("LEFT JOIN reservations AS r ON r.event_id = e.id AND r.status = ?", models.ReservationConfirmed).
		Where("e.status = ?", models.EventPublished).
		GroupExpr("e.id, e.title, e.capacity_max, e.start_at").
		OrderExpr("e.start_at ASC").
		OrderExpr("e.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("occupancy query: %w", err)
	}
	return rows, nil
}
