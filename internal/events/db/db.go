package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateEvent(ctx context.Context, e *models.Event) error {
	if _, err := d.Bun.NewInsert().Model(e).Exec(ctx); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// UpdateEvent writes the editable details only. Status columns belong to
// PublishEvent and CancelEvent.
func (d *DB) UpdateEvent(ctx context.Context, e *models.Event) error {
	_, err := d.Bun.NewUpdate().
		Model(e).
		Column("title", "description", "start_at", "end_at", "capacity_max",
			"location_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update event %s: %w", e.ID, err)
	}
	return nil
}

func (d *DB) PublishEvent(ctx context.Context, id string, at time.Time) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("status = ?", models.EventPublished).
		Set("published_at = ?", at).
		Set("canceled_at = NULL").
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("publish event %s: %w", id, err)
	}
	return nil
}

func (d *DB) CancelEvent(ctx context.Context, id string, at time.Time) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("status = ?", models.EventCanceled).
		Set("canceled_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cancel event %s: %w", id, err)
	}
	return nil
}

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	e := new(models.Event)
	err := d.Bun.NewSelect().
		Model(e).
		Relation("Location").
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("event %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, nil
}

func (d *DB) ListPublished(ctx context.Context) ([]models.Event, error) {
	var out []models.Event
	err := d.Bun.NewSelect().
		Model(&out).
		Relation("Location").
		Where("?TableAlias.status = ?", models.EventPublished).
		OrderExpr("?TableAlias.start_at ASC").
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published events: %w", err)
	}
	return out, nil
}

func (d *DB) ListAll(ctx context.Context) ([]models.Event, error) {
	var out []models.Event
	err := d.Bun.NewSelect().
		Model(&out).
		Relation("Location").
		OrderExpr("?TableAlias.created_at DESC").
		OrderExpr("?TableAlias.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// ConfirmedCounts returns the live confirmed count per event; events without
// confirmed reservations are absent from the map.
func (d *DB) ConfirmedCounts(ctx context.Context, eventIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		EventID string `bun:"event_id"`
		Count   int    `bun:"confirmed"`
	}
	err := d.Bun.NewSelect().
		Model((*models.Reservation)(nil)).
		Column("event_id").
		ColumnExpr("COUNT(*) AS confirmed").
		Where("status = ?", models.ReservationConfirmed).
		Where("event_id IN (?)", bun.In(eventIDs)).
		Group("event_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("count confirmed reservations: %w", err)
	}

	for _, row := range rows {
		counts[row.EventID] = row.Count
	}
	return counts, nil
}

func (d *DB) LocationExists(ctx context.Context, id string) (bool, error) {
	exists, err := d.Bun.NewSelect().
		Model((*models.Location)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check location %s: %w", id, err)
	}
	return exists, nil
}
