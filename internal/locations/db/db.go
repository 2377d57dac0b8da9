package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateLocation(ctx context.Context, loc *models.Location) error {
	if _, err := d.Bun.NewInsert().Model(loc).Exec(ctx); err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (d *DB) ListLocations(ctx context.Context) ([]models.Location, error) {
	var out []models.Location
	err := d.Bun.NewSelect().
		Model(&out).
		OrderExpr("created_at DESC").
		OrderExpr("id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return out, nil
}

func (d *DB) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	loc := new(models.Location)
	err := d.Bun.NewSelect().Model(loc).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("location %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get location %s: %w", id, err)
	}
	return loc, nil
}
