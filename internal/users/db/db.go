package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) ListUsers(ctx context.Context, query string) ([]models.User, error) {
	var out []models.User
	q := d.Bun.NewSelect().
		Model(&out).
		OrderExpr("created_at DESC").
		OrderExpr("id DESC")
	if query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(email) LIKE ?", pattern).
				WhereOr("LOWER(full_name) LIKE ?", pattern)
		})
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (d *DB) UpdateRole(ctx context.Context, id string, role models.Role, at time.Time) (*models.User, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("role = ?", role).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update role of %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, apperr.NotFound("user %s not found", id)
	}

	u := new(models.User)
	err = d.Bun.NewSelect().Model(u).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}
