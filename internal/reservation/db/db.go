package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/database"
	"ms-reservations/internal/models"
	"ms-reservations/internal/reservation"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx reservation.TxStore) error) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

func (d *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	r := new(models.Reservation)
	err := d.Bun.NewSelect().
		Model(r).
		Relation("User").
		Relation("Event").
		Relation("Event.Location").
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("reservation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return r, nil
}

func (d *DB) ListByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	var out []models.Reservation
	err := d.Bun.NewSelect().
		Model(&out).
		Relation("Event").
		Relation("Event.Location").
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.created_at DESC").
		OrderExpr("?TableAlias.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reservations for user %s: %w", userID, err)
	}
	return out, nil
}

func (d *DB) ListAll(ctx context.Context, status *models.ReservationStatus) ([]models.Reservation, error) {
	var out []models.Reservation
	q := d.Bun.NewSelect().
		Model(&out).
		Relation("User").
		Relation("Event").
		OrderExpr("?TableAlias.created_at DESC").
		OrderExpr("?TableAlias.id DESC")
	if status != nil {
		q = q.Where("?TableAlias.status = ?", *status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

func (d *DB) SetTicketCode(ctx context.Context, id, code string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("ticket_code = ?", code).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("ticket_code IS NULL").
		Where("status = ?", models.ReservationConfirmed).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// txStore implements reservation.TxStore on an open transaction.
type txStore struct {
	tx bun.Tx
}

func (s *txStore) LockEvent(ctx context.Context, eventID string) (*models.Event, error) {
	e := new(models.Event)
	q := s.tx.NewSelect().Model(e).Where("?TableAlias.id = ?", eventID)
	if database.SupportsRowLocks(s.tx) {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("event %s not found", eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock event %s: %w", eventID, err)
	}
	return e, nil
}

func (s *txStore) GetReservationForUpdate(ctx context.Context, id string) (*models.Reservation, error) {
	r := new(models.Reservation)
	q := s.tx.NewSelect().Model(r).Where("?TableAlias.id = ?", id)
	if database.SupportsRowLocks(s.tx) {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("reservation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return r, nil
}

func (s *txStore) ExistsForUserEvent(ctx context.Context, userID, eventID string) (bool, error) {
	exists, err := s.tx.NewSelect().
		Model((*models.Reservation)(nil)).
		Where("user_id = ?", userID).
		Where("event_id = ?", eventID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check existing reservation: %w", err)
	}
	return exists, nil
}

func (s *txStore) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	n, err := s.tx.NewSelect().
		Model((*models.Reservation)(nil)).
		Where("event_id = ?", eventID).
		Where("status = ?", models.ReservationConfirmed).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count confirmed reservations: %w", err)
	}
	return n, nil
}

func (s *txStore) InsertReservation(ctx context.Context, r *models.Reservation) error {
	_, err := s.tx.NewInsert().Model(r).Exec(ctx)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("a reservation already exists for this event")
	}
	if database.IsForeignKeyViolation(err) {
		return apperr.Invalid("user %s is not registered", r.UserID)
	}
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (s *txStore) Transition(ctx context.Context, r *models.Reservation, prev models.ReservationStatus) (bool, error) {
	res, err := s.tx.NewUpdate().
		Model(r).
		Column("status", "confirmed_at", "refused_at", "canceled_at",
			"decided_by_id", "admin_note", "cancel_reason", "updated_at").
		WherePK().
		Where("status = ?", prev).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("update reservation %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
