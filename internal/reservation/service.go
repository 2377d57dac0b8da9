package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

// Store is the persistence the allocator needs outside of a transaction.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
	// GetReservation loads a reservation with its user, event and the event's location.
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]models.Reservation, error)
	ListAll(ctx context.Context, status *models.ReservationStatus) ([]models.Reservation, error)
	// SetTicketCode stores code only if the reservation is confirmed and has none yet.
	SetTicketCode(ctx context.Context, id, code string) (bool, error)
}

// TxStore runs inside one database transaction. Reads of the event row lock it
// where the database supports row locks.
type TxStore interface {
	LockEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetReservationForUpdate(ctx context.Context, id string) (*models.Reservation, error)
	ExistsForUserEvent(ctx context.Context, userID, eventID string) (bool, error)
	CountConfirmed(ctx context.Context, eventID string) (int, error)
	InsertReservation(ctx context.Context, r *models.Reservation) error
	// Transition writes the decision columns of r only while the stored status is still prev.
	Transition(ctx context.Context, r *models.Reservation, prev models.ReservationStatus) (bool, error)
}

// EventLocker serialises create and confirm calls on one event across instances.
type EventLocker interface {
	AcquireEventLock(ctx context.Context, eventID, token string) error
	ReleaseEventLock(ctx context.Context, eventID, token string) error
}

type Publisher interface {
	PublishReservationEvent(ctx context.Context, evt models.ReservationEvent) error
}

type Notifier interface {
	Emit(evt models.ReservationEvent)
}

type Service struct {
	store     Store
	locker    EventLocker
	publisher Publisher
	notifier  Notifier
	logger    *logger.Logger
	now       func() time.Time
}

// NewReservationService wires the allocator. locker, publisher and notifier may be nil.
func NewReservationService(store Store, locker EventLocker, publisher Publisher, notifier Notifier, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		locker:    locker,
		publisher: publisher,
		notifier:  notifier,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateReservation requests a place on a published event for userID.
//
// Any existing row for the same user and event blocks the request, whatever its
// status, so a refused or canceled participant cannot ask again.
func (s *Service) CreateReservation(ctx context.Context, userID, eventID string) (*models.Reservation, error) {
	if userID == "" {
		return nil, apperr.Invalid("user is required")
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, apperr.Invalid("event_id must be a valid UUID")
	}

	unlock, err := s.lockEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var created *models.Reservation
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx TxStore) error {
		event, err := tx.LockEvent(ctx, eventID)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Invalid("event unavailable")
		}
		if err != nil {
			return err
		}
		if !event.IsPublished() {
			return apperr.Invalid("event unavailable")
		}

		exists, err := tx.ExistsForUserEvent(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict("a reservation already exists for this event")
		}

		confirmed, err := tx.CountConfirmed(ctx, eventID)
		if err != nil {
			return err
		}
		if confirmed >= event.CapacityMax {
			return apperr.Conflict("event is full")
		}

		now := s.now()
		r := &models.Reservation{
			ID:          uuid.NewString(),
			UserID:      userID,
			EventID:     eventID,
			Status:      models.ReservationPending,
			RequestedAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}
		r.Event = event
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogReservation("CREATE", created.ID, fmt.Sprintf("user %s requested event %s", userID, eventID))
	s.announce(ctx, models.ReservationCreatedType, created)
	return created, nil
}

// ConfirmReservation accepts a pending reservation if the event still has room.
func (s *Service) ConfirmReservation(ctx context.Context, id, adminID string, adminNote *string) (*models.Reservation, error) {
	existing, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockEvent(ctx, existing.EventID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var confirmed *models.Reservation
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx TxStore) error {
		r, err := tx.GetReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != models.ReservationPending {
			return apperr.Invalid("only pending reservations can be confirmed (current status %s)", r.Status)
		}

		event, err := tx.LockEvent(ctx, r.EventID)
		if err != nil {
			return err
		}
		if !event.IsPublished() {
			return apperr.Invalid("event is not published")
		}

		count, err := tx.CountConfirmed(ctx, r.EventID)
		if err != nil {
			return err
		}
		if count >= event.CapacityMax {
			return apperr.Conflict("event is full")
		}

		now := s.now()
		r.Status = models.ReservationConfirmed
		r.ConfirmedAt = &now
		r.DecidedByID = &adminID
		r.AdminNote = adminNote
		r.UpdatedAt = now

		ok, err := tx.Transition(ctx, r, models.ReservationPending)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Invalid("reservation is no longer pending")
		}
		r.Event = event
		confirmed = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogReservation("CONFIRM", id, fmt.Sprintf("confirmed by %s", adminID))
	s.announce(ctx, models.ReservationConfirmedType, confirmed)
	return confirmed, nil
}

// RefuseReservation rejects a pending reservation. Refusal never consumes capacity,
// so the event lock is not taken.
func (s *Service) RefuseReservation(ctx context.Context, id, adminID string, adminNote *string) (*models.Reservation, error) {
	var refused *models.Reservation
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx TxStore) error {
		r, err := tx.GetReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != models.ReservationPending {
			return apperr.Invalid("only pending reservations can be refused (current status %s)", r.Status)
		}

		now := s.now()
		r.Status = models.ReservationRefused
		r.RefusedAt = &now
		r.DecidedByID = &adminID
		r.AdminNote = adminNote
		r.UpdatedAt = now

		ok, err := tx.Transition(ctx, r, models.ReservationPending)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Invalid("reservation is no longer pending")
		}
		refused = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogReservation("REFUSE", id, fmt.Sprintf("refused by %s", adminID))
	s.announce(ctx, models.ReservationRefusedType, refused)
	return refused, nil
}

// CancelReservation is open to the owner and to admins. Only an admin is recorded
// as the decider.
func (s *Service) CancelReservation(ctx context.Context, id string, actor models.Principal, cancelReason *string) (*models.Reservation, error) {
	var canceled *models.Reservation
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx TxStore) error {
		r, err := tx.GetReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanAccess(r.UserID) {
			return apperr.Forbidden("you cannot cancel this reservation")
		}
		prev := r.Status
		if !prev.CanTransition(models.ReservationCanceled) {
			return apperr.Invalid("reservation is already canceled")
		}

		now := s.now()
		r.Status = models.ReservationCanceled
		r.CanceledAt = &now
		r.CancelReason = cancelReason
		r.UpdatedAt = now
		if actor.IsAdmin() {
			decider := actor.UserID
			r.DecidedByID = &decider
		} else {
			r.DecidedByID = nil
		}

		ok, err := tx.Transition(ctx, r, prev)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Invalid("reservation changed concurrently, reload and retry")
		}
		canceled = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogReservation("CANCEL", id, fmt.Sprintf("canceled by %s", actor.UserID))
	s.announce(ctx, models.ReservationCanceledType, canceled)
	return canceled, nil
}

// ListMyReservations returns the user's reservations, newest first.
func (s *Service) ListMyReservations(ctx context.Context, userID string) ([]models.Reservation, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListAllReservations optionally filters on one status; an unknown status is rejected.
func (s *Service) ListAllReservations(ctx context.Context, status string) ([]models.Reservation, error) {
	if status == "" {
		return s.store.ListAll(ctx, nil)
	}
	st, ok := models.ParseReservationStatus(status)
	if !ok {
		return nil, apperr.Invalid("unknown reservation status %q", status)
	}
	return s.store.ListAll(ctx, &st)
}

// GetTicketData returns the confirmed reservation with everything a ticket shows,
// issuing the ticket code on first access.
func (s *Service) GetTicketData(ctx context.Context, id string, actor models.Principal) (*models.Reservation, error) {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != models.ReservationConfirmed {
		return nil, apperr.Invalid("tickets are only available for confirmed reservations")
	}
	if !actor.CanAccess(r.UserID) {
		return nil, apperr.Forbidden("you cannot access this ticket")
	}
	if r.TicketCode != nil {
		return r, nil
	}

	issued, err := s.store.SetTicketCode(ctx, id, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("issue ticket code: %w", err)
	}

	// Re-read so a concurrent first access that won the update is returned.
	r, err = s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.TicketCode == nil {
		return nil, apperr.Invalid("tickets are only available for confirmed reservations")
	}
	if issued {
		s.logger.LogReservation("TICKET", id, "ticket code issued")
		s.announce(ctx, models.ReservationTicketType, r)
	}
	return r, nil
}

func (s *Service) lockEvent(ctx context.Context, eventID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	if err := s.locker.AcquireEventLock(ctx, eventID, token); err != nil {
		return nil, err
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := s.locker.ReleaseEventLock(releaseCtx, eventID, token); err != nil {
			s.logger.Error("LOCK", fmt.Sprintf("Failed to release lock on event %s: %v", eventID, err))
		}
	}, nil
}

// announce runs after commit; delivery failures are logged and never undo the write.
func (s *Service) announce(ctx context.Context, eventType string, r *models.Reservation) {
	evt := models.NewReservationEvent(eventType, r, s.now())
	if s.publisher != nil {
		if err := s.publisher.PublishReservationEvent(ctx, evt); err != nil {
			s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", eventType, r.ID, err))
		}
	}
	if s.notifier != nil {
		s.notifier.Emit(evt)
	}
}
