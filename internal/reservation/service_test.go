package reservation_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/models"
	"ms-reservations/internal/reservation"
)

func strPtr(s string) *string { return &s }

func TestScenarioA_FullEventRejectsNewRequests(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, setupTestLocker(t), nil)
	event := f.seedEvent(t, 1, models.EventPublished)
	u1, u2 := f.participant(t), f.participant(t)

	r, err := f.svc.CreateReservation(ctx, u1.UserID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationPending, r.Status)
	assert.False(t, r.RequestedAt.IsZero())

	confirmed, err := f.svc.ConfirmReservation(ctx, r.ID, f.admin.UserID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	require.NotNil(t, confirmed.DecidedByID)
	assert.Equal(t, f.admin.UserID, *confirmed.DecidedByID)
	assert.Equal(t, 0, event.CapacityMax-f.countConfirmed(t, event.ID))

	_, err = f.svc.CreateReservation(ctx, u2.UserID, event.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestScenarioB_RefusedUserCannotRequestAgain(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	event := f.seedEvent(t, 10, models.EventPublished)
	u1 := f.participant(t)

	r, err := f.svc.CreateReservation(ctx, u1.UserID, event.ID)
	require.NoError(t, err)

	refused, err := f.svc.RefuseReservation(ctx, r.ID, f.admin.UserID, strPtr("incomplete profile"))
	require.NoError(t, err)
	assert.Equal(t, models.ReservationRefused, refused.Status)
	assert.NotNil(t, refused.RefusedAt)
	require.NotNil(t, refused.AdminNote)
	assert.Equal(t, "incomplete profile", *refused.AdminNote)

	stored, err := f.store.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationRefused, stored.Status)
	assert.Equal(t, "incomplete profile", *stored.AdminNote)

	_, err = f.svc.CreateReservation(ctx, u1.UserID, event.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestScenarioC_CancelFreesCapacity(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, setupTestLocker(t), nil)
	event := f.seedEvent(t, 2, models.EventPublished)

	var ids []string
	for i := 0; i < 2; i++ {
		u := f.participant(t)
		r, err := f.svc.CreateReservation(ctx, u.UserID, event.ID)
		require.NoError(t, err)
		_, err = f.svc.ConfirmReservation(ctx, r.ID, f.admin.UserID, nil)
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	_, err := f.svc.CreateReservation(ctx, f.participant(t).UserID, event.ID)
	require.ErrorIs(t, err, apperr.ErrConflict, "event should be full")

	canceled, err := f.svc.CancelReservation(ctx, ids[0], f.admin, strPtr("double booking"))
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCanceled, canceled.Status)
	assert.Equal(t, 1, f.countConfirmed(t, event.ID))

	third, err := f.svc.CreateReservation(ctx, f.participant(t).UserID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationPending, third.Status)
}

func TestScenarioD_TicketCodeIsStable(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	event := f.seedEvent(t, 5, models.EventPublished)
	owner := f.participant(t)

	r, err := f.svc.CreateReservation(ctx, owner.UserID, event.ID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmReservation(ctx, r.ID, f.admin.UserID, nil)
	require.NoError(t, err)

	first, err := f.svc.GetTicketData(ctx, r.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, first.TicketCode)
	assert.NotEmpty(t, *first.TicketCode)
	require.NotNil(t, first.Event)
	require.NotNil(t, first.Event.Location)
	require.NotNil(t, first.User)

	second, err := f.svc.GetTicketData(ctx, r.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, *first.TicketCode, *second.TicketCode)

	byAdmin, err := f.svc.GetTicketData(ctx, r.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, *first.TicketCode, *byAdmin.TicketCode)

	assert.Equal(t, 1, countType(f.notifier.types(), models.ReservationTicketType))
}

func TestConcurrentTicketAccessIssuesOneCode(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	event := f.seedEvent(t, 5, models.EventPublished)
	owner := f.participant(t)

	r, err := f.svc.CreateReservation(ctx, owner.UserID, event.ID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmReservation(ctx, r.ID, f.admin.UserID, nil)
	require.NoError(t, err)

	const callers = 6
	codes := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := f.svc.GetTicketData(ctx, r.ID, owner)
			if assert.NoError(t, err) && assert.NotNil(t, got.TicketCode) {
				codes[i] = *got.TicketCode
			}
		}(i)
	}
	wg.Wait()

	for _, c := range codes {
		assert.Equal(t, codes[0], c)
	}
}

func TestCreateReservation_EventUnavailable(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	u := f.participant(t)

	draft := f.seedEvent(t, 5, models.EventDraft)
	canceled := f.seedEvent(t, 5, models.EventCanceled)

	for _, id := range []string{draft.ID, canceled.ID, uuid.NewString()} {
		_, err := f.svc.CreateReservation(ctx, u.UserID, id)
		assert.ErrorIs(t, err, apperr.ErrInvalidRequest, id)
	}

	_, err := f.svc.CreateReservation(ctx, u.UserID, "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}

func TestStateMachineLegality(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	event := f.seedEvent(t, 10, models.EventPublished)

	newPending := func() *models.Reservation {
		r, err := f.svc.CreateReservation(ctx, f.participant(t).UserID, event.ID)
		require.NoError(t, err)
		return r
	}

	confirmed := newPending()
	_, err := f.svc.ConfirmReservation(ctx, confirmed.ID, f.admin.UserID, nil)
	require.NoError(t, err)

	refused := newPending()
	_, err = f.svc.RefuseReservation(ctx, refused.ID, f.admin.UserID, nil)
	require.NoError(t, err)

	canceled := newPending()
	_, err = f.svc.CancelReservation(ctx, canceled.ID, f.admin, nil)
	require.NoError(t, err)

	for name, id := range map[string]string{"confirmed": confirmed.ID, "refused": refused.ID, "canceled": canceled.ID} {
		_, err := f.svc.ConfirmReservation(ctx, id, f.admin.UserID, nil)
		assert.ErrorIs(t, err, apperr.ErrInvalidRequest, "confirm %s", name)

		_, err = f.svc.RefuseReservation(ctx, id, f.admin.UserID, nil)
		assert.ErrorIs(t, err, apperr.ErrInvalidRequest, "refuse %s", name)
	}

	_, err = f.svc.CancelReservation(ctx, canceled.ID, f.admin, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest, "cancel twice")
}

func TestConfirmReservation_Errors(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)

	_, err := f.svc.ConfirmReservation(ctx, uuid.NewString(), f.admin.UserID, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.RefuseReservation(ctx, uuid.NewString(), f.admin.UserID, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	event := f.seedEvent(t, 1, models.EventPublished)
	r, err := f.svc.CreateReservation(ctx, f.participant(t).UserID, event.ID)
	require.NoError(t, err)

	_, err = f.bun.NewUpdate().Model((*models.Event)(nil)).
		Set("status = ?", models.EventCanceled).Where("id = ?", event.ID).Exec(ctx)
	require.NoError(t, err)

	_, err = f.svc.ConfirmReservation(ctx, r.ID, f.admin.UserID, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest, "event no longer published")
}

func TestConfirmReservation_CapacityFilledSinceRequest(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	event := f.seedEvent(t, 1, models.EventPublished)

	first, err := f.svc.CreateReservation(ctx, f.participant(t).UserID, event.ID)
	require.NoError(t, err)
	second, err := f.svc.CreateReservation(ctx, f.participant(t).UserID, event.ID)
	require.NoError(t, err)

	_, err = f.svc.ConfirmReservation(ctx, first.ID, f.admin.UserID, strPtr("welcome"))
	require.NoError(t, err)

	_, err = f.svc.ConfirmReservation(ctx, second.ID, f.admin.UserID, nil)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored, err := f.store.GetReservation(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationPending, stored.Status, "failed confirm must not write")
}

func TestCapacityLoweredBelowConfirmedBlocksConfirm(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	event := f.seedEvent(t, 3, models.EventPublished)

	var pending []string
	for i := 0; i < 3; i++ {
		r, err := f.svc.CreateReservation(ctx, f.participant(t).UserID, event.ID)
		require.NoError(t, err)
		pending = append(pending, r.ID)
	}
	for _, id := range pending[:2] {
		_, err := f.svc.ConfirmReservation(ctx, id, f.admin.UserID, nil)
		require.NoError(t, err)
	}

	f.setCapacity(t, event.ID, 1)

	_, err := f.svc.ConfirmReservation(ctx, pending[2], f.admin.UserID, nil)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 2, f.countConfirmed(t, event.ID))
}

func TestCancelReservation_Authorization(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	event := f.seedEvent(t, 5, models.EventPublished)
	owner, stranger := f.participant(t), f.participant(t)

	r, err := f.svc.CreateReservation(ctx, owner.UserID, event.ID)
	require.NoError(t, err)

	_, err = f.svc.CancelReservation(ctx, r.ID, stranger, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.CancelReservation(ctx, uuid.NewString(), owner, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	canceled, err := f.svc.CancelReservation(ctx, r.ID, owner, strPtr("cannot attend"))
	require.NoError(t, err)
	assert.Nil(t, canceled.DecidedByID, "owner cancellation has no decider")
	require.NotNil(t, canceled.CancelReason)
	assert.Equal(t, "cannot attend", *canceled.CancelReason)
	assert.NotNil(t, canceled.CanceledAt)
}

func TestCancelReservation_AdminIsRecordedAsDecider(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	event := f.seedEvent(t, 5, models.EventPublished)
	owner := f.participant(t)

	r, err := f.svc.CreateReservation(ctx, owner.UserID, event.ID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmReservation(ctx, r.ID, f.admin.UserID, nil)
	require.NoError(t, err)

	canceled, err := f.svc.CancelReservation(ctx, r.ID, f.admin, nil)
	require.NoError(t, err)
	require.NotNil(t, canceled.DecidedByID)
	assert.Equal(t, f.admin.UserID, *canceled.DecidedByID)
	assert.Equal(t, 0, f.countConfirmed(t, event.ID))
}

func TestCancelReservation_RefusedCanBeCanceled(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	event := f.seedEvent(t, 5, models.EventPublished)
	owner := f.participant(t)

	r, err := f.svc.CreateReservation(ctx, owner.UserID, event.ID)
	require.NoError(t, err)
	_, err = f.svc.RefuseReservation(ctx, r.ID, f.admin.UserID, nil)
	require.NoError(t, err)

	canceled, err := f.svc.CancelReservation(ctx, r.ID, owner, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCanceled, canceled.Status)
}

func TestGetTicketData_Errors(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	event := f.seedEvent(t, 5, models.EventPublished)
	owner, stranger := f.participant(t), f.participant(t)

	_, err := f.svc.GetTicketData(ctx, uuid.NewString(), owner)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	r, err := f.svc.CreateReservation(ctx, owner.UserID, event.ID)
	require.NoError(t, err)

	_, err = f.svc.GetTicketData(ctx, r.ID, owner)
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest, "pending reservations have no ticket")

	_, err = f.svc.ConfirmReservation(ctx, r.ID, f.admin.UserID, nil)
	require.NoError(t, err)

	_, err = f.svc.GetTicketData(ctx, r.ID, stranger)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestListReservations(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, nil, nil)
	e1 := f.seedEvent(t, 5, models.EventPublished)
	e2 := f.seedEvent(t, 5, models.EventPublished)
	owner := f.participant(t)

	r1, err := f.svc.CreateReservation(ctx, owner.UserID, e1.ID)
	require.NoError(t, err)
	r2, err := f.svc.CreateReservation(ctx, owner.UserID, e2.ID)
	require.NoError(t, err)
	other, err := f.svc.CreateReservation(ctx, f.participant(t).UserID, e1.ID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmReservation(ctx, other.ID, f.admin.UserID, nil)
	require.NoError(t, err)

	mine, err := f.svc.ListMyReservations(ctx, owner.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, r2.ID, mine[0].ID, "newest first")
	assert.Equal(t, r1.ID, mine[1].ID)
	require.NotNil(t, mine[0].Event)
	assert.NotNil(t, mine[0].Event.Location)

	all, err := f.svc.ListAllReservations(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.NotNil(t, all[0].User)

	confirmed, err := f.svc.ListAllReservations(ctx, "confirmed")
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, other.ID, confirmed[0].ID)

	_, err = f.svc.ListAllReservations(ctx, "EXPIRED")
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}

func TestConcurrentConfirm_CapacityInvariant(t *testing.T) {
	for name, withLock := range map[string]bool{"redis lock": true, "transaction only": false} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var locker reservation.EventLocker
			if withLock {
				locker = setupTestLocker(t)
			}
			f := setupService(t, locker, nil)

			const capacity, attempts = 3, 10
			event := f.seedEvent(t, attempts, models.EventPublished)

			ids := make([]string, 0, attempts)
			for i := 0; i < attempts; i++ {
				r, err := f.svc.CreateReservation(ctx, f.participant(t).UserID, event.ID)
				require.NoError(t, err)
				ids = append(ids, r.ID)
			}
			f.setCapacity(t, event.ID, capacity)

			var wg sync.WaitGroup
			var mu sync.Mutex
			var succeeded, conflicts int
			for _, id := range ids {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					_, err := f.svc.ConfirmReservation(ctx, id, f.admin.UserID, nil)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						succeeded++
					case errors.Is(err, apperr.ErrConflict):
						conflicts++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}(id)
			}
			wg.Wait()

			assert.Equal(t, capacity, succeeded)
			assert.Equal(t, attempts-capacity, conflicts)
			assert.Equal(t, capacity, f.countConfirmed(t, event.ID))
		})
	}
}

func TestConcurrentCreate_SingleReservationPerUser(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, setupTestLocker(t), nil)
	event := f.seedEvent(t, 10, models.EventPublished)
	u := f.participant(t)

	const attempts = 5
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateReservation(ctx, u.UserID, event.ID)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrConflict)
	}
	assert.Equal(t, 1, ok)

	mine, err := f.svc.ListMyReservations(ctx, u.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestCommittedChangesAreAnnounced(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockPublisher)
	publisher.On("PublishReservationEvent", mock.Anything, mock.AnythingOfType("models.ReservationEvent")).
		Return(errors.New("broker down"))

	f := setupService(t, nil, publisher)
	event := f.seedEvent(t, 5, models.EventPublished)
	owner := f.participant(t)

	r, err := f.svc.CreateReservation(ctx, owner.UserID, event.ID)
	require.NoError(t, err, "publish failures must not fail the operation")
	_, err = f.svc.ConfirmReservation(ctx, r.ID, f.admin.UserID, nil)
	require.NoError(t, err)
	_, err = f.svc.CancelReservation(ctx, r.ID, owner, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		models.ReservationCreatedType,
		models.ReservationConfirmedType,
		models.ReservationCanceledType,
	}, f.notifier.types())
	publisher.AssertNumberOfCalls(t, "PublishReservationEvent", 3)

	// Rejected operations announce nothing.
	_, err = f.svc.CancelReservation(ctx, r.ID, owner, nil)
	require.Error(t, err)
	assert.Len(t, f.notifier.types(), 3)
}

func countType(types []string, want string) int {
	n := 0
	for _, tp := range types {
		if tp == want {
			n++
		}
	}
	return n
}
