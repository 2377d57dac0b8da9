package reservation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"ms-reservations/internal/database"
	"ms-reservations/internal/models"
	"ms-reservations/internal/reservation"
	resdb "ms-reservations/internal/reservation/db"
	reslock "ms-reservations/internal/reservation/redis"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishReservationEvent(ctx context.Context, evt models.ReservationEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.ReservationEvent
}

func (n *recordingNotifier) Emit(evt models.ReservationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	bun      *bun.DB
	store    *resdb.DB
	svc      *reservation.Service
	notifier *recordingNotifier
	admin    models.Principal
}

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()
	bunDB, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.CreateSchema(context.Background(), bunDB))
	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}

// setupTestLocker returns a redis event lock backed by miniredis.
func setupTestLocker(t *testing.T) reservation.EventLocker {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return reslock.NewRedis(client, 10*time.Second, 10*time.Second, nil)
}

func setupService(t *testing.T, locker reservation.EventLocker, publisher reservation.Publisher) *fixture {
	t.Helper()
	bunDB := setupTestDB(t)
	store := &resdb.DB{Bun: bunDB}
	notifier := &recordingNotifier{}
	f := &fixture{
		bun:      bunDB,
		store:    store,
		svc:      reservation.NewReservationService(store, locker, publisher, notifier, nil),
		notifier: notifier,
	}
	f.admin = models.Principal{UserID: f.seedUser(t, models.RoleAdmin), Role: models.RoleAdmin}
	return f
}

func (f *fixture) seedUser(t *testing.T, role models.Role) string {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.NewString()
	u := &models.User{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: "x",
		FullName:     "User " + id[:8],
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := f.bun.NewInsert().Model(u).Exec(context.Background())
	require.NoError(t, err)
	return id
}

func (f *fixture) participant(t *testing.T) models.Principal {
	return models.Principal{UserID: f.seedUser(t, models.RoleParticipant), Role: models.RoleParticipant}
}

func (f *fixture) seedEvent(t *testing.T, capacity int, status models.EventStatus) *models.Event {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	loc := &models.Location{ID: uuid.NewString(), Name: "Main Hall", City: "Casablanca", CreatedAt: now, UpdatedAt: now}
	_, err := f.bun.NewInsert().Model(loc).Exec(ctx)
	require.NoError(t, err)

	e := &models.Event{
		ID:          uuid.NewString(),
		Title:       "Conference",
		StartAt:     now.Add(48 * time.Hour),
		Status:      status,
		CapacityMax: capacity,
		LocationID:  loc.ID,
		CreatedByID: f.admin.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status == models.EventPublished {
		e.PublishedAt = &now
	}
	_, err = f.bun.NewInsert().Model(e).Exec(ctx)
	require.NoError(t, err)
	return e
}

func (f *fixture) setCapacity(t *testing.T, eventID string, capacity int) {
	t.Helper()
	_, err := f.bun.NewUpdate().Model((*models.Event)(nil)).
		Set("capacity_max = ?", capacity).
		Where("id = ?", eventID).
		Exec(context.Background())
	require.NoError(t, err)
}

func (f *fixture) countConfirmed(t *testing.T, eventID string) int {
	t.Helper()
	n, err := f.bun.NewSelect().Model((*models.Reservation)(nil)).
		Where("event_id = ?", eventID).
		Where("status = ?", models.ReservationConfirmed).
		Count(context.Background())
	require.NoError(t, err)
	return n
}
