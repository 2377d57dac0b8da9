package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/utils"
)

type EventDBLayer interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	UpdateEvent(ctx context.Context, e *models.Event) error
	PublishEvent(ctx context.Context, id string, at time.Time) error
	CancelEvent(ctx context.Context, id string, at time.Time) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListPublished(ctx context.Context) ([]models.Event, error)
	ListAll(ctx context.Context) ([]models.Event, error)
	ConfirmedCounts(ctx context.Context, eventIDs []string) (map[string]int, error)
	LocationExists(ctx context.Context, id string) (bool, error)
}

// Publisher announces event lifecycle changes to other services.
type Publisher interface {
	PublishEventLifecycle(ctx context.Context, evt models.EventLifecycle) error
}

type EventService struct {
	DB        EventDBLayer
	Publisher Publisher
	Logger    *logger.Logger
	now       func() time.Time
}

func NewEventService(db EventDBLayer, publisher Publisher, log *logger.Logger) *EventService {
	return &EventService{
		DB:        db,
		Publisher: publisher,
		Logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateEvent stores a new DRAFT event. Capacity is not checked against anything
// at creation; it only governs reservations.
func (s *EventService) CreateEvent(ctx context.Context, req models.CreateEventRequest, createdByID string) (*models.Event, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Invalid("title is required")
	}
	if req.CapacityMax <= 0 {
		return nil, apperr.Invalid("capacity_max must be greater than 0")
	}

	startAt, err := parseDate("start_at", req.StartAt)
	if err != nil {
		return nil, err
	}
	var endAt *time.Time
	if req.EndAt != nil && *req.EndAt != "" {
		t, err := parseDate("end_at", *req.EndAt)
		if err != nil {
			return nil, err
		}
		endAt = &t
	}
	if err := checkDateOrder(startAt, endAt); err != nil {
		return nil, err
	}
	if err := s.checkLocation(ctx, req.LocationID); err != nil {
		return nil, err
	}

	now := s.now()
	e := &models.Event{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		StartAt:     startAt,
		EndAt:       endAt,
		Status:      models.EventDraft,
		CapacityMax: req.CapacityMax,
		LocationID:  req.LocationID,
		CreatedByID: createdByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.DB.CreateEvent(ctx, e); err != nil {
		return nil, err
	}

	s.Logger.LogEvent("CREATED", e.ID, fmt.Sprintf("%q capacity=%d", e.Title, e.CapacityMax))
	return s.DB.GetEvent(ctx, e.ID)
}

// UpdateEvent applies the supplied fields regardless of the event's status.
// Lowering capacity below the confirmed count is allowed.
func (s *EventService) UpdateEvent(ctx context.Context, id string, req models.UpdateEventRequest) (*models.Event, error) {
	e, err := s.DB.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperr.Invalid("title must not be empty")
		}
		e.Title = title
	}
	if req.Description != nil {
		e.Description = strings.TrimSpace(*req.Description)
	}
	if req.CapacityMax != nil {
		if *req.CapacityMax <= 0 {
			return nil, apperr.Invalid("capacity_max must be greater than 0")
		}
		e.CapacityMax = *req.CapacityMax
	}
	if req.LocationID != nil && *req.LocationID != e.LocationID {
		if err := s.checkLocation(ctx, *req.LocationID); err != nil {
			return nil, err
		}
		e.LocationID = *req.LocationID
		e.Location = nil
	}

	if req.StartAt != nil || req.EndAt != nil {
		if req.StartAt != nil {
			t, err := parseDate("start_at", *req.StartAt)
			if err != nil {
				return nil, err
			}
			e.StartAt = t
		}
		if req.EndAt != nil {
			// an empty end_at clears it
			if *req.EndAt == "" {
				e.EndAt = nil
			} else {
				t, err := parseDate("end_at", *req.EndAt)
				if err != nil {
					return nil, err
				}
				e.EndAt = &t
			}
		}
		if err := checkDateOrder(e.StartAt, e.EndAt); err != nil {
			return nil, err
		}
	}

	e.UpdatedAt = s.now()
	if err := s.DB.UpdateEvent(ctx, e); err != nil {
		return nil, err
	}

	s.Logger.LogEvent("UPDATED", e.ID, "")
	return s.DB.GetEvent(ctx, e.ID)
}

// PublishEvent moves the event to PUBLISHED from any status and re-stamps publishedAt.
func (s *EventService) PublishEvent(ctx context.Context, id string) (*models.Event, error) {
	if _, err := s.DB.GetEvent(ctx, id); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.DB.PublishEvent(ctx, id, now); err != nil {
		return nil, err
	}
	e, err := s.DB.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	s.Logger.LogEvent("PUBLISHED", e.ID, "")
	s.announce(ctx, models.EventPublishedType, e, now)
	return e, nil
}

// CancelEvent moves the event to CANCELED. Existing reservations keep their status.
func (s *EventService) CancelEvent(ctx context.Context, id string) (*models.Event, error) {
	if _, err := s.DB.GetEvent(ctx, id); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.DB.CancelEvent(ctx, id, now); err != nil {
		return nil, err
	}
	e, err := s.DB.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	s.Logger.LogEvent("CANCELED", e.ID, "")
	s.announce(ctx, models.EventCanceledType, e, now)
	return e, nil
}

// ListPublished returns published events by start date with their remaining capacity.
func (s *EventService) ListPublished(ctx context.Context) ([]models.PublishedEvent, error) {
	evs, err := s.DB.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.DB.ConfirmedCounts(ctx, eventIDs(evs))
	if err != nil {
		return nil, err
	}

	out := make([]models.PublishedEvent, 0, len(evs))
	for _, e := range evs {
		out = append(out, models.NewPublishedEvent(e, counts[e.ID]))
	}
	return out, nil
}

// GetPublishedDetail hides drafts and canceled events behind NotFound.
func (s *EventService) GetPublishedDetail(ctx context.Context, id string) (*models.PublishedEvent, error) {
	e, err := s.DB.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.IsPublished() {
		return nil, apperr.NotFound("event %s not found", id)
	}

	counts, err := s.DB.ConfirmedCounts(ctx, []string{e.ID})
	if err != nil {
		return nil, err
	}
	pe := models.NewPublishedEvent(*e, counts[e.ID])
	return &pe, nil
}

// ListAll returns every event, newest first, with confirmed and remaining counts.
func (s *EventService) ListAll(ctx context.Context) ([]models.AdminEvent, error) {
	evs, err := s.DB.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.DB.ConfirmedCounts(ctx, eventIDs(evs))
	if err != nil {
		return nil, err
	}

	out := make([]models.AdminEvent, 0, len(evs))
	for _, e := range evs {
		out = append(out, models.NewAdminEvent(e, counts[e.ID]))
	}
	return out, nil
}

func (s *EventService) checkLocation(ctx context.Context, locationID string) error {
	if locationID == "" {
		return apperr.Invalid("location_id is required")
	}
	ok, err := s.DB.LocationExists(ctx, locationID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Invalid("location %s does not exist", locationID)
	}
	return nil
}

func (s *EventService) announce(ctx context.Context, eventType string, e *models.Event, at time.Time) {
	if s.Publisher == nil {
		return
	}
	msg := models.EventLifecycle{Type: eventType, EventID: e.ID, Status: e.Status, OccurredAt: at}
	if err := s.Publisher.PublishEventLifecycle(ctx, msg); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish %s for event %s: %v", eventType, e.ID, err))
	}
}

func parseDate(field, value string) (time.Time, error) {
	t, err := utils.ParseTimestamp(value)
	if err != nil {
		return time.Time{}, apperr.Invalid("%s must be an RFC 3339 timestamp", field)
	}
	return t, nil
}

func checkDateOrder(startAt time.Time, endAt *time.Time) error {
	if endAt != nil && endAt.Before(startAt) {
		return apperr.Invalid("end_at must not be before start_at")
	}
	return nil
}

func eventIDs(evs []models.Event) []string {
	ids := make([]string, len(evs))
	for i, e := range evs {
		ids[i] = e.ID
	}
	return ids
}
