package stats

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-reservations/internal/models"
)

// Service computes read-only projections over events and reservations.
type Service struct {
	db  *DB
	now func() time.Time
}

func NewService(db *bun.DB) *Service {
	return &Service{
		db:  NewDB(db),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// GetOverview returns platform-wide counts. Upcoming events are published ones that have not started.
func (s *Service) GetOverview(ctx context.Context) (*models.Overview, error) {
	return s.db.CountOverview(ctx, s.now())
}

// GetOccupancyRates reports the fill rate of every published event, soonest first.
func (s *Service) GetOccupancyRates(ctx context.Context) ([]models.OccupancyRate, error) {
	rows, err := s.db.PublishedOccupancy(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.OccupancyRate, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.OccupancyRate{
			EventID:     row.EventID,
			Title:       row.Title,
			CapacityMax: row.CapacityMax,
			Confirmed:   row.Confirmed,
			FillRate:    models.FillRate(row.Confirmed, row.CapacityMax),
			StartAt:     row.StartAt.UTC(),
		})
	}
	return out, nil
}
