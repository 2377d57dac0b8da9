package locations

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type LocationDBLayer interface {
	CreateLocation(ctx context.Context, loc *models.Location) error
	ListLocations(ctx context.Context) ([]models.Location, error)
	GetLocation(ctx context.Context, id string) (*models.Location, error)
}

type LocationService struct {
	DB     LocationDBLayer
	Logger *logger.Logger
}

func NewLocationService(db LocationDBLayer, log *logger.Logger) *LocationService {
	return &LocationService{DB: db, Logger: log}
}

func (s *LocationService) CreateLocation(ctx context.Context, req models.CreateLocationRequest) (*models.Location, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}

	now := time.Now().UTC()
	loc := &models.Location{
		ID:          uuid.NewString(),
		Name:        name,
		AddressLine: strings.TrimSpace(req.AddressLine),
		City:        strings.TrimSpace(req.City),
		Country:     strings.TrimSpace(req.Country),
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.DB.CreateLocation(ctx, loc); err != nil {
		return nil, err
	}

	s.Logger.LogDatabase("INSERT", "locations", loc.ID)
	return loc, nil
}

// ListLocations returns every location, newest first.
func (s *LocationService) ListLocations(ctx context.Context) ([]models.Location, error) {
	return s.DB.ListLocations(ctx)
}

func (s *LocationService) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	return s.DB.GetLocation(ctx, id)
}
