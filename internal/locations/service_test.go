package locations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/models"
)

type MockLocationDB struct {
	mock.Mock
}

func (m *MockLocationDB) CreateLocation(ctx context.Context, loc *models.Location) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

func (m *MockLocationDB) ListLocations(ctx context.Context) ([]models.Location, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Location), args.Error(1)
}

func (m *MockLocationDB) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func TestCreateLocation(t *testing.T) {
	mockDB := new(MockLocationDB)
	mockDB.On("CreateLocation", mock.Anything, mock.MatchedBy(func(loc *models.Location) bool {
		return loc.Name == "Hall A" && loc.City == "Rabat" && loc.ID != ""
	})).Return(nil)

	svc := NewLocationService(mockDB, nil)
	loc, err := svc.CreateLocation(context.Background(), models.CreateLocationRequest{Name: "  Hall A ", City: "Rabat"})

	require.NoError(t, err)
	assert.Equal(t, "Hall A", loc.Name)
	assert.False(t, loc.CreatedAt.IsZero())
	mockDB.AssertExpectations(t)
}

func TestCreateLocation_NameRequired(t *testing.T) {
	mockDB := new(MockLocationDB)
	svc := NewLocationService(mockDB, nil)

	_, err := svc.CreateLocation(context.Background(), models.CreateLocationRequest{Name: "   "})

	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))
	mockDB.AssertNotCalled(t, "CreateLocation", mock.Anything, mock.Anything)
}

func TestGetLocation_PropagatesNotFound(t *testing.T) {
	mockDB := new(MockLocationDB)
	mockDB.On("GetLocation", mock.Anything, "missing").Return(nil, apperr.NotFound("location missing not found"))

	svc := NewLocationService(mockDB, nil)
	_, err := svc.GetLocation(context.Background(), "missing")

	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
