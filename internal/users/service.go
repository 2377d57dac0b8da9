package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-reservations/internal/apperr"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type UserDBLayer interface {
	ListUsers(ctx context.Context, query string) ([]models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role, at time.Time) (*models.User, error)
}

type UserService struct {
	DB     UserDBLayer
	Logger *logger.Logger
}

func NewUserService(db UserDBLayer, log *logger.Logger) *UserService {
	return &UserService{DB: db, Logger: log}
}

// ListUsers returns users newest first, optionally filtered by a case-insensitive
// match on email or full name.
func (s *UserService) ListUsers(ctx context.Context, query string) ([]models.User, error) {
	return s.DB.ListUsers(ctx, strings.TrimSpace(query))
}

func (s *UserService) UpdateRole(ctx context.Context, id, role string) (*models.User, error) {
	r, ok := models.ParseRole(role)
	if !ok {
		return nil, apperr.Invalid("unknown role %q", role)
	}

	u, err := s.DB.UpdateRole(ctx, id, r, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.Logger.LogSecurity("ROLE_CHANGED", fmt.Sprintf("user %s is now %s", id, r))
	return u, nil
}
