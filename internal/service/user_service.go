package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/pitcharena/pitcharena-api/internal/dto"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/repository"
)

// ErrUnknownRole indicates a role filter outside the known set.
var ErrUnknownRole = errors.New("unknown user role")

// UserService exposes account listings for admin workflows, primarily the
// judge roster fed into workload distribution.
type UserService interface {
	ListByRole(ctx context.Context, role string) ([]dto.UserResponse, error)
}

type userService struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(users repository.UserRepository, logger zerolog.Logger) UserService {
	return &userService{
		users:  users,
		logger: logger.With().Str("component", "user_service").Logger(),
	}
}

// ListByRole lists accounts holding one role. An empty role defaults to the
// judge roster.
func (s *userService) ListByRole(ctx context.Context, role string) ([]dto.UserResponse, error) {
	if role == "" {
		role = models.RoleJudge
	}
	switch role {
	case models.RoleFounder, models.RoleJudge, models.RoleAdmin:
	default:
		return nil, ErrUnknownRole
	}

	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponseSlice(users), nil
}
