package service

import (
	"context"

	"lendhub/internal/domain"
	"lendhub/internal/models"

	"github.com/rs/zerolog"
)

// UserService is the minimal user directory the engine needs: creation for
// seeding and existence checks for everything else.
type UserService struct {
	users  domain.UserDirectory
	logger *zerolog.Logger
}

func NewUserService(users domain.UserDirectory, logger *zerolog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetUser(ctx, id)
}

func (s *UserService) GetAll(ctx context.Context) ([]*models.User, error) {
	return s.users.GetAllUsers(ctx)
}
