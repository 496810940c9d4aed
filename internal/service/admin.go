package service

import (
	"context"
	"errors"

	"github.com/mbelozerov/storefront/internal/events"
	"github.com/mbelozerov/storefront/internal/models"
	"github.com/mbelozerov/storefront/internal/repo"
)

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Repo.List(ctx)
}

func (s *AuthService) ChangeRole(ctx context.Context, targetID uint, role string) (*models.User, error) {
	parsed, err := models.ParseRole(role)
	if err != nil {
		return nil, ErrUnknownRole
	}

	user, err := s.Repo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.Role = parsed
	if err := s.Repo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.emit(ctx, events.TypeRoleChanged, user)
	return user, nil
}
