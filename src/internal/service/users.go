package service

import (
	"context"

	"github.com/ce-fello/bug-tracker-service/src/internal/api/apiErrors"
	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/ce-fello/bug-tracker-service/src/internal/store"

	"go.uber.org/zap"
)

func (s *Service) ListUsers(ctx context.Context, f store.UserFilter) (model.Page[model.User], error) {
	items, total, err := s.repo.ListUsers(ctx, f)
	if err != nil {
		return model.Page[model.User]{}, err
	}
	return model.NewPage(items, total, f.Pagination), nil
}

// ensureAnotherAdmin fails when u is the only active admin left.
func (s *Service) ensureAnotherAdmin(ctx context.Context, u model.User, message string) error {
	n, err := s.repo.CountActiveAdmins(ctx, u.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apiErrors.NewValidation(message)
	}
	return nil
}

func (s *Service) SetUserRole(ctx context.Context, userID string, role model.Role) (model.User, error) {
	if !role.Valid() {
		return model.User{}, apiErrors.NewValidation("invalid role")
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, repoError(err, "user not found", "")
	}
	if u.Role == model.RoleAdmin && role != model.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx, u, "cannot remove the last active admin"); err != nil {
			return model.User{}, err
		}
	}
	updated, err := s.repo.SetUserRole(ctx, userID, role)
	if err != nil {
		return model.User{}, repoError(err, "user not found", "")
	}
	s.log.Info("role changed", zap.String("user", userID), zap.String("role", string(role)))
	return updated, nil
}

func (s *Service) SetUserIsActive(ctx context.Context, userID string, isActive bool) (model.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, repoError(err, "user not found", "")
	}
	if u.Role == model.RoleAdmin && !isActive {
		if err := s.ensureAnotherAdmin(ctx, u, "cannot deactivate the last active admin"); err != nil {
			return model.User{}, err
		}
	}
	updated, err := s.repo.SetUserIsActive(ctx, userID, isActive)
	if err != nil {
		return model.User{}, repoError(err, "user not found", "")
	}
	s.log.Info("active state changed", zap.String("user", userID), zap.Bool("is_active", isActive))
	return updated, nil
}

func (s *Service) UserByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return model.User{}, repoError(err, "user not found", "")
	}
	return u, nil
}
