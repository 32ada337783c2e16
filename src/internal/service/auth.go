package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ce-fello/bug-tracker-service/src/internal/api/apiErrors"
	"github.com/ce-fello/bug-tracker-service/src/internal/auth"
	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/google/uuid"

	"go.uber.org/zap"
)

type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user and signs them in. Unknown roles fall back to TESTER.
func (s *Service) Register(ctx context.Context, name, email, password string, role model.Role) (AuthResult, error) {
	if !role.Valid() {
		role = model.RoleTester
	}
	u, err := s.createUser(ctx, name, email, password, role)
	if err != nil {
		return AuthResult{}, err
	}
	return s.signIn(u)
}

// CreateAdmin bootstraps an administrator account.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (model.User, error) {
	return s.createUser(ctx, name, email, password, model.RoleAdmin)
}

func (s *Service) createUser(ctx context.Context, name, email, password string, role model.Role) (model.User, error) {
	name, email = strings.TrimSpace(name), normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return model.User{}, apiErrors.NewValidation("name, email and password are required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.repo.CreateUser(ctx, model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		return model.User{}, repoError(err, "user not found", "email already registered")
	}
	s.log.Info("user registered", zap.String("user", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

func hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", apiErrors.NewValidation("password must be at most 72 bytes")
	}
	return hash, err
}

func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return AuthResult{}, apiErrors.NewUnauthorized("invalid credentials")
		}
		return AuthResult{}, err
	}
	if !u.IsActive {
		return AuthResult{}, apiErrors.NewForbidden("account is deactivated")
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return AuthResult{}, apiErrors.NewUnauthorized("invalid credentials")
	}
	return s.signIn(u)
}

func (s *Service) signIn(u model.User) (AuthResult, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: u}, nil
}

// Authenticate resolves a bearer token to a current, active user.
func (s *Service) Authenticate(ctx context.Context, token string) (model.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return model.User{}, apiErrors.NewUnauthorized("invalid token")
	}
	u, err := s.repo.GetUser(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, apiErrors.NewUnauthorized("user not found")
		}
		return model.User{}, err
	}
	if !u.IsActive {
		return model.User{}, apiErrors.NewForbidden("account deactivated, please contact the administrator")
	}
	return u, nil
}

func (s *Service) Me(ctx context.Context, userID string) (model.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, repoError(err, "user not found", "")
	}
	return u, nil
}

// UpdateProfile changes the caller's name and email. Blank values are
// ignored. The response carries a token with the refreshed claims.
func (s *Service) UpdateProfile(ctx context.Context, userID string, name, email *string) (AuthResult, error) {
	var n, e *string
	if name != nil {
		if v := strings.TrimSpace(*name); v != "" {
			n = &v
		}
	}
	if email != nil {
		if v := normalizeEmail(*email); v != "" {
			e = &v
		}
	}
	u, err := s.repo.UpdateUserProfile(ctx, userID, n, e)
	if err != nil {
		return AuthResult{}, repoError(err, "user not found", "email already in use")
	}
	return s.signIn(u)
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || next == "" {
		return apiErrors.NewValidation("currentPassword and newPassword are required")
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return repoError(err, "user not found", "")
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return apiErrors.NewValidation("current password is incorrect")
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	if err := s.repo.SetUserPassword(ctx, userID, hash); err != nil {
		return repoError(err, "user not found", "")
	}
	s.log.Info("password changed", zap.String("user", userID))
	return nil
}
