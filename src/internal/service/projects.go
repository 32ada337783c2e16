package service

import (
	"context"
	"strings"

	"github.com/ce-fello/bug-tracker-service/src/internal/api/apiErrors"
	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/google/uuid"

	"go.uber.org/zap"
)

const projectKeyTaken = "project key already exists"

type NewProject struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

func (s *Service) CreateProject(ctx context.Context, in NewProject) (model.Project, error) {
	p := model.Project{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Key:         model.NormalizeProjectKey(in.Key),
		Description: strings.TrimSpace(in.Description),
		URL:         model.NormalizeProjectURL(in.URL),
	}
	if p.Name == "" || p.Key == "" {
		return model.Project{}, apiErrors.NewValidation("name and key are required")
	}
	created, err := s.repo.CreateProject(ctx, p)
	if err != nil {
		return model.Project{}, repoError(err, "project not found", projectKeyTaken)
	}
	s.log.Info("project created", zap.String("project", created.ID), zap.String("key", created.Key))
	return created, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]model.Project, error) {
	return s.repo.ListProjects(ctx, "")
}

// MyProjects lists every project for admins and the member projects otherwise.
func (s *Service) MyProjects(ctx context.Context, actor model.User) ([]model.Project, error) {
	if actor.Role == model.RoleAdmin {
		return s.repo.ListProjects(ctx, "")
	}
	return s.repo.ListProjects(ctx, actor.ID)
}

func (s *Service) UpdateProject(ctx context.Context, projectID string, patch model.ProjectPatch) (model.Project, error) {
	if patch.Name != nil {
		v := strings.TrimSpace(*patch.Name)
		if v == "" {
			return model.Project{}, apiErrors.NewValidation("name cannot be empty")
		}
		patch.Name = &v
	}
	if patch.Key != nil {
		v := model.NormalizeProjectKey(*patch.Key)
		if v == "" {
			return model.Project{}, apiErrors.NewValidation("key cannot be empty")
		}
		patch.Key = &v
	}
	if patch.URL != nil {
		v := model.NormalizeProjectURL(*patch.URL)
		patch.URL = &v
	}
	p, err := s.repo.UpdateProject(ctx, projectID, patch)
	if err != nil {
		return model.Project{}, repoError(err, "project not found", projectKeyTaken)
	}
	return p, nil
}

func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		return repoError(err, "project not found", "")
	}
	s.log.Info("project deleted", zap.String("project", projectID))
	return nil
}

func (s *Service) AddProjectMember(ctx context.Context, projectID, email string) (model.Project, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.Project{}, apiErrors.NewValidation("email is required")
	}
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return model.Project{}, repoError(err, "user not found", "")
	}
	p, err := s.repo.AddProjectMember(ctx, projectID, u.ID)
	if err != nil {
		return model.Project{}, repoError(err, "project not found", "")
	}
	return p, nil
}

func (s *Service) RemoveProjectMember(ctx context.Context, projectID, userID string) (model.Project, error) {
	p, err := s.repo.RemoveProjectMember(ctx, projectID, userID)
	if err != nil {
		return model.Project{}, repoError(err, "project not found", "")
	}
	return p, nil
}
