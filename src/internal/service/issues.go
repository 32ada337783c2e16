package service

import (
	"context"
	"strings"

	"github.com/ce-fello/bug-tracker-service/src/internal/api/apiErrors"
	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/ce-fello/bug-tracker-service/src/internal/store"
	"github.com/google/uuid"

	"go.uber.org/zap"
)

// NewIssue is the payload of an issue report.
type NewIssue struct {
	ProjectID   string            `json:"projectId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Steps       string            `json:"steps"`
	PageURL     string            `json:"pageUrl"`
	Environment string            `json:"environment"`
	Severity    model.Severity    `json:"severity"`
	Priority    model.Priority    `json:"priority"`
	Tags        []string          `json:"tags"`
	Attachments model.Attachments `json:"attachments"`
}

func (s *Service) CreateIssue(ctx context.Context, reporter model.User, in NewIssue) (model.Issue, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Issue{}, apiErrors.NewValidation("title is required")
	}
	if in.Severity == "" {
		in.Severity = model.SeverityLow
	}
	if !in.Severity.Valid() {
		return model.Issue{}, apiErrors.NewValidation("invalid severity")
	}
	if in.Priority == "" {
		in.Priority = model.PriorityP3
	}
	if !in.Priority.Valid() {
		return model.Issue{}, apiErrors.NewValidation("invalid priority")
	}

	issue := model.Issue{
		ID:          uuid.NewString(),
		Title:       title,
		Description: in.Description,
		Steps:       in.Steps,
		PageURL:     strings.TrimSpace(in.PageURL),
		Environment: in.Environment,
		Severity:    in.Severity,
		Priority:    in.Priority,
		Status:      model.StatusNew,
		ReporterID:  reporter.ID,
		Tags:        model.NormalizeTags(in.Tags),
		Attachments: in.Attachments.Normalize(),
	}
	if p := strings.TrimSpace(in.ProjectID); p != "" {
		if !model.ValidID(p) {
			return model.Issue{}, apiErrors.NewValidation("invalid projectId")
		}
		issue.ProjectID = &p
	}

	created, err := s.repo.CreateIssue(ctx, issue)
	if err != nil {
		return model.Issue{}, repoError(err, "issue not found", "issue already exists")
	}
	s.log.Info("issue reported", zap.String("issue", created.ID), zap.String("reporter", reporter.ID))
	return created, nil
}

func (s *Service) ListIssues(ctx context.Context, f store.IssueFilter) (model.Page[model.Issue], error) {
	items, total, err := s.repo.ListIssues(ctx, f)
	if err != nil {
		return model.Page[model.Issue]{}, err
	}
	return model.NewPage(items, total, f.Pagination), nil
}

// GetIssue returns the issue together with its full history.
func (s *Service) GetIssue(ctx context.Context, issueID string) (model.Issue, error) {
	issue, err := s.repo.GetIssue(ctx, issueID)
	if err != nil {
		return model.Issue{}, repoError(err, "issue not found", "")
	}
	history, err := s.repo.IssueHistory(ctx, issueID)
	if err != nil {
		return model.Issue{}, repoError(err, "issue not found", "")
	}
	issue.History = history
	return issue, nil
}

// DeleteIssue removes an issue reported by actor, or any issue when actor is
// an admin. Other callers get the same answer as for a missing issue.
func (s *Service) DeleteIssue(ctx context.Context, actor model.User, issueID string) error {
	issue, err := s.repo.GetIssue(ctx, issueID)
	if err != nil {
		return repoError(err, "issue not found", "")
	}
	if issue.ReporterID != actor.ID && actor.Role != model.RoleAdmin {
		s.log.Debug("delete refused", zap.String("issue", issueID), zap.String("actor", actor.ID))
		return apiErrors.NewNotFound("issue not found")
	}
	if err := s.repo.DeleteIssue(ctx, issueID); err != nil {
		return repoError(err, "issue not found", "")
	}
	s.log.Info("issue deleted", zap.String("issue", issueID), zap.String("actor", actor.ID))
	return nil
}
