package service

import (
	"context"
	"errors"

	"github.com/ce-fello/bug-tracker-service/src/internal/api/apiErrors"
	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/ce-fello/bug-tracker-service/src/internal/store"

	"go.uber.org/zap"
)

const notAssignedMessage = "issue not found or not assigned to you"

// planDeveloperPatch decides what an assignee's patch does to the locked
// issue: a status change only when the target differs from the stored status,
// an unassign only when requested. Each change yields one history entry.
func (s *Service) planDeveloperPatch(actorID string, p model.DevPatch) store.IssuePlanner {
	return func(current model.Issue) model.IssueMutation {
		at := s.now().UTC()
		var m model.IssueMutation
		if p.Status != "" && p.Status != current.Status {
			to := p.Status
			m.Status = &to
			m.History = append(m.History, model.NewStatusChange(actorID, current.Status, to, at))
		}
		if p.ClearAssignee {
			m.ClearAssignee = true
			m.History = append(m.History, model.NewUnassign(actorID, at))
		}
		return m
	}
}

// ApplyDeveloperPatch lets the assignee move an issue between statuses and
// unassign themselves. A patch that changes nothing succeeds without writes.
func (s *Service) ApplyDeveloperPatch(ctx context.Context, issueID, actorID string, p model.DevPatch) (model.Issue, error) {
	issue, err := s.repo.MutateAssignedIssue(ctx, issueID, actorID, s.planDeveloperPatch(actorID, p))
	if err != nil {
		return model.Issue{}, repoError(err, notAssignedMessage, "")
	}
	s.log.Debug("developer patch applied", zap.String("issue", issueID), zap.String("actor", actorID),
		zap.String("status", string(issue.Status)))
	return issue, nil
}

func (s *Service) ListAssigned(ctx context.Context, actorID string, f store.IssueFilter) (model.Page[model.Issue], error) {
	f.AssigneeID = actorID
	f.Unassigned = false
	f.Sort = "-createdAt"
	return s.ListIssues(ctx, f)
}

func (s *Service) GetAssigned(ctx context.Context, actorID, issueID string) (model.Issue, error) {
	issue, err := s.GetIssue(ctx, issueID)
	if err != nil {
		var e apiErrors.APIError
		if errors.As(err, &e) && e.Code == apiErrors.NotFound {
			return model.Issue{}, apiErrors.NewNotFound(notAssignedMessage)
		}
		return model.Issue{}, err
	}
	if !issue.IsAssignedTo(actorID) {
		return model.Issue{}, apiErrors.NewNotFound(notAssignedMessage)
	}
	return issue, nil
}

// QueryHistory returns one page of the history entries written by actorID.
func (s *Service) QueryHistory(ctx context.Context, actorID string, q model.HistoryQuery) (model.Page[model.HistoryRow], error) {
	rows, total, err := s.repo.QueryHistory(ctx, actorID, q)
	if err != nil {
		return model.Page[model.HistoryRow]{}, err
	}
	return model.NewPage(rows, total, q.Pagination), nil
}
