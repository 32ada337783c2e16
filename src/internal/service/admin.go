package service

import (
	"context"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/api/apiErrors"
	"github.com/ce-fello/bug-tracker-service/src/internal/model"

	"go.uber.org/zap"
)

const statsWindow = 7 * 24 * time.Hour

// AdminPatchIssue applies the allow-listed fields of p. Admin edits do not
// write history.
func (s *Service) AdminPatchIssue(ctx context.Context, issueID string, p model.AdminPatch) (model.Issue, error) {
	issue, err := s.repo.PatchIssue(ctx, issueID, p)
	if err != nil {
		return model.Issue{}, repoError(err, "issue not found", "")
	}
	s.log.Info("issue patched by admin", zap.String("issue", issueID))
	return issue, nil
}

// BulkPatchIssues applies p to every listed issue. Unknown ids are counted as
// unmatched rather than reported as errors.
func (s *Service) BulkPatchIssues(ctx context.Context, ids []string, p model.AdminPatch) (model.BulkResult, error) {
	if len(ids) == 0 {
		return model.BulkResult{}, apiErrors.NewValidation("ids[] required")
	}
	res, err := s.repo.BulkPatchIssues(ctx, ids, p)
	if err != nil {
		return model.BulkResult{}, repoError(err, "issue not found", "")
	}
	s.log.Info("bulk patch applied", zap.Int("requested", len(ids)),
		zap.Int64("matched", res.Matched), zap.Int64("modified", res.Modified))
	return res, nil
}

func (s *Service) AdminDeleteIssue(ctx context.Context, issueID string) error {
	if err := s.repo.DeleteIssue(ctx, issueID); err != nil {
		return repoError(err, "issue not found", "")
	}
	s.log.Info("issue deleted by admin", zap.String("issue", issueID))
	return nil
}

func (s *Service) GetStats(ctx context.Context) (model.DashboardStats, error) {
	return s.repo.GetDashboardStats(ctx, s.now().Add(-statsWindow))
}
