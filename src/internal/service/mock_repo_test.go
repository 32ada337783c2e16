package service

import (
	"context"
	"time"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"
	"github.com/ce-fello/bug-tracker-service/src/internal/store"
	"github.com/stretchr/testify/mock"
)

var _ store.Repository = (*MockRepositories)(nil)

type MockRepositories struct {
	mock.Mock

	// mutation records what the last planner passed to MutateAssignedIssue decided.
	mutation *model.IssueMutation
}

func (m *MockRepositories) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepositories) GetUser(ctx context.Context, userID string) (model.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepositories) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepositories) ListUsers(ctx context.Context, f store.UserFilter) ([]model.User, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]model.User), args.Int(1), args.Error(2)
}

func (m *MockRepositories) UpdateUserProfile(ctx context.Context, userID string, name, email *string) (model.User, error) {
	args := m.Called(ctx, userID, name, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepositories) SetUserPassword(ctx context.Context, userID, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

func (m *MockRepositories) SetUserRole(ctx context.Context, userID string, role model.Role) (model.User, error) {
	args := m.Called(ctx, userID, role)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepositories) SetUserIsActive(ctx context.Context, userID string, isActive bool) (model.User, error) {
	args := m.Called(ctx, userID, isActive)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepositories) CountActiveAdmins(ctx context.Context, exceptUserID string) (int, error) {
	args := m.Called(ctx, exceptUserID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepositories) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(model.Project), args.Error(1)
}

func (m *MockRepositories) GetProject(ctx context.Context, projectID string) (model.Project, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(model.Project), args.Error(1)
}

func (m *MockRepositories) ListProjects(ctx context.Context, memberID string) ([]model.Project, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).([]model.Project), args.Error(1)
}

func (m *MockRepositories) UpdateProject(ctx context.Context, projectID string, patch model.ProjectPatch) (model.Project, error) {
	args := m.Called(ctx, projectID, patch)
	return args.Get(0).(model.Project), args.Error(1)
}

func (m *MockRepositories) DeleteProject(ctx context.Context, projectID string) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

func (m *MockRepositories) AddProjectMember(ctx context.Context, projectID, userID string) (model.Project, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Get(0).(model.Project), args.Error(1)
}

func (m *MockRepositories) RemoveProjectMember(ctx context.Context, projectID, userID string) (model.Project, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Get(0).(model.Project), args.Error(1)
}

func (m *MockRepositories) CreateIssue(ctx context.Context, issue model.Issue) (model.Issue, error) {
	args := m.Called(ctx, issue)
	return args.Get(0).(model.Issue), args.Error(1)
}

func (m *MockRepositories) GetIssue(ctx context.Context, issueID string) (model.Issue, error) {
	args := m.Called(ctx, issueID)
	return args.Get(0).(model.Issue), args.Error(1)
}

func (m *MockRepositories) ListIssues(ctx context.Context, f store.IssueFilter) ([]model.Issue, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]model.Issue), args.Int(1), args.Error(2)
}

func (m *MockRepositories) DeleteIssue(ctx context.Context, issueID string) error {
	args := m.Called(ctx, issueID)
	return args.Error(0)
}

func (m *MockRepositories) PatchIssue(ctx context.Context, issueID string, patch model.AdminPatch) (model.Issue, error) {
	args := m.Called(ctx, issueID, patch)
	return args.Get(0).(model.Issue), args.Error(1)
}

func (m *MockRepositories) BulkPatchIssues(ctx context.Context, issueIDs []string, patch model.AdminPatch) (model.BulkResult, error) {
	args := m.Called(ctx, issueIDs, patch)
	return args.Get(0).(model.BulkResult), args.Error(1)
}

// MutateAssignedIssue behaves like the store: the stubbed issue is the locked
// row, the planner runs against it and the mutation is applied to the copy
// that is returned.
func (m *MockRepositories) MutateAssignedIssue(ctx context.Context, issueID, assigneeID string, plan store.IssuePlanner) (model.Issue, error) {
	args := m.Called(ctx, issueID, assigneeID)
	if err := args.Error(1); err != nil {
		return model.Issue{}, err
	}
	current := args.Get(0).(model.Issue)
	mutation := plan(current)
	m.mutation = &mutation

	if mutation.Status != nil {
		current.Status = *mutation.Status
	}
	if mutation.ClearAssignee {
		current.AssigneeID, current.Assignee = nil, nil
	}
	current.History = append(append([]model.HistoryEntry(nil), current.History...), mutation.History...)
	return current, nil
}

func (m *MockRepositories) QueryHistory(ctx context.Context, actorID string, q model.HistoryQuery) ([]model.HistoryRow, int, error) {
	args := m.Called(ctx, actorID, q)
	return args.Get(0).([]model.HistoryRow), args.Int(1), args.Error(2)
}

func (m *MockRepositories) IssueHistory(ctx context.Context, issueID string) ([]model.HistoryEntry, error) {
	args := m.Called(ctx, issueID)
	return args.Get(0).([]model.HistoryEntry), args.Error(1)
}

func (m *MockRepositories) ListTags(ctx context.Context) ([]model.Tag, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Tag), args.Error(1)
}

func (m *MockRepositories) CreateTag(ctx context.Context, t model.Tag) (model.Tag, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Tag), args.Error(1)
}

func (m *MockRepositories) UpdateTag(ctx context.Context, tagID string, name, color *string) (model.Tag, error) {
	args := m.Called(ctx, tagID, name, color)
	return args.Get(0).(model.Tag), args.Error(1)
}

func (m *MockRepositories) DeleteTag(ctx context.Context, tagID string) error {
	args := m.Called(ctx, tagID)
	return args.Error(0)
}

func (m *MockRepositories) GetSetting(ctx context.Context, key string, dst any) error {
	args := m.Called(ctx, key, dst)
	return args.Error(0)
}

func (m *MockRepositories) PutSetting(ctx context.Context, key string, value any) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockRepositories) GetDashboardStats(ctx context.Context, since time.Time) (model.DashboardStats, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(model.DashboardStats), args.Error(1)
}
